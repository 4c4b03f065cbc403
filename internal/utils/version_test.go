package utils

import "testing"

func TestParseVersionNumber(t *testing.T) {
	cases := []struct {
		in   string
		want *VersionNumber
	}{
		{"1.2.3", &VersionNumber{1, 2, 3}},
		{"v2.0.1", &VersionNumber{2, 0, 1}},
		{"1.2.3-rc.1", &VersionNumber{1, 2, 3}},
		{"1.2.3+build.7", &VersionNumber{1, 2, 3}},
		{"1.2", nil},
		{"dev", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := ParseVersionNumber(tc.in)
		if (got == nil) != (tc.want == nil) {
			t.Errorf("ParseVersionNumber(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		if got != nil && *got != *tc.want {
			t.Errorf("ParseVersionNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	if CompareVersions(VersionNumber{1, 2, 3}, VersionNumber{1, 2, 3}) != 0 {
		t.Error("Expected equal versions to compare as 0")
	}
	if CompareVersions(VersionNumber{1, 2, 3}, VersionNumber{1, 3, 0}) != -1 {
		t.Error("Expected 1.2.3 to be older than 1.3.0")
	}
	if CompareVersions(VersionNumber{2, 0, 0}, VersionNumber{1, 9, 9}) != 1 {
		t.Error("Expected 2.0.0 to be newer than 1.9.9")
	}
	if CompareVersions(VersionNumber{1, 2, 4}, VersionNumber{1, 2, 3}) != 1 {
		t.Error("Expected the micro version to break the tie")
	}
}
