package client

import (
	"strings"
	"testing"

	"ssm-keeper/internal/env"
)

/**
 * Test version skew detection between CLI and server
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Matching versions produce no warning
 * - An older server suggests a restart, a newer one suggests upgrading
 * - Unparsable versions such as dev builds stay silent
 * @example
 * // Run this test with: go test -v -run TestVersionSkewWarning
 */
func TestVersionSkewWarning(t *testing.T) {
	saved := env.Version
	env.Version = "1.4.0"
	defer func() { env.Version = saved }()

	if w := versionSkewWarning("1.4.0"); w != "" {
		t.Errorf("Expected no warning for matching versions, got %q", w)
	}
	if w := versionSkewWarning("1.3.2"); !strings.Contains(w, "older") {
		t.Errorf("Expected an older-server warning, got %q", w)
	}
	if w := versionSkewWarning("1.5.0"); !strings.Contains(w, "newer") {
		t.Errorf("Expected a newer-server warning, got %q", w)
	}
	// dev版本没法比较，保持沉默
	if w := versionSkewWarning("dev"); w != "" {
		t.Errorf("Expected no warning for an unparsable version, got %q", w)
	}
}
