package upgrade

import (
	"context"
	"strings"
	"testing"

	"ssm-keeper/internal/env"
)

/**
 * Test the development build guard
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Unstamped builds carry no comparable version and must refuse to update
 * - Covers both the "dev" default and an empty version string
 * @example
 * // Run this test with: go test -v -run TestUpgradeRefusesDevVersion
 */
func TestUpgradeRefusesDevVersion(t *testing.T) {
	saved := env.Version
	defer func() { env.Version = saved }()

	for _, version := range []string{"dev", ""} {
		env.Version = version
		err := runUpgrade(context.Background())
		if err == nil {
			t.Fatalf("Expected an error for version %q", version)
		}
		if !strings.Contains(err.Error(), "development version") {
			t.Errorf("Unexpected error for version %q: %v", version, err)
		}
	}
}
