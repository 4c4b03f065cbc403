package utils

import (
	"fmt"
	"strconv"
	"strings"
)

type VersionNumber struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Micro int `json:"micro"`
}

func (v VersionNumber) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

/**
 * Parse version string into VersionNumber struct
 * @param {string} versionStr - Version string in "major.minor.micro" format (e.g. "1.2.3")
 * @returns {*VersionNumber} Pointer to VersionNumber struct if parse succeeds, nil on failure
 * @description
 * - Splits version string by dots and converts to integers
 * - A leading "v" and trailing pre-release/build suffixes are tolerated
 * - Returns nil if input format is invalid or contains non-numeric parts
 * @example
 * ver := ParseVersionNumber("1.2.3")  // returns VersionNumber{Major:1, Minor:2, Micro:3}
 * ver := ParseVersionNumber("invalid") // returns nil
 */
func ParseVersionNumber(versionStr string) *VersionNumber {
	versionStr = strings.TrimPrefix(strings.TrimSpace(versionStr), "v")
	if idx := strings.IndexAny(versionStr, "-+ "); idx >= 0 {
		versionStr = versionStr[:idx]
	}
	vers := strings.Split(versionStr, ".")
	if len(vers) != 3 {
		return nil
	}

	var ver VersionNumber
	var err error
	ver.Major, err = strconv.Atoi(vers[0])
	if err != nil {
		return nil
	}
	ver.Minor, err = strconv.Atoi(vers[1])
	if err != nil {
		return nil
	}
	ver.Micro, err = strconv.Atoi(vers[2])
	if err != nil {
		return nil
	}
	return &ver
}

/**
 * Compare two version numbers
 * @returns {int} Returns -1 when a is older than b, 0 when equal, 1 when newer
 */
func CompareVersions(a, b VersionNumber) int {
	if a.Major != b.Major {
		if a.Major < b.Major {
			return -1
		}
		return 1
	}
	if a.Minor != b.Minor {
		if a.Minor < b.Minor {
			return -1
		}
		return 1
	}
	if a.Micro != b.Micro {
		if a.Micro < b.Micro {
			return -1
		}
		return 1
	}
	return 0
}
