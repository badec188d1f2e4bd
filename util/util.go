// Package util contains helpers with no better home.
package util

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted release strings the way the
// provider software numbers them: numeric segments, any number of
// them, e.g. "2.4.8.1" vs "2.4.10". Missing segments count as zero.
// Returns -1, 0 or 1. These are not semver strings: four-segment
// releases are the norm, so a semver library would reject them.
func CompareVersions(a, b string) int {
	aParts := strings.Split(strings.TrimSpace(a), ".")
	bParts := strings.Split(strings.TrimSpace(b), ".")
	length := len(aParts)
	if len(bParts) > length {
		length = len(bParts)
	}
	for i := 0; i < length; i++ {
		aNum := segmentValue(aParts, i)
		bNum := segmentValue(bParts, i)
		if aNum < bNum {
			return -1
		}
		if aNum > bNum {
			return 1
		}
	}
	return 0
}

func segmentValue(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	num, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return num
}

// StringListContains returns true if the list contains the item.
func StringListContains(list []string, item string) bool {
	for _, entry := range list {
		if entry == item {
			return true
		}
	}
	return false
}
