package domain

import (
	"strconv"
	"strings"
)

const tagRefPrefix = "refs/tags/"

// MatchTag reports whether ref qualifies as a release trigger and, if
// so, the version it names. Accepted forms are "refs/tags/vX.Y.Z" and
// bare "vX.Y.Z" with strictly numeric components, each of which must
// fit in a uint64. Anything else (no leading v, non-numeric
// components, pre-release suffixes, extra path segments, out-of-range
// components) is a mismatch, never an error.
func MatchTag(ref string) (Version, bool) {
	tag := strings.TrimPrefix(ref, tagRefPrefix)
	if tag == "" || strings.ContainsRune(tag, '/') {
		return Version{}, false
	}
	if tag[0] != 'v' {
		return Version{}, false
	}

	parts := strings.Split(tag[1:], ".")
	if len(parts) != 3 {
		return Version{}, false
	}

	var nums [3]uint64
	for i, p := range parts {
		if !allDigits(p) {
			return Version{}, false
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, false
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
