package domain

import (
	"math"
	"testing"
)

func TestMatchTag_ReleaseTags(t *testing.T) {
	cases := []struct {
		ref  string
		want Version
	}{
		{"v1.2.3", Version{1, 2, 3}},
		{"v0.0.0", Version{0, 0, 0}},
		{"refs/tags/v1.2.3", Version{1, 2, 3}},
		{"refs/tags/v10.20.30", Version{10, 20, 30}},
		{"v999.0.1", Version{999, 0, 1}},
		{"v18446744073709551615.0.0", Version{math.MaxUint64, 0, 0}},
	}

	for _, c := range cases {
		v, ok := MatchTag(c.ref)
		if !ok {
			t.Errorf("MatchTag(%q) = false, want match", c.ref)
			continue
		}
		if v != c.want {
			t.Errorf("MatchTag(%q) = %v, want %v", c.ref, v, c.want)
		}
	}
}

func TestMatchTag_Mismatches(t *testing.T) {
	refs := []string{
		"",
		"main",
		"refs/heads/main",
		"refs/heads/v1.2.3",
		"1.2.3",           // missing v prefix
		"v1.2",            // too few components
		"v1.2.3.4",        // too many components
		"v1.2.x",          // non-numeric component
		"va.b.c",          // non-numeric components
		"v1.2.3-rc1",      // pre-release suffix
		"v1.2.3+build",    // build metadata
		"v1..3",           // empty component
		"v-1.2.3",         // negative component
		"refs/tags/",      // empty tag
		"refs/tags/x/v1.2.3", // extra path segment
		"V1.2.3",          // wrong case
		"v18446744073709551616.0.0", // 2^64, beyond uint64
	}

	for _, ref := range refs {
		if _, ok := MatchTag(ref); ok {
			t.Errorf("MatchTag(%q) = true, want mismatch", ref)
		}
	}
}

func TestMatchTag_NeverPanics(t *testing.T) {
	for _, ref := range []string{"v", "v.", "v...", "refs/tags/v"} {
		if _, ok := MatchTag(ref); ok {
			t.Errorf("MatchTag(%q) = true, want mismatch", ref)
		}
	}
}

func TestVersion_String(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	if v.String() != "v1.2.3" {
		t.Errorf("got %s", v.String())
	}
}
