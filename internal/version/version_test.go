package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, Version) || !strings.Contains(s, GitSHA) {
		t.Errorf("String() = %q, want version and SHA present", s)
	}
}
