package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	if got := UserAgent("paddlecast", ""); got != "paddlecast/dev" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if got := UserAgent("paddlecast", "ops@example.com"); got != "paddlecast/dev (ops@example.com)" {
		t.Fatalf("unexpected user agent %q", got)
	}
}

func TestStringIncludesBuildFields(t *testing.T) {
	s := String()
	for _, want := range []string{"version: dev", "commit: unknown", "go: go"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in %q", want, s)
		}
	}
}
