package buildinfo

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	Version, Commit = "v1.2.0", "3f2c1a9d0e8b"
	if got := Short(); got != "votemap v1.2.0 (3f2c1a9)" {
		t.Errorf("Short() = %q", got)
	}
	Commit = "none"
	if got := Short(); got != "votemap v1.2.0 (none)" {
		t.Errorf("Short() = %q", got)
	}
}

func TestTemplate(t *testing.T) {
	if !strings.HasPrefix(Template(), "{{.Name}} version ") {
		t.Errorf("Template() = %q", Template())
	}
}
