package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestLine(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "1.2.3-rc.1"
	GitCommit = "1234567890abcdef1234"
	BuildDate = "2026-01-15"
	if got, want := Line(false), "filament 1.2.3-rc.1 (1234567890ab) built 2026-01-15"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	GitCommit, BuildDate = "", ""
	if got := Line(false); got != "filament 1.2.3-rc.1" {
		t.Fatalf("got %q", got)
	}
}

func TestColoredKeepsText(t *testing.T) {
	orig, noColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, noColor })
	color.NoColor = true

	for _, v := range []string{"0.1.0-dev", "1.2.3+build.7", "dev"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}
