package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestGetDefaults(t *testing.T) {
	info := Get()
	if info.Tool != "moveforge" || info.Version == "" {
		t.Fatalf("unexpected info %#v", info)
	}
}

func TestGetCanBeOverridden(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"
	info := Get()
	if info.Version != "1.2.3" || info.GitCommit != "abc123def456" || info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Fatalf("overrides not applied: %#v", info)
	}

	Version = "   "
	if Get().Version != "dev" {
		t.Fatalf("blank version should read as dev")
	}
}

func TestColored(t *testing.T) {
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })
	color.NoColor = true

	cases := map[string]string{
		"0.1.0-dev":            "0.1.0-dev",
		"1.2.3":                "1.2.3",
		"1.2.3-rc.1+build.123": "1.2.3-rc.1+build.123",
		"dev":                  "dev",
	}
	for in, want := range cases {
		if got := Colored(in); got != want {
			t.Fatalf("Colored(%q) = %q, want %q", in, got, want)
		}
	}

	color.NoColor = false
	if got := Colored("1.2.3"); got == "1.2.3" {
		t.Fatalf("expected escape codes when colour is on")
	}
}
