package version

import (
	"strings"
	"testing"
)

// setBuild overrides the ldflags variables for one test.
func setBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })
	Version, Commit, BuildDate = version, commit, date
}

func TestInfo(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "0.3.0"},
		{"abc", "0.3.0"},
		{"1234567", "0.3.0"},
		{"12345678", "0.3.0 (1234567)"},
		{"9f86d081884c7d659a2feaa0c55ad015", "0.3.0 (9f86d08)"},
	}
	for _, tt := range tests {
		t.Run(tt.commit, func(t *testing.T) {
			setBuild(t, "0.3.0", tt.commit, "unknown")
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	setBuild(t, "1.2.3", "abcdef123456", "2026-03-02")

	lines := strings.Split(Full(), "\n")
	if len(lines) != 4 {
		t.Fatalf("Full() has %d lines, want 4:\n%s", len(lines), Full())
	}
	want := []string{"sastriage version 1.2.3", "Commit: abcdef123456", "Built: 2026-03-02"}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
	if !strings.HasPrefix(lines[3], "Go: go") {
		t.Errorf("line 3 = %q", lines[3])
	}
}

func TestCurrent(t *testing.T) {
	setBuild(t, "1.2.3", "0123456789abcdef", "2026-03-02")

	b := Current()
	if b.Version != "1.2.3" || b.Commit != "0123456789abcdef" || b.BuildDate != "2026-03-02" {
		t.Errorf("Current() = %+v", b)
	}
	if !strings.HasPrefix(b.GoVersion, "go") {
		t.Errorf("GoVersion = %q", b.GoVersion)
	}
}

func TestVersionIsSemver(t *testing.T) {
	if parts := strings.Split(Version, "."); len(parts) != 3 {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}
