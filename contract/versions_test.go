package contract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.4.2", "1.4.2"},
		{"^1.4.2", "1.4.2"},
		{"~2.0.1", "2.0.1"},
		{">=3.1.0", "3.1.0"},
		{"<=3.1.0", "3.1.0"},
		{">0.9.0", "0.9.0"},
		{"v1.2.3", "1.2.3"},
		{"  ^1.0.0  ", "1.0.0"},
	}

	for _, tc := range cases {
		if got := NormalizeVersion(tc.in); got != tc.want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplies(t *testing.T) {
	cases := []struct {
		versionRange string
		installed    string
		want         bool
	}{
		{">=1.0.0 <2.0.0", "^1.4.2", true},
		{">=1.0.0 <2.0.0", "1.0.0", true},
		{">=1.0.0 <2.0.0", "2.0.0", false},
		{">=1.0.0 <2.0.0", "2.1.0", false},
		{">=1.0.0 <2.0.0", "0.9.9", false},
		{">=1.0.0", "1.0.0-beta.1", true},
		{"", "1.0.0", true},
		{"*", "1.0.0", true},
		// unknown installed version: the contract applies anyway
		{">=1.0.0 <2.0.0", "", true},
		{">=1.0.0 <2.0.0", "latest", true},
		{"=1.2.3", "1.2.3", true},
		{"=1.2.3", "1.2.4", false},
		{"1.2.3", "1.2.3", true},
	}

	for _, tc := range cases {
		if got := Applies(tc.versionRange, tc.installed); got != tc.want {
			t.Errorf("Applies(%q, %q) = %v, want %v", tc.versionRange, tc.installed, got, tc.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.1.0", -1},
		{"2.0.0", "10.0.0", -1},
		{"1.0", "1.0.0", 0},
		{"1.0.0-beta", "1.0.0", 0},
	}

	for _, tc := range cases {
		if got := compareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestInstalledVersion(t *testing.T) {
	dir := t.TempDir()
	manifest := `{
  "name": "sample",
  "dependencies": {
    "axios": "^1.4.2",
    "ws": "~8.13.0"
  },
  "devDependencies": {
    "jest": "^29.0.0"
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	// manifests under node_modules must not shadow the project's own
	nested := filepath.Join(dir, "node_modules", "axios")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "package.json"), []byte(`{"axios": "9.9.9"}`), 0644); err != nil {
		t.Fatal(err)
	}

	lookup := NewVersionLookup(dir)

	if got := lookup.InstalledVersion("axios"); got != "^1.4.2" {
		t.Errorf("InstalledVersion(axios) = %q, want ^1.4.2", got)
	}
	if got := lookup.InstalledVersion("ws"); got != "~8.13.0" {
		t.Errorf("InstalledVersion(ws) = %q, want ~8.13.0", got)
	}
	if got := lookup.InstalledVersion("left-pad"); got != "" {
		t.Errorf("InstalledVersion(left-pad) = %q, want empty", got)
	}
}
