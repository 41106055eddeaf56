package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const axiosYAML = `package: axios
version_range: ">=1.0.0 <2.0.0"
contract_version: "1.0.0"
docs_url: "https://axios-http.com/docs/handling_errors"
functions:
  - name: get
    postconditions:
      - id: rate-limit-429
        condition: "rejects when the server responds with HTTP 429"
        throws: "AxiosError with response.status 429"
        required_handling: "catch and retry with backoff"
        severity: error
detection:
  factory_methods: [create]
`

const wsJSON = `{
  "package": "ws",
  "contract_version": "1.0.0",
  "functions": [{"name": "send"}],
  "detection": {
    "class_names": ["WebSocket"],
    "required_listeners": [
      {"event": "error", "severity": "error"},
      {"event": "close", "severity": "warning"}
    ]
  }
}
`

func writeContract(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "axios.yaml", axiosYAML)
	writeContract(t, dir, "ws.json", wsJSON)
	writeContract(t, dir, "README.md", "not a contract")

	contracts, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(contracts) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(contracts))
	}

	axios := contracts["axios"]
	if axios == nil {
		t.Fatal("axios contract not loaded")
	}
	if axios.VersionRange != ">=1.0.0 <2.0.0" {
		t.Errorf("unexpected version range %q", axios.VersionRange)
	}
	fn := axios.Function("get")
	if fn == nil || len(fn.Postconditions) != 1 {
		t.Fatalf("axios.get contract malformed: %+v", fn)
	}
	post := fn.Postconditions[0]
	if post.ID != "rate-limit-429" || post.Severity != SeverityError {
		t.Errorf("unexpected postcondition %+v", post)
	}
	if post.Throws == "" || post.RequiredHandling == "" {
		t.Errorf("throws and required_handling must round-trip, got %+v", post)
	}

	ws := contracts["ws"]
	if ws == nil {
		t.Fatal("ws contract not loaded")
	}
	if len(ws.Detection.RequiredListeners) != 2 || ws.Detection.RequiredListeners[0].Event != "error" {
		t.Errorf("unexpected detection rules %+v", ws.Detection)
	}
}

func TestLoadDir_DuplicatePackageLastWins(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "a-axios.yaml", axiosYAML)
	writeContract(t, dir, "b-axios.yaml", strings.Replace(axiosYAML, `contract_version: "1.0.0"`, `contract_version: "2.0.0"`, 1))

	contracts, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if contracts["axios"].ContractVersion != "2.0.0" {
		t.Errorf("later file must win, got version %q", contracts["axios"].ContractVersion)
	}
}

func TestLoadDir_MalformedFileFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "axios.yaml", axiosYAML)
	writeContract(t, dir, "broken.yaml", "package: [not: valid")

	if _, err := LoadDir(dir); err == nil {
		t.Error("a malformed file must fail the whole load")
	}
}

func TestLoadDir_EmptyDirFails(t *testing.T) {
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Error("a directory with no contract files is an error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*PackageContract)
		wantErr string
	}{
		{"valid", func(pc *PackageContract) {}, ""},
		{"missing package", func(pc *PackageContract) { pc.Package = "" }, "missing package name"},
		{"missing contract version", func(pc *PackageContract) { pc.ContractVersion = "" }, "missing contract_version"},
		{"empty function name", func(pc *PackageContract) { pc.Functions[0].Name = "" }, "empty name"},
		{"duplicate function", func(pc *PackageContract) {
			pc.Functions = append(pc.Functions, FunctionContract{Name: "get"})
		}, "duplicate function"},
		{"empty postcondition id", func(pc *PackageContract) {
			pc.Functions[0].Postconditions[0].ID = ""
		}, "empty id"},
		{"invalid severity", func(pc *PackageContract) {
			pc.Functions[0].Postconditions[0].Severity = "fatal"
		}, "invalid severity"},
		{"listener without event", func(pc *PackageContract) {
			pc.Detection.RequiredListeners = []RequiredListener{{Severity: SeverityError}}
		}, "empty event name"},
		{"listener with bad severity", func(pc *PackageContract) {
			pc.Detection.RequiredListeners = []RequiredListener{{Event: "error", Severity: "critical"}}
		}, "invalid severity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pc := &PackageContract{
				Package:         "axios",
				ContractVersion: "1.0.0",
				Functions: []FunctionContract{{
					Name: "get",
					Postconditions: []Postcondition{{
						ID:       "rate-limit-429",
						Severity: SeverityError,
					}},
				}},
			}
			tc.mutate(pc)

			err := Validate(pc)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid contract, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
