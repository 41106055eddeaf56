package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir loads every contract file in a directory into a map keyed by package
// name. Files are processed in sorted name order so repeated runs produce the
// same corpus; if two files declare the same package the later one wins and a
// warning is printed.
//
// A malformed file fails the whole load: the engine must never see a
// partially-valid contract.
func LoadDir(dir string) (map[string]*PackageContract, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no contract files found in %s", dir)
	}

	contracts := make(map[string]*PackageContract)
	for _, name := range names {
		path := filepath.Join(dir, name)
		pc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		if _, exists := contracts[pc.Package]; exists {
			fmt.Printf("Warning: contract for %s redefined by %s\n", pc.Package, name)
		}
		contracts[pc.Package] = pc
	}

	return contracts, nil
}

// LoadFile loads and validates a single contract file
func LoadFile(path string) (*PackageContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file %s: %w", path, err)
	}

	var pc PackageContract
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &pc); err != nil {
			return nil, fmt.Errorf("failed to parse contract file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pc); err != nil {
			return nil, fmt.Errorf("failed to parse contract file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported contract file type: %s", path)
	}

	if err := Validate(&pc); err != nil {
		return nil, fmt.Errorf("invalid contract %s: %w", path, err)
	}

	return &pc, nil
}

// Validate checks a contract against the corpus schema. The engine assumes any
// contract it receives passed this check.
func Validate(pc *PackageContract) error {
	if pc.Package == "" {
		return fmt.Errorf("missing package name")
	}
	if pc.ContractVersion == "" {
		return fmt.Errorf("package %s: missing contract_version", pc.Package)
	}

	seen := make(map[string]bool)
	for _, fn := range pc.Functions {
		if fn.Name == "" {
			return fmt.Errorf("package %s: function with empty name", pc.Package)
		}
		if seen[fn.Name] {
			return fmt.Errorf("package %s: duplicate function %s", pc.Package, fn.Name)
		}
		seen[fn.Name] = true

		for _, post := range fn.Postconditions {
			if post.ID == "" {
				return fmt.Errorf("package %s: function %s: postcondition with empty id", pc.Package, fn.Name)
			}
			if !ValidSeverity(post.Severity) {
				return fmt.Errorf("package %s: function %s: postcondition %s: invalid severity %q",
					pc.Package, fn.Name, post.ID, post.Severity)
			}
		}
	}

	for _, listener := range pc.Detection.RequiredListeners {
		if listener.Event == "" {
			return fmt.Errorf("package %s: required listener with empty event name", pc.Package)
		}
		if !ValidSeverity(listener.Severity) {
			return fmt.Errorf("package %s: required listener %s: invalid severity %q",
				pc.Package, listener.Event, listener.Severity)
		}
	}

	return nil
}
