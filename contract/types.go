package contract

// Severity indicates how serious a postcondition violation is
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidSeverity reports whether s is one of the recognized severity levels
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// SeverityGTE reports whether severity a is at least as serious as b
func SeverityGTE(a, b Severity) bool {
	order := map[Severity]int{SeverityInfo: 1, SeverityWarning: 2, SeverityError: 3}
	return order[a] >= order[b]
}

// Postcondition is one named, severity-tagged behavioral requirement attached
// to a contract function
type Postcondition struct {
	ID               string   `json:"id" yaml:"id"`
	Condition        string   `json:"condition" yaml:"condition"`
	Throws           string   `json:"throws,omitempty" yaml:"throws,omitempty"`
	Returns          string   `json:"returns,omitempty" yaml:"returns,omitempty"`
	RequiredHandling string   `json:"required_handling,omitempty" yaml:"required_handling,omitempty"`
	Severity         Severity `json:"severity" yaml:"severity"`
}

// FunctionContract describes the declared error-handling behavior of one
// library function
type FunctionContract struct {
	Name           string          `json:"name" yaml:"name"`
	ImportPath     string          `json:"import_path,omitempty" yaml:"import_path,omitempty"`
	Postconditions []Postcondition `json:"postconditions" yaml:"postconditions"`
}

// RequiredListener names an event a created instance must register a handler for
type RequiredListener struct {
	Event    string   `json:"event" yaml:"event"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// DetectionRules carry the metadata used to recognize instances of a package
// in source code: class names for constructor instantiation, factory method
// names, declared type names, and required event listeners
type DetectionRules struct {
	ClassNames        []string           `json:"class_names,omitempty" yaml:"class_names,omitempty"`
	FactoryMethods    []string           `json:"factory_methods,omitempty" yaml:"factory_methods,omitempty"`
	TypeNames         []string           `json:"type_names,omitempty" yaml:"type_names,omitempty"`
	RequiredListeners []RequiredListener `json:"required_listeners,omitempty" yaml:"required_listeners,omitempty"`
}

// PackageContract is the behavioral contract for one library package.
// Immutable for the run; shared read-only across all analyzed files.
type PackageContract struct {
	Package         string             `json:"package" yaml:"package"`
	VersionRange    string             `json:"version_range,omitempty" yaml:"version_range,omitempty"`
	ContractVersion string             `json:"contract_version" yaml:"contract_version"`
	DocsURL         string             `json:"docs_url,omitempty" yaml:"docs_url,omitempty"`
	Functions       []FunctionContract `json:"functions" yaml:"functions"`
	Detection       DetectionRules     `json:"detection,omitempty" yaml:"detection,omitempty"`
}

// Function returns the contract for the named function, or nil if the package
// does not declare it
func (pc *PackageContract) Function(name string) *FunctionContract {
	for i := range pc.Functions {
		if pc.Functions[i].Name == name {
			return &pc.Functions[i]
		}
	}
	return nil
}
