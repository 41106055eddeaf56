package engine

import "github.com/hannajonsd/contract-analysis/parser"

// ImportTable resolves identifiers in one file back to the package they were
// imported from. Namespace imports (import * as ns) are recorded but never
// resolved to a package; resolving through them would need member tracking the
// engine does not do. Known limitation.
type ImportTable struct {
	aliases    map[string]string // default import / require alias -> package
	named      map[string]string // named import symbol -> package
	namespaces map[string]bool
}

// NewImportTable builds an import table from a file's extracted imports
func NewImportTable(imports []parser.PackageImport) *ImportTable {
	table := &ImportTable{
		aliases:    make(map[string]string),
		named:      make(map[string]string),
		namespaces: make(map[string]bool),
	}

	for _, imp := range imports {
		switch imp.ImportType {
		case "import", "require":
			table.aliases[imp.Alias] = imp.PackageName
		case "destructured":
			for _, symbol := range imp.Symbols {
				table.named[symbol] = imp.PackageName
			}
			if len(imp.Symbols) == 0 && imp.Alias != "" {
				table.named[imp.Alias] = imp.PackageName
			}
		case "namespace":
			table.namespaces[imp.Alias] = true
		}
	}

	return table
}

// Resolve maps an identifier to its originating package. Default and require
// aliases are checked before named imports; namespace aliases never resolve.
func (t *ImportTable) Resolve(name string) (string, bool) {
	if pkg, ok := t.aliases[name]; ok {
		return pkg, true
	}
	if pkg, ok := t.named[name]; ok {
		return pkg, true
	}
	return "", false
}

// IsNamespace reports whether an identifier is a namespace import alias
func (t *ImportTable) IsNamespace(name string) bool {
	return t.namespaces[name]
}
