package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CreateParser creates the appropriate parser based on file extension
func CreateParser(filePath string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return NewJavaScriptParser()
	case ".ts", ".mts", ".cts":
		return NewTypeScriptParser()
	case ".tsx":
		return NewTSXParser()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// SupportedExtension reports whether a file can be parsed by one of the
// registered language parsers.
func SupportedExtension(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".tsx":
		return true
	}
	return false
}
