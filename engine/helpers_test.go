package engine

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// parseSource parses inline JavaScript/TypeScript into a ParseResult
func parseSource(t *testing.T, name, source string) *parser.ParseResult {
	t.Helper()

	fileParser, err := parser.CreateParser(name)
	if err != nil {
		t.Fatalf("failed to create parser for %s: %v", name, err)
	}
	t.Cleanup(fileParser.Close)

	result, err := fileParser.Parse([]byte(source), name)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", name, err)
	}
	t.Cleanup(func() { result.Tree.Close() })

	return result
}

// newTestContext builds a FileContext over inline source with the shared test
// contract corpus
func newTestContext(t *testing.T, name, source string) (*FileContext, *sitter.Node) {
	t.Helper()

	file := parseSource(t, name, source)
	ctx := NewFileContext(file, testContracts())
	root := file.Tree.RootNode()
	CollectBindings(ctx, root)
	return ctx, root
}

// firstCall returns the innermost call expression whose text contains the
// given fragment, so "axios.get" inside axios.get(...).catch(...) selects the
// get call, not the catch chain around it
func firstCall(t *testing.T, root *sitter.Node, source, fragment string) *sitter.Node {
	t.Helper()

	var found *sitter.Node
	parser.WalkAST(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		if fragment != "" && !containsText(n, source, fragment) {
			return
		}
		if found == nil || n.EndByte()-n.StartByte() < found.EndByte()-found.StartByte() {
			found = n
		}
	})
	if found == nil {
		t.Fatalf("no call expression matching %q", fragment)
	}
	return found
}

func containsText(n *sitter.Node, source, fragment string) bool {
	text := source[n.StartByte():n.EndByte()]
	for i := 0; i+len(fragment) <= len(text); i++ {
		if text[i:i+len(fragment)] == fragment {
			return true
		}
	}
	return false
}

// testContracts builds the corpus the engine tests share
func testContracts() map[string]*contract.PackageContract {
	axios := &contract.PackageContract{
		Package:         "axios",
		ContractVersion: "1.0.0",
		DocsURL:         "https://axios-http.com/docs/handling_errors",
		Functions: []contract.FunctionContract{
			{
				Name: "get",
				Postconditions: []contract.Postcondition{
					{
						ID:               "rate-limit-429",
						Condition:        "rejects when the server responds with HTTP 429",
						Throws:           "AxiosError with response.status 429",
						Severity:         contract.SeverityError,
						RequiredHandling: "catch and retry with backoff",
					},
					{
						ID:               "network-failure",
						Condition:        "rejects with no response on network failure",
						Throws:           "AxiosError with no response object",
						Severity:         contract.SeverityError,
						RequiredHandling: "catch and check response existence",
					},
					{
						ID:               "http-error-status",
						Condition:        "rejects on any non-2xx status",
						Throws:           "AxiosError carrying response.status",
						Severity:         contract.SeverityError,
						RequiredHandling: "catch and branch on status",
					},
				},
			},
			{
				Name: "post",
				Postconditions: []contract.Postcondition{
					{
						ID:               "http-error-status",
						Condition:        "rejects on any non-2xx status",
						Severity:         contract.SeverityError,
						RequiredHandling: "catch and branch on status",
					},
				},
			},
		},
		Detection: contract.DetectionRules{
			FactoryMethods: []string{"create"},
		},
	}

	prisma := &contract.PackageContract{
		Package:         "prisma",
		ContractVersion: "1.0.0",
		Functions: []contract.FunctionContract{
			{
				Name: "create",
				Postconditions: []contract.Postcondition{
					{
						ID:               "db-error",
						Condition:        "throws on constraint violation or lost connection",
						Throws:           "PrismaClientKnownRequestError",
						Severity:         contract.SeverityError,
						RequiredHandling: "catch and map to a domain error",
					},
				},
			},
			{
				Name: "findUnique",
				Postconditions: []contract.Postcondition{
					{
						ID:        "returns-null-when-missing",
						Condition: "resolves to null when no row matches",
						Returns:   "null",
						Severity:  contract.SeverityError,
					},
				},
			},
		},
		Detection: contract.DetectionRules{
			ClassNames: []string{"PrismaClient"},
			TypeNames:  []string{"PrismaClient", "PrismaService"},
		},
	}

	supabase := &contract.PackageContract{
		Package:         "@supabase/supabase-js",
		ContractVersion: "1.0.0",
		Functions: []contract.FunctionContract{
			{
				Name: "select",
				Postconditions: []contract.Postcondition{
					{
						ID:               "returns-error-field",
						Condition:        "resolves to { data, error }; error is set on failure",
						Returns:          "{ data: null, error } on failure",
						Severity:         contract.SeverityError,
						RequiredHandling: "check the error field",
					},
				},
			},
		},
		Detection: contract.DetectionRules{
			FactoryMethods: []string{"createClient"},
		},
	}

	ws := &contract.PackageContract{
		Package:         "ws",
		ContractVersion: "1.0.0",
		Functions:       []contract.FunctionContract{{Name: "send"}},
		Detection: contract.DetectionRules{
			ClassNames: []string{"WebSocket"},
			RequiredListeners: []contract.RequiredListener{
				{Event: "error", Severity: contract.SeverityError},
				{Event: "close", Severity: contract.SeverityWarning},
			},
		},
	}

	reactQuery := &contract.PackageContract{
		Package:         "@tanstack/react-query",
		ContractVersion: "1.0.0",
		Functions: []contract.FunctionContract{
			{
				Name: "useQuery",
				Postconditions: []contract.Postcondition{
					{
						ID:               "query-error-unhandled",
						Condition:        "the query can enter error state",
						Severity:         contract.SeverityError,
						RequiredHandling: "check error state or register an onError callback",
					},
				},
			},
			{
				Name: "useMutation",
				Postconditions: []contract.Postcondition{
					{
						ID:               "mutation-error-unhandled",
						Condition:        "the mutation can fail",
						Severity:         contract.SeverityError,
						RequiredHandling: "check error state or register an onError callback",
					},
					{
						ID:               "optimistic-update-no-rollback",
						Condition:        "onMutate applies an optimistic update",
						Severity:         contract.SeverityWarning,
						RequiredHandling: "register an onError rollback",
					},
				},
			},
		},
		Detection: contract.DetectionRules{
			ClassNames: []string{"QueryClient"},
		},
	}

	lib := &contract.PackageContract{
		Package:         "safe-storage",
		ContractVersion: "1.0.0",
		Functions: []contract.FunctionContract{
			{
				Name: "getItem",
				Postconditions: []contract.Postcondition{
					{
						ID:               "returns-null-on-miss",
						Condition:        "returns null when the key is absent",
						Returns:          "null",
						Severity:         contract.SeverityWarning,
						RequiredHandling: "check the returned value",
					},
				},
			},
		},
	}

	return map[string]*contract.PackageContract{
		"axios":                 axios,
		"prisma":                prisma,
		"@supabase/supabase-js": supabase,
		"ws":                    ws,
		"@tanstack/react-query": reactQuery,
		"safe-storage":          lib,
	}
}
