package engine

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/parser"
)

// retryKeywords and deferredTimerKeywords drive the retry-signal heuristic.
// Matched as lowercase substrings over a catch body's full text. Coarse on
// purpose; tune the word lists, not the control flow.
var (
	retryKeywords         = []string{"retry", "backoff", "attempt"}
	deferredTimerKeywords = []string{"settimeout", "setinterval"}
)

// hasRetrySignal reports whether a catch body's text carries retry-indicating
// lexical cues: a retry keyword, or a deferred timer co-occurring with "delay".
func hasRetrySignal(bodyText string) bool {
	text := strings.ToLower(bodyText)

	for _, keyword := range retryKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	if strings.Contains(text, "delay") {
		for _, timer := range deferredTimerKeywords {
			if strings.Contains(text, timer) {
				return true
			}
		}
	}

	return false
}

// AnalyzeProtection classifies the control-flow context of a call (or await)
// node. instanceVar is the variable the call was made on, if any; an
// interceptor registration on it anywhere in the file counts as protection.
func AnalyzeProtection(ctx *FileContext, node *sitter.Node, instanceVar string) ProtectionProfile {
	profile := ProtectionProfile{HandledCodes: make(map[int]bool)}

	if parent := node.Parent(); parent != nil && parent.Type() == "member_expression" {
		if property := parent.ChildByFieldName("property"); property != nil {
			if parser.NodeText(property, ctx.Source) == "catch" {
				profile.HasPromiseCatch = true
			}
		}
	}

	if tryNode := enclosingTryBlock(node); tryNode != nil {
		profile.InTry = true
		if handler := catchClause(tryNode); handler != nil {
			scanCatchClause(ctx, handler, &profile)
		}
	}

	if instanceVar != "" && ctx.Interceptors[instanceVar] {
		profile.HasGlobalHandler = true
	}

	return profile
}

// enclosingTryBlock walks strictly upward and returns the nearest try
// statement whose try block (not catch or finally) contains the node.
func enclosingTryBlock(node *sitter.Node) *sitter.Node {
	prev := node
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "try_statement" {
			if body := cur.ChildByFieldName("body"); body != nil && sameNode(body, prev) {
				return cur
			}
		}
		prev = cur
	}
	return nil
}

func catchClause(tryNode *sitter.Node) *sitter.Node {
	if handler := tryNode.ChildByFieldName("handler"); handler != nil && handler.Type() == "catch_clause" {
		return handler
	}
	return nil
}

// scanCatchClause extracts finer handling detail from a catch clause:
// response-existence checks, status-code access, explicitly compared status
// literals, and retry cues.
func scanCatchClause(ctx *FileContext, handler *sitter.Node, profile *ProtectionProfile) {
	body := handler.ChildByFieldName("body")
	if body == nil {
		return
	}

	paramName := ""
	if param := handler.ChildByFieldName("parameter"); param != nil && param.Type() == "identifier" {
		paramName = parser.NodeText(param, ctx.Source)
	}

	parser.WalkAST(body, func(n *sitter.Node) {
		switch n.Type() {
		case "member_expression":
			scanCatchMember(ctx, body, n, paramName, profile)
		case "binary_expression":
			scanStatusComparison(ctx, n, profile)
		}
	})

	if hasRetrySignal(parser.NodeText(body, ctx.Source)) {
		profile.HasRetrySignal = true
	}
}

func scanCatchMember(ctx *FileContext, body, n *sitter.Node, paramName string, profile *ProtectionProfile) {
	property := n.ChildByFieldName("property")
	if property == nil {
		return
	}

	switch parser.NodeText(property, ctx.Source) {
	case "response":
		object := n.ChildByFieldName("object")
		if object == nil || object.Type() != "identifier" {
			return
		}
		if paramName != "" && parser.NodeText(object, ctx.Source) != paramName {
			return
		}
		if isConditionContext(body, n) || strings.Contains(parser.NodeText(n, ctx.Source), "?.") {
			profile.ChecksResponse = true
		}

	case "status":
		object := n.ChildByFieldName("object")
		if object == nil {
			return
		}
		// err.response.status (or err?.response?.status)
		if object.Type() == "member_expression" {
			if inner := object.ChildByFieldName("property"); inner != nil &&
				parser.NodeText(inner, ctx.Source) == "response" {
				profile.ChecksStatus = true
			}
		}
	}
}

// isConditionContext reports whether node sits inside the condition of an
// enclosing if statement or ternary, bounded by the catch body.
func isConditionContext(body, node *sitter.Node) bool {
	for cur := node.Parent(); cur != nil && !sameNode(cur, body); cur = cur.Parent() {
		switch cur.Type() {
		case "if_statement", "while_statement":
			if condition := cur.ChildByFieldName("condition"); condition != nil && containsNode(condition, node) {
				return true
			}
		case "ternary_expression":
			if condition := cur.ChildByFieldName("condition"); condition != nil && containsNode(condition, node) {
				return true
			}
		}
	}
	return false
}

// scanStatusComparison collects literal status codes from equality
// comparisons against numbers in [100, 600).
func scanStatusComparison(ctx *FileContext, n *sitter.Node, profile *ProtectionProfile) {
	operator := n.ChildByFieldName("operator")
	if operator == nil {
		return
	}
	op := parser.NodeText(operator, ctx.Source)
	if op != "==" && op != "===" {
		return
	}

	for _, side := range []*sitter.Node{n.ChildByFieldName("left"), n.ChildByFieldName("right")} {
		if side == nil || side.Type() != "number" {
			continue
		}
		code, err := strconv.Atoi(parser.NodeText(side, ctx.Source))
		if err != nil {
			continue
		}
		if code >= 100 && code < 600 {
			profile.HandledCodes[code] = true
		}
	}
}

// containsNode reports whether inner lies within outer's byte range
func containsNode(outer, inner *sitter.Node) bool {
	return inner.StartByte() >= outer.StartByte() && inner.EndByte() <= outer.EndByte()
}

// sameNode reports whether two nodes are the same tree position
func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
