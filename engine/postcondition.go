package engine

import (
	"fmt"
	"strings"

	"github.com/hannajonsd/contract-analysis/contract"
)

// Evaluate matches a resolved call site's protection profile against the
// function's postconditions and returns zero or more violations.
//
// Each error-severity postcondition with required handling is evaluated
// independently, so one call site can legitimately emit a rate-limit
// violation and a network violation at once. Within a category the branches
// short-circuit: no protection at all escalates to an error, partial
// protection downgrades to a warning, full handling stays silent.
func Evaluate(site *CallSite, fc *contract.FunctionContract, pc *contract.PackageContract, profile ProtectionProfile) []Violation {
	var violations []Violation

	for _, post := range fc.Postconditions {
		if post.Severity != contract.SeverityError || post.RequiredHandling == "" {
			continue
		}

		id := strings.ToLower(post.ID)
		switch {
		case strings.Contains(id, "429") || strings.Contains(id, "rate-limit") || strings.Contains(id, "rate_limit"):
			if v, ok := evaluateRateLimit(site, post, pc, profile); ok {
				violations = append(violations, v)
			}
		case strings.Contains(id, "network"):
			if v, ok := evaluateNetwork(site, post, pc, profile); ok {
				violations = append(violations, v)
			}
		case strings.Contains(id, "error"):
			if v, ok := evaluateGenericError(site, post, pc, profile); ok {
				violations = append(violations, v)
			}
		}
	}

	return violations
}

func evaluateRateLimit(site *CallSite, post contract.Postcondition, pc *contract.PackageContract, profile ProtectionProfile) (Violation, bool) {
	if !profile.Protected() {
		v := newViolation(site, post, pc, contract.SeverityError,
			fmt.Sprintf("Unhandled %s.%s: %s - a rate-limit response will crash the application", site.Package, site.Function, post.Condition),
			"Wrap the call in try/catch and handle HTTP 429 with exponential backoff")
		return v, true
	}
	if !profile.HandledCodes[429] && !profile.HasRetrySignal {
		v := newViolation(site, post, pc, contract.SeverityWarning,
			fmt.Sprintf("%s.%s is caught but HTTP 429 is not handled specifically", site.Package, site.Function),
			"Check error.response.status === 429 and retry with backoff")
		return v, true
	}
	return Violation{}, false
}

func evaluateNetwork(site *CallSite, post contract.Postcondition, pc *contract.PackageContract, profile ProtectionProfile) (Violation, bool) {
	if !profile.Protected() {
		v := newViolation(site, post, pc, contract.SeverityError,
			fmt.Sprintf("Unhandled %s.%s: %s", site.Package, site.Function, post.Condition),
			"Wrap the call in try/catch; a network failure rejects with no HTTP response")
		return v, true
	}
	if !profile.ChecksResponse {
		v := newViolation(site, post, pc, contract.SeverityWarning,
			fmt.Sprintf("%s.%s is caught but the handler cannot tell network failures from HTTP errors", site.Package, site.Function),
			"Check whether error.response exists before reading HTTP fields")
		return v, true
	}
	return Violation{}, false
}

func evaluateGenericError(site *CallSite, post contract.Postcondition, pc *contract.PackageContract, profile ProtectionProfile) (Violation, bool) {
	if !profile.Protected() {
		v := newViolation(site, post, pc, contract.SeverityError,
			fmt.Sprintf("Unhandled %s.%s: %s", site.Package, site.Function, post.Condition),
			"Wrap the call in try/catch or attach a .catch handler")
		return v, true
	}
	if !profile.ChecksStatus {
		v := newViolation(site, post, pc, contract.SeverityWarning,
			fmt.Sprintf("%s.%s is caught but the handler does not differentiate error status codes", site.Package, site.Function),
			"Check error.response.status to treat 4xx and 5xx responses differently")
		return v, true
	}
	return Violation{}, false
}

func newViolation(site *CallSite, post contract.Postcondition, pc *contract.PackageContract, severity contract.Severity, description, fix string) Violation {
	return Violation{
		ID:              fmt.Sprintf("%s-%s", site.Package, post.ID),
		Severity:        severity,
		File:            site.File,
		Line:            site.Line,
		Column:          site.Column,
		Package:         site.Package,
		Function:        site.Function,
		PostconditionID: post.ID,
		Description:     description,
		SuggestedFix:    fix,
		DocsURL:         pc.DocsURL,
	}
}
