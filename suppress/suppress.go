// Package suppress filters violations against in-source suppression comments.
//
// Two marker forms are recognized, on their own or after code:
//
//	// contract-ignore                      suppresses violations on the same line
//	// contract-ignore-next-line           suppresses violations on the following line
//
// Either marker may carry a space-separated list of violation ids to scope
// the suppression; a bare marker suppresses everything on its target line.
package suppress

import (
	"strings"

	"github.com/hannajonsd/contract-analysis/engine"
)

const (
	markerSameLine = "contract-ignore"
	markerNextLine = "contract-ignore-next-line"
)

// Result partitions a violation list into kept and suppressed halves,
// both preserving the input order
type Result struct {
	Kept       []engine.Violation
	Suppressed []engine.Violation
}

// Partition applies in-source suppression markers to a violation list.
// sources maps file paths to their raw contents; files missing from the map
// are treated as having no markers.
func Partition(violations []engine.Violation, sources map[string][]byte) Result {
	markers := make(map[string]map[int][]string)
	for path, source := range sources {
		if m := scanMarkers(source); len(m) > 0 {
			markers[path] = m
		}
	}

	var result Result
	for _, v := range violations {
		if ids, ok := markers[v.File][v.Line]; ok && matchesIDList(ids, v.ID) {
			result.Suppressed = append(result.Suppressed, v)
		} else {
			result.Kept = append(result.Kept, v)
		}
	}
	return result
}

// scanMarkers finds suppression comments and returns the set of suppressed
// lines (1-indexed), each with its optional id scope
func scanMarkers(source []byte) map[int][]string {
	suppressed := make(map[int][]string)

	for i, line := range strings.Split(string(source), "\n") {
		idx := strings.Index(line, "//")
		if idx == -1 {
			continue
		}
		comment := strings.TrimSpace(line[idx+2:])

		if rest, ok := cutMarker(comment, markerNextLine); ok {
			suppressed[i+2] = parseIDList(rest)
		} else if rest, ok := cutMarker(comment, markerSameLine); ok {
			suppressed[i+1] = parseIDList(rest)
		}
	}

	return suppressed
}

// cutMarker matches a marker at the start of a comment, requiring a word
// boundary so "contract-ignore" does not match "contract-ignore-next-line"
func cutMarker(comment, marker string) (string, bool) {
	if !strings.HasPrefix(comment, marker) {
		return "", false
	}
	rest := comment[len(marker):]
	if rest != "" && rest[0] != ' ' && rest[0] != ':' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimLeft(rest, " :\t"), true
}

func parseIDList(rest string) []string {
	if rest == "" {
		return nil
	}
	return strings.Fields(rest)
}

// matchesIDList reports whether a violation id falls under a marker's scope;
// an empty scope suppresses everything
func matchesIDList(ids []string, violationID string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == violationID {
			return true
		}
	}
	return false
}
