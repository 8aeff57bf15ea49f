package session

import (
	"fmt"
	"strings"
)

// MatchPolicy decides per-slot correctness from the backend's correct nouns.
type MatchPolicy string

const (
	// MatchSet marks a slot correct when its answer appears anywhere in the
	// correct-noun list. Duplicated or swapped correct words still pass.
	MatchSet MatchPolicy = "set"
	// MatchPositional marks a slot correct only when it equals the noun at the
	// same position.
	MatchPositional MatchPolicy = "positional"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MatchSet, MatchPositional:
		return p, nil
	case "":
		return MatchSet, nil
	default:
		return "", fmt.Errorf("unknown match policy %q", s)
	}
}

// Mark compares trimmed, case-folded answers with the correct nouns.
func (p MatchPolicy) Mark(answers, correct []string) []bool {
	status := make([]bool, len(answers))
	if p == MatchPositional {
		for i, ans := range answers {
			status[i] = i < len(correct) && normalize(ans) == strings.ToLower(correct[i])
		}
		return status
	}

	set := make(map[string]struct{}, len(correct))
	for _, noun := range correct {
		set[strings.ToLower(noun)] = struct{}{}
	}
	for i, ans := range answers {
		_, status[i] = set[normalize(ans)]
	}
	return status
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
