// Package automation matches incoming chat messages against keyword rules
// and keeps the per-rule trigger bookkeeping.
package automation

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Match returns the index of the first rule with a trigger phrase contained
// in message, compared case-insensitively. Rules are tried in list order and
// triggers in rule order, so the earliest rule wins even when a later rule's
// trigger appears earlier in the text. Activity flags are not consulted.
func Match(message string, rules []types.AutomationRule) (int, bool) {
	text := fold(message)
	for i, r := range rules {
		for _, t := range r.Triggers {
			t = fold(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if strings.Contains(text, t) {
				return i, true
			}
		}
	}
	return -1, false
}

// ParseTriggers splits a comma-separated trigger list, trimming and
// case-folding each phrase the way Match folds messages, and dropping empty
// ones.
func ParseTriggers(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = fold(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fold applies Unicode case folding. A Caser is stateful, so one is built per
// call.
func fold(s string) string {
	return cases.Fold().String(s)
}
