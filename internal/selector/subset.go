package selector

import (
	"sort"
	"strings"

	"github.com/backmassage/fishframes/internal/config"
)

// GroupUnknown tags projects that match no alias group.
const GroupUnknown = "unknown"

// Filter is a resolved subset specifier.
type Filter struct {
	all    bool
	tokens []string
}

// ResolveTokens expands the subset specifier. Tokens naming an alias group
// are replaced by the group's tokens; other tokens are used verbatim.
// "all" anywhere selects every project. Matching is case-insensitive.
func ResolveTokens(subset []string, aliases map[string][]string) Filter {
	var f Filter
	seen := map[string]bool{}
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		f.tokens = append(f.tokens, tok)
	}
	for _, s := range subset {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == config.SubsetAll {
			f.all = true
			continue
		}
		if group, ok := aliases[key]; ok {
			for _, tok := range group {
				add(tok)
			}
			continue
		}
		add(key)
	}
	return f
}

// All reports whether the filter accepts every project.
func (f Filter) All() bool { return f.all }

// Tokens returns the lower-cased search tokens.
func (f Filter) Tokens() []string { return f.tokens }

// Match reports whether pid contains at least one token.
func (f Filter) Match(pid string) bool {
	if f.all {
		return true
	}
	return MatchName(pid, f.tokens)
}

// MatchName reports whether name contains any of tokens, ignoring case.
func MatchName(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// Classify returns the first alias group, in name order, whose tokens
// match pid, or GroupUnknown.
func Classify(pid string, aliases map[string][]string) string {
	groups := make([]string, 0, len(aliases))
	for g := range aliases {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		if MatchName(pid, aliases[g]) {
			return g
		}
	}
	return GroupUnknown
}
