package code

import (
	"sort"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// MapFunctions correlates claimed units_list entries (expected form
// "func:<name>") against diff.json's FunctionsModified, applying the
// priority-ordered matching rules: exact identifier, case-insensitive
// identifier, substring containment, then Levenshtein ratio >= 0.7.
func MapFunctions(claimedUnits []string, diff gate.DiffArtifact) gate.FunctionMapArtifact {
	var claimed []string
	for _, u := range claimedUnits {
		if strings.HasPrefix(u, "func:") {
			claimed = append(claimed, strings.TrimPrefix(u, "func:"))
		}
	}

	usedDiff := map[string]bool{}
	var matches []gate.FunctionMatch
	var unmatchedClaims []string

	for _, name := range claimed {
		diffFn, certainty, ok := bestMatch(name, diff.FunctionsModified, usedDiff)
		if !ok {
			unmatchedClaims = append(unmatchedClaims, "func:"+name)
			continue
		}
		usedDiff[diffFn] = true
		matches = append(matches, gate.FunctionMatch{
			ClaimUnit:    "func:" + name,
			DiffFunction: diffFn,
			Certainty:    certainty,
		})
	}

	var unmatchedDiffs []string
	for _, fn := range diff.FunctionsModified {
		if !usedDiff[fn] {
			unmatchedDiffs = append(unmatchedDiffs, fn)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ClaimUnit < matches[j].ClaimUnit })
	sort.Strings(unmatchedClaims)
	sort.Strings(unmatchedDiffs)

	return gate.FunctionMapArtifact{
		Matches:         matches,
		UnmatchedClaims: unmatchedClaims,
		UnmatchedDiffs:  unmatchedDiffs,
	}
}

func bestMatch(name string, candidates []string, used map[string]bool) (string, string, bool) {
	for _, c := range candidates {
		if !used[c] && c == name {
			return c, "certain", true
		}
	}
	for _, c := range candidates {
		if !used[c] && strings.EqualFold(c, name) {
			return c, "certain", true
		}
	}
	for _, c := range candidates {
		if !used[c] && strings.Contains(strings.ToLower(c), strings.ToLower(name)) {
			return c, "fuzzy", true
		}
	}

	best := ""
	bestRatio := 0.0
	for _, c := range candidates {
		if used[c] {
			continue
		}
		ratio := levenshteinRatio(name, c)
		if ratio > bestRatio {
			bestRatio = ratio
			best = c
		}
	}
	if bestRatio >= 0.7 {
		return best, "fuzzy", true
	}
	return "", "", false
}

// levenshteinRatio returns 1 - (edit distance / max length), so identical
// strings score 1.0 and completely disjoint strings score near 0.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	dist := prev[lb]
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
