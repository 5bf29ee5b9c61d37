// Package faculty cleans up free-text faculty names: grouping of spelling variations,
// scoped renames and removal of misplaced halltickets.
package faculty

import (
	"regexp"
	"sort"
	"strings"

	"github.com/trezcool/feedback/core"
)

var (
	hallticketRegex = regexp.MustCompile(`^25C01A73\d{2}$`)
	properCaseRegex = regexp.MustCompile(`^[A-Z][a-z]+`)
	blankRegex      = regexp.MustCompile(`[.\s]`)

	// matched as substrings, so "na" also rejects names like "Narayana"
	invalidTokens = []string{
		"unknown", "not assigned", "not available", "na", "n/a",
		"tba", "to be announced", "pending", "null", "undefined",
	}
)

// NormalizeKey is the grouping key of a name: lowercased, without whitespace nor periods, and with
// every "dr" and "prof" removed. Titles are stripped as substrings, so "Sandra" and "Sana" collide.
func NormalizeKey(name string) string {
	key := blankRegex.ReplaceAllString(strings.ToLower(name), "")
	key = strings.ReplaceAll(key, "dr", "")
	key = strings.ReplaceAll(key, "prof", "")
	return key
}

// canonicalScore rates how presentable a spelling is.
func canonicalScore(name string) int {
	var score int
	if strings.Contains(name, ".") {
		score += 2
	}
	if name == strings.ToUpper(name) {
		score--
	}
	if properCaseRegex.MatchString(name) {
		score++
	}
	if strings.Contains(name, "Dr.") {
		score += 3
	}
	if strings.Contains(name, "Prof.") {
		score += 3
	}
	if len(name) > 3 {
		score++
	}
	return score
}

// SuggestCanonical returns the best scored variant; ties go to the first one.
func SuggestCanonical(variants []string) string {
	var (
		best      string
		bestScore int
	)
	for i, v := range variants {
		if score := canonicalScore(v); i == 0 || score > bestScore {
			best, bestScore = v, score
		}
	}
	return best
}

// VariationGroup is a set of spellings sharing a NormalizeKey.
type VariationGroup struct {
	Key        string   `json:"key"`
	Variations []string `json:"variations"`
	Suggested  string   `json:"suggested"`
}

// GroupVariations groups the names by NormalizeKey and keeps the groups holding more than one spelling.
func GroupVariations(names []string) []VariationGroup {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = core.CleanString(n); n != "" && !core.IsDigits(n) {
			cleaned = append(cleaned, n)
		}
	}
	sort.Strings(cleaned)

	var keys []string
	groups := make(map[string][]string)
	for _, n := range cleaned {
		key := NormalizeKey(n)
		variants, ok := groups[key]
		if !ok {
			keys = append(keys, key)
		}
		if !contains(variants, n) {
			groups[key] = append(variants, n)
		}
	}

	var result []VariationGroup
	for _, key := range keys {
		variants := groups[key]
		if len(variants) < 2 {
			continue
		}
		result = append(result, VariationGroup{Key: key, Variations: variants, Suggested: SuggestCanonical(variants)})
	}
	return result
}

// IsHallticket reports whether a faculty field actually holds a student hallticket.
func IsHallticket(name string) bool {
	return hallticketRegex.MatchString(core.CleanString(name))
}

// IsListable reports whether name looks like a real faculty name.
func IsListable(name string) bool {
	name = core.CleanString(name)
	if name == "" || IsHallticket(name) || core.IsDigits(name) {
		return false
	}
	lower := strings.ToLower(name)
	for _, token := range invalidTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return core.HasLetter(name)
}

// IsLab reports whether a subject is a lab ("lab" anywhere in its name, any case).
func IsLab(subject string) bool {
	return strings.Contains(strings.ToLower(subject), "lab")
}

// Listable returns the distinct listable names, sorted.
func Listable(names []string) []string {
	seen := make(map[string]bool, len(names))
	list := make([]string, 0, len(names))
	for _, n := range names {
		n = core.CleanString(n)
		if !IsListable(n) || seen[n] {
			continue
		}
		seen[n] = true
		list = append(list, n)
	}
	sort.Strings(list)
	return list
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
