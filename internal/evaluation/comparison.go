// Package evaluation measures transcription accuracy against hand-checked
// reference records.
package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ibebio/herb-transcribe/internal/models"
)

// Match methods.
const (
	MethodExact           = "exact"
	MethodSubstring       = "substring"
	MethodFuzzyHigh       = "fuzzy_high"
	MethodFuzzyMedium     = "fuzzy_medium"
	MethodNoMatch         = "no_match"
	MethodBothMissing     = "both_missing"
	MethodExpectedMissing = "expected_missing"
	MethodActualMissing   = "actual_missing"
)

// FieldMatch is the comparison result for a single field.
type FieldMatch struct {
	Expected string  `yaml:"expected"`
	Actual   string  `yaml:"actual"`
	Score    float64 `yaml:"score"` // 0.0 to 1.0
	Method   string  `yaml:"method"`
	Distance int     `yaml:"distance"`
}

// Comparison holds the per-field comparison of one transcription.
type Comparison struct {
	Fields           map[string]FieldMatch `yaml:"fields"`
	OverallScore     float64               `yaml:"overallscore"`
	FieldsMatched    int                   `yaml:"fieldsmatched"`
	FieldsMissing    int                   `yaml:"fieldsmissing"`
	FieldsIncorrect  int                   `yaml:"fieldsincorrect"`
	LevenshteinTotal int                   `yaml:"levenshteintotal"`
}

// FieldKey returns the comparison key of a field, e.g. "label.Date".
func FieldKey(group, key string) string {
	return group + "." + key
}

// CompareRecords compares every field of reference with generated.
// Fields empty on both sides are not scored.
func CompareRecords(reference, generated *models.Record) *Comparison {
	c := &Comparison{Fields: make(map[string]FieldMatch)}

	groups := []struct {
		name string
		keys []string
		ref  models.Fields
		gen  models.Fields
	}{
		{"label", models.LabelKeys, reference.Label, generated.Label},
		{"extracted_metadata", models.MetadataKeys, reference.Metadata, generated.Metadata},
	}

	total := 0.0
	scored := 0
	for _, g := range groups {
		for _, key := range g.keys {
			match := CompareField(g.ref[key], g.gen[key])
			c.Fields[FieldKey(g.name, key)] = match
			c.LevenshteinTotal += match.Distance

			switch match.Method {
			case MethodBothMissing:
				continue
			case MethodExact, MethodSubstring, MethodFuzzyHigh:
				c.FieldsMatched++
			case MethodActualMissing:
				c.FieldsMissing++
			default:
				c.FieldsIncorrect++
			}
			total += match.Score
			scored++
		}
	}

	if scored > 0 {
		c.OverallScore = total / float64(scored)
	}
	return c
}

// CompareField scores actual against expected with fuzzy matching.
func CompareField(expected, actual string) FieldMatch {
	match := FieldMatch{
		Expected: expected,
		Actual:   actual,
	}

	expNorm := normalizeForComparison(expected)
	actNorm := normalizeForComparison(actual)

	switch {
	case expNorm == "" && actNorm == "":
		match.Score = 1.0
		match.Method = MethodBothMissing
		return match
	case expNorm == "":
		match.Method = MethodExpectedMissing
		match.Distance = len([]rune(actNorm))
		return match
	case actNorm == "":
		match.Method = MethodActualMissing
		match.Distance = len([]rune(expNorm))
		return match
	}

	if expNorm == actNorm {
		match.Score = 1.0
		match.Method = MethodExact
		return match
	}

	match.Distance = levenshteinDistance(expNorm, actNorm)

	if strings.Contains(actNorm, expNorm) || strings.Contains(expNorm, actNorm) {
		match.Score = 0.8
		match.Method = MethodSubstring
		return match
	}

	similarity := calculateSimilarity(expNorm, actNorm)
	match.Score = similarity
	if similarity > 0.7 {
		match.Method = MethodFuzzyHigh
	} else if similarity > 0.4 {
		match.Method = MethodFuzzyMedium
	} else {
		match.Method = MethodNoMatch
	}
	return match
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// normalizeForComparison lowercases text, drops punctuation and collapses
// whitespace. Description line breaks are written as a literal \n by the
// model and count as whitespace.
func normalizeForComparison(text string) string {
	text = strings.ReplaceAll(text, `\n`, " ")
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// calculateSimilarity returns a 0.0 to 1.0 ratio based on Levenshtein
// distance.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	maxLen := max(len(r1), len(r2))
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// levenshteinDistance counts rune edits between s1 and s2.
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// String renders a one-line description of the match.
func (m FieldMatch) String() string {
	return fmt.Sprintf("%.2f (%s)", m.Score, m.Method)
}
