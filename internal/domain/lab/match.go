package lab

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from keyword matching; common English filler plus terms
// that appear in nearly every lab blurb and would otherwise dominate scores.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"we": {}, "with": {},
	"research": {}, "lab": {}, "labs": {}, "group": {}, "groups": {},
	"university": {}, "department": {}, "students": {},
}

// Match is a lab scored against a student's keywords.
type Match struct {
	Lab      Lab
	Score    int
	Overlap  []string
}

// RankByKeywords scores labs by naive keyword overlap with the student's
// interest/skill terms. Tokens from the lab name count double. Labs with a
// zero score are dropped; ties are broken by lab name for stable output.
func RankByKeywords(keywords []string, labs []Lab, limit int) []Match {
	want := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		for _, tok := range Tokenize(k) {
			want[tok] = struct{}{}
		}
	}
	if len(want) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(labs))
	for _, l := range labs {
		score := 0
		seen := make(map[string]struct{})
		var overlap []string

		hit := func(tok string, weight int) {
			if _, ok := want[tok]; !ok {
				return
			}
			if _, dup := seen[tok]; dup {
				return
			}
			seen[tok] = struct{}{}
			score += weight
			overlap = append(overlap, tok)
		}

		for _, tok := range Tokenize(l.Name) {
			hit(tok, 2)
		}
		for _, tok := range Tokenize(l.Description) {
			hit(tok, 1)
		}

		if score > 0 {
			sort.Strings(overlap)
			matches = append(matches, Match{Lab: l, Score: score, Overlap: overlap})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Lab.Name < matches[j].Lab.Name
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Tokenize splits text into lowercase alphanumeric tokens, dropping
// stopwords and single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}
