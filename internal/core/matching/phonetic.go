package matching

import "strings"

// rewrite is one step of the phonetic normalization pipeline.
type rewrite struct {
	from, to string
	suffix   bool // only strip from the end of the string
}

// phoneticRules run strictly in order; each step sees the output of the
// previous one. Reordering changes results.
var phoneticRules = []rewrite{
	{from: "puram", suffix: true},
	{from: "pur", suffix: true},
	{from: "bad", suffix: true},
	{from: "abad", suffix: true},
	{from: "nagar", suffix: true},
	{from: "pally", suffix: true},
	{from: "palli", suffix: true},
	{from: "y", to: "i"},
	{from: "ee", to: "i"},
	{from: "oo", to: "u"},
	{from: "aa", to: "a"},
	{from: "th", to: "t"},
	{from: "dh", to: "d"},
	{from: "bh", to: "b"},
	{from: "gh", to: "g"},
	{from: "kh", to: "k"},
	{from: "ph", to: "f"},
	{from: "sh", to: "s"},
	{from: "ch", to: "c"},
	{from: "w", to: "v"},
	{from: "z", to: "s"},
}

// NormalizeForPhonetics folds common transliteration variants of Indian
// place names onto one canonical spelling, so "Rayachoty" and "Rayachoti"
// both become "raiacot".
func NormalizeForPhonetics(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	for _, r := range phoneticRules {
		if r.suffix {
			s = strings.TrimSuffix(s, r.from)
			continue
		}
		s = strings.ReplaceAll(s, r.from, r.to)
	}

	s = collapseRepeats(s)
	return trimTrailingVowel(s)
}

// collapseRepeats squeezes runs of the same character to one.
func collapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func trimTrailingVowel(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsRune("aeiou", rune(s[len(s)-1])) {
		return s[:len(s)-1]
	}
	return s
}
