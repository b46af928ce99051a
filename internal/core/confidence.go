package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Confidence weights. The order in which they are applied matters: the
// bonus is decided on the running total after the poster credit.
const (
	exactTitleWeight   = 0.5
	partialTitleWeight = 0.3
	exactYearWeight    = 0.3
	nearYearWeight     = 0.15
	missingYearWeight  = 0.15
	posterWeight       = 0.05
	strongMatchBonus   = 0.15
	strongMatchFloor   = 0.7

	// scoreEpsilon absorbs float drift when comparing against strongMatchFloor.
	scoreEpsilon = 1e-9
)

// NormalizeTitle folds a title for comparison: diacritics removed,
// lower-cased, punctuation stripped and whitespace collapsed.
func NormalizeTitle(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CalculateMatchConfidence scores how likely a catalog candidate is the title
// the user meant. The result is in [0,1].
//
//   - title: 0.5 for an exact normalized match, else up to 0.3 by word overlap
//   - year: 0.3 exact, 0.15 within one year, 0.15 when the user gave no year
//   - poster: 0.05 when the candidate has artwork
//   - bonus: 0.15 once the running score reaches 0.7
func CalculateMatchConfidence(candidateTitle string, candidateYear *int, originalTitle string, originalYear *int, hasPoster bool) float64 {
	cand := NormalizeTitle(candidateTitle)
	orig := NormalizeTitle(originalTitle)

	score := 0.0
	if cand != "" && cand == orig {
		score += exactTitleWeight
	} else {
		score += partialTitleWeight * diceCoefficient(cand, orig)
	}

	switch {
	case originalYear == nil:
		score += missingYearWeight
	case candidateYear != nil:
		diff := *candidateYear - *originalYear
		if diff < 0 {
			diff = -diff
		}
		if diff == 0 {
			score += exactYearWeight
		} else if diff == 1 {
			score += nearYearWeight
		}
	}

	if hasPoster {
		score += posterWeight
	}

	if score >= strongMatchFloor-scoreEpsilon {
		score += strongMatchBonus
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// diceCoefficient returns 2|A∩B| / (|A|+|B|) over the word sets of a and b.
func diceCoefficient(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA)+len(setB) == 0 {
		return 0
	}

	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
