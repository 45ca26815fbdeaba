package analyze

import (
	"strings"
	"unicode"
)

// QualityWeights combines the three well-formedness heuristics. The
// defaults are contract values; they are kept in a struct so they stay
// tunable without touching the scoring code.
type QualityWeights struct {
	CharPlausibility   float64
	WordCoherence      float64
	LengthAppropriancy float64
}

// DefaultQualityWeights returns the fixed 0.4/0.4/0.2 weighting.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		CharPlausibility:   0.4,
		WordCoherence:      0.4,
		LengthAppropriancy: 0.2,
	}
}

// qualityScore combines the heuristics into a [0,1] well-formedness score.
func qualityScore(query string, w QualityWeights) float64 {
	score := w.CharPlausibility*charPlausibility(query) +
		w.WordCoherence*wordCoherence(query) +
		w.LengthAppropriancy*lengthAppropriateness(query)
	return clamp01(score)
}

// charPlausibility scores the character distribution. Natural-language
// queries are dominated by letters, digits, spaces and light punctuation;
// long runs of a repeated character indicate keyboard mashing.
func charPlausibility(query string) float64 {
	runes := []rune(query)
	if len(runes) == 0 {
		return 0
	}

	plausible := 0
	longestRun := 1
	run := 1
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune("?!.,'-\"", r) {
			plausible++
		}
		if i > 0 && runes[i] == runes[i-1] {
			run++
			if run > longestRun {
				longestRun = run
			}
		} else {
			run = 1
		}
	}

	score := float64(plausible) / float64(len(runes))
	if longestRun > 4 {
		score -= 0.2 * float64(longestRun-4)
	}
	return clamp01(score)
}

// wordCoherence scores the ratio of tokens that look like real words:
// letter-based, vowel-bearing and of sane length.
func wordCoherence(query string) float64 {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return 0
	}

	coherent := 0
	for _, token := range tokens {
		if looksLikeWord(token) {
			coherent++
		}
	}
	return float64(coherent) / float64(len(tokens))
}

func looksLikeWord(token string) bool {
	trimmed := strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if trimmed == "" || len([]rune(trimmed)) > 24 {
		return false
	}

	letters := 0
	vowels := 0
	for _, r := range strings.ToLower(trimmed) {
		if unicode.IsLetter(r) {
			letters++
			if strings.ContainsRune("aeiouy", r) {
				vowels++
			}
		}
	}
	if letters == 0 {
		// Pure numbers are fine in a question.
		return true
	}
	return vowels > 0
}

// lengthAppropriateness penalizes both very short and degenerate very
// long queries. The sweet spot is a question of a few to ~25 tokens.
func lengthAppropriateness(query string) float64 {
	n := len(strings.Fields(query))
	switch {
	case n == 0:
		return 0
	case n < 3:
		return 0.5
	case n <= 25:
		return 1.0
	case n <= 60:
		return 0.7
	default:
		return 0.4
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
