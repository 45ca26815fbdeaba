// Package confidence combines retrieval similarity, citation usage,
// query quality and answer length into one calibrated confidence value.
// Scoring is a pure function with no I/O.
package confidence

import (
	"strings"

	"github.com/averix/groundling/model"
)

// Weights are the fixed convex-combination weights of the final score.
// They are contract values the rest of the system (warning banners,
// audit trails) depends on; keep them injectable but do not retune them
// casually.
type Weights struct {
	Similarity   float64
	Citation     float64
	QueryQuality float64
	Length       float64
}

// DefaultWeights returns the fixed 0.4/0.3/0.2/0.1 weighting.
func DefaultWeights() Weights {
	return Weights{
		Similarity:   0.4,
		Citation:     0.3,
		QueryQuality: 0.2,
		Length:       0.1,
	}
}

// LowConfidenceThreshold marks answers whose final score falls below it.
const LowConfidenceThreshold = 0.30

// Scorer computes ConfidenceBreakdowns.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the default contract weights.
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// NewScorerWithWeights creates a scorer with custom weights; the weights
// must still sum to 1 to keep the final score in [0,1].
func NewScorerWithWeights(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score combines the four components into a final confidence value.
func (s *Scorer) Score(passages []*model.RetrievedPassage, answer *model.GeneratedAnswer, profile *model.QueryProfile) model.ConfidenceBreakdown {
	similarity := similarityComponent(passages)
	citation := citationComponent(len(answer.Citations), len(passages))
	quality := 0.0
	if profile != nil {
		quality = clamp01(profile.QualityScore)
	}
	length := lengthComponent(wordCount(answer.Text))

	final := clamp01(s.weights.Similarity*similarity +
		s.weights.Citation*citation +
		s.weights.QueryQuality*quality +
		s.weights.Length*length)

	return model.ConfidenceBreakdown{
		SimilarityComponent:   similarity,
		CitationComponent:     citation,
		QueryQualityComponent: quality,
		LengthComponent:       length,
		FinalScore:            final,
		LowConfidence:         final < LowConfidenceThreshold,
	}
}

// similarityComponent rewards both a strong best match and overall
// corroboration: 0.7 * top-1 + 0.3 * mean of the retrieved set.
func similarityComponent(passages []*model.RetrievedPassage) float64 {
	if len(passages) == 0 {
		return 0
	}
	top1 := passages[0].Similarity
	sum := 0.0
	for _, p := range passages {
		if p.Similarity > top1 {
			top1 = p.Similarity
		}
		sum += p.Similarity
	}
	mean := sum / float64(len(passages))
	return clamp01(0.7*top1 + 0.3*mean)
}

// citationComponent rewards citing the retrieved passages, with a capped
// bonus for citing more than one source.
func citationComponent(citationCount, passageCount int) float64 {
	if passageCount < 1 {
		passageCount = 1
	}
	ratio := float64(citationCount) / float64(passageCount)
	if ratio > 1 {
		ratio = 1
	}

	extra := citationCount - 1
	if extra < 0 {
		extra = 0
	}
	bonus := 0.05 * float64(extra)
	if bonus > 0.2 {
		bonus = 0.2
	}

	return clamp01(0.8*ratio + bonus)
}

// lengthComponent is piecewise on word count; 150-300 words is the
// empirically ideal band, with both terse and rambling answers penalized.
func lengthComponent(words int) float64 {
	switch {
	case words < 20:
		return 0.3
	case words < 50:
		return 0.6
	case words < 150:
		return 1.0
	case words < 300:
		return 0.9
	default:
		return 0.7
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
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
