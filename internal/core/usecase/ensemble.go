package usecase

import "github.com/oncoassist/triage/internal/core/domain"

// EnsembleWeights is the fixed contribution of each classifier to the
// combined vote.
type EnsembleWeights struct {
	Semantic   float64
	Keyword    float64
	Structural float64
}

// EnsembleAggregator combines classifier signals by weighted vote. An
// absent signal is omitted entirely; it does not vote with zero.
type EnsembleAggregator struct {
	weights EnsembleWeights
}

func NewEnsembleAggregator(weights EnsembleWeights) *EnsembleAggregator {
	return &EnsembleAggregator{weights: weights}
}

func (a *EnsembleAggregator) Combine(semantic, keyword, structural *domain.ClassifierSignal) domain.ClassifierSignal {
	scores := make(map[domain.Category]float64, len(domain.Categories))
	accumulate(scores, semantic, a.weights.Semantic)
	accumulate(scores, keyword, a.weights.Keyword)
	accumulate(scores, structural, a.weights.Structural)

	var winner domain.Category
	bestScore := -1.0
	for _, category := range domain.Categories {
		score, ok := scores[category]
		if !ok {
			continue
		}
		if score > bestScore {
			winner = category
			bestScore = score
		}
	}

	if bestScore < 0 {
		return domain.ClassifierSignal{
			Category:   domain.CategoryRadiology,
			Confidence: keywordFallbackConfidence,
		}
	}

	confidence := bestScore
	if confidence > domain.MaxConfidence {
		confidence = domain.MaxConfidence
	}
	return domain.ClassifierSignal{Category: winner, Confidence: confidence}
}

func accumulate(scores map[domain.Category]float64, signal *domain.ClassifierSignal, weight float64) {
	if signal == nil {
		return
	}
	scores[signal.Category] += weight * signal.Confidence
}
