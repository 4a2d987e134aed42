package ranking

import (
	"errors"
	"fmt"
	"math"
)

// NormalizeMethod selects how raw scores are mapped onto the 0-100 scale
type NormalizeMethod string

const (
	NormalizeMinMax NormalizeMethod = "minmax"
	NormalizeZScore NormalizeMethod = "zscore"
)

// ErrInvalidMethod is returned for an unrecognized normalization method
var ErrInvalidMethod = errors.New("unknown normalization method")

// Normalize maps raw scores onto a common 0-100 scale so heterogeneous
// signals can be linearly combined. An empty input yields an empty output.
// When the inputs carry no information to discriminate (all equal, or zero
// deviation), every element maps to 50.0.
func Normalize(scores []float64, method NormalizeMethod) ([]float64, error) {
	if len(scores) == 0 {
		return []float64{}, nil
	}

	switch method {
	case NormalizeMinMax:
		return normalizeMinMax(scores), nil
	case NormalizeZScore:
		return normalizeZScore(scores), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
}

func normalizeMinMax(scores []float64) []float64 {
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range out {
			out[i] = 50.0
		}
		return out
	}

	for i, s := range scores {
		out[i] = 100 * (s - minScore) / (maxScore - minScore)
	}
	return out
}

func normalizeZScore(scores []float64) []float64 {
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	std := math.Sqrt(variance / float64(len(scores)))

	out := make([]float64, len(scores))
	if std == 0 {
		for i := range out {
			out[i] = 50.0
		}
		return out
	}

	// Map z-scores to 0-100 assuming most fall within [-3, +3], then clamp
	for i, s := range scores {
		z := (s - mean) / std
		v := 50 + z*50/3
		out[i] = math.Min(100, math.Max(0, v))
	}
	return out
}
