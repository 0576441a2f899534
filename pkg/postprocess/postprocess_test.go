package postprocess

import (
	"math"
	"testing"

	"github.com/qualab/subjqual/pkg/qtypes"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNormalizeZeroMeanUnitVariance(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	Normalize(values)
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if !almostEqual(mean, 0, 1e-9) {
		t.Errorf("mean after Normalize = %v, want 0", mean)
	}
	var variance float64
	for _, v := range values {
		variance += v * v
	}
	variance /= float64(len(values) - 1)
	if !almostEqual(variance, 1, 1e-6) {
		t.Errorf("variance after Normalize = %v, want 1", variance)
	}
}

func TestApplyScalesStdByAffineSlope(t *testing.T) {
	result := &qtypes.Result{
		QualityScores:    []float64{1, 2, 3},
		QualityScoresStd: []float64{0.1, 0.2, 0.3},
	}
	cfg := qtypes.ModelConfig{TransformFinal: &qtypes.Affine{P1: 2, P0: 10}}
	out := Apply(result, cfg)
	if out.QualityScores[0] != 12 {
		t.Errorf("QualityScores[0] = %v, want 12", out.QualityScores[0])
	}
	if !almostEqual(out.QualityScoresStd[0], 0.2, 1e-9) {
		t.Errorf("QualityScoresStd[0] = %v, want 0.2", out.QualityScoresStd[0])
	}
	if result.QualityScores[0] != 1 {
		t.Error("Apply must not mutate the input result")
	}
}

func TestApplyNormalizeFinalZeroMean(t *testing.T) {
	result := &qtypes.Result{QualityScores: []float64{1, 2, 3, 4, 5}}
	cfg := qtypes.ModelConfig{NormalizeFinal: true}
	out := Apply(result, cfg)
	var mean float64
	for _, v := range out.QualityScores {
		mean += v
	}
	mean /= float64(len(out.QualityScores))
	if !almostEqual(mean, 0, 1e-9) {
		t.Errorf("mean = %v, want 0", mean)
	}
}
