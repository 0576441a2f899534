package mle

import (
	"testing"

	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

// liveDmosTensor mirrors the LIVE dataset's hidden-reference layout: even
// stimuli are references (no ref_stimulus_id, left out of scoring),
// odd stimuli are distorted with ref_stimulus_id pointing at the
// preceding reference.
func liveDmosTensor(t *testing.T) *tensor.Tensor {
	t.Helper()
	values := [][]float64{
		{5, 4, 5, 2, 5, 3},
		{5, 3, 5, 1, 5, 4},
		{5, 5, 5, 3, 5, 2},
	}
	observed := [][]bool{
		{true, true, true, true, true, true},
		{true, true, true, true, true, true},
		{true, true, true, true, true, true},
	}
	content := []int{0, 0, 1, 1, 2, 2}
	ref := []int{-1, 0, -1, 2, -1, 4}
	ten, err := tensor.New(values, observed, content, ref, 3, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ten
}

func TestLiveDMOSAnchorsGrandMeanAt50(t *testing.T) {
	ten := liveDmosTensor(t)
	result, err := LiveDMOS(ten, qtypes.ModelConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	var n int
	for j, r := range ten.Ref {
		if r == -1 {
			continue
		}
		sum += result.QualityScores[j]
		n++
	}
	mean := sum / float64(n)
	if !almostEqual(mean, 50.0, 1e-6) {
		t.Errorf("mean(quality_scores over scored stimuli) = %v, want 50.0", mean)
	}
}

func TestLiveDMOSNormalizeFinalZeroMean(t *testing.T) {
	ten := liveDmosTensor(t)
	result, err := LiveDMOS(ten, qtypes.ModelConfig{NormalizeFinal: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, v := range result.QualityScores {
		sum += v
	}
	mean := sum / float64(len(result.QualityScores))
	if !almostEqual(mean, 0, 1e-9) {
		t.Errorf("mean(quality_scores) = %v, want 0 after normalize_final", mean)
	}
}

func TestLiveDMOSRejectsDscoreMode(t *testing.T) {
	ten := liveDmosTensor(t)
	if _, err := LiveDMOS(ten, qtypes.ModelConfig{DscoreMode: true}); err == nil {
		t.Fatal("expected InvalidCombination for dscore_mode on LiveDMOS")
	}
}
