package aggregate

import (
	"math"
	"testing"

	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func fullyObservedTensor(t *testing.T) *tensor.Tensor {
	t.Helper()
	values := [][]float64{
		{5, 4, 3},
		{4, 5, 2},
		{5, 3, 3},
		{3, 4, 4},
	}
	observed := [][]bool{
		{true, true, true},
		{true, true, true},
		{true, true, true},
		{true, true, true},
	}
	ten, err := tensor.New(values, observed, []int{0, 0, 1}, []int{-1, -1, -1}, 2, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ten
}

func TestMOSEqualsArithmeticColumnMean(t *testing.T) {
	ten := fullyObservedTensor(t)
	result, err := MOS(ten, qtypes.ModelConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{4.25, 4.0, 3.0}
	for j, w := range want {
		if !almostEqual(result.QualityScores[j], w, 1e-9) {
			t.Errorf("QualityScores[%d] = %v, want %v", j, result.QualityScores[j], w)
		}
	}
}

func TestBiasremvBiasSumsToZero(t *testing.T) {
	ten := fullyObservedTensor(t)
	result, err := Biasremv(ten, qtypes.ModelConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, b := range result.ObserverBias {
		sum += b
	}
	if !almostEqual(sum, 0, 1e-9) {
		t.Errorf("sum(ObserverBias) = %v, want 0", sum)
	}
}

func TestNormalizeFinalZeroMeanUnitVariance(t *testing.T) {
	ten := fullyObservedTensor(t)
	result, err := MOS(ten, qtypes.ModelConfig{NormalizeFinal: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var mean float64
	for _, v := range result.QualityScores {
		mean += v
	}
	mean /= float64(len(result.QualityScores))
	if !almostEqual(mean, 0, 1e-9) {
		t.Errorf("mean(QualityScores) = %v, want 0", mean)
	}
}

func TestDMOSAnchorsNoDistortionAtScaleMax(t *testing.T) {
	values := [][]float64{
		{5, 3},
		{4, 2},
	}
	observed := [][]bool{{true, true}, {true, true}}
	ref := 0
	zero := -1
	ten, err := tensor.New(values, observed, []int{0, 0}, []int{zero, ref}, 1, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := DMOS(ten, qtypes.ModelConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// stimulus 1: O[s,1] <- O[s,0] - O[s,1] + 5
	want := (5.0 - 3.0 + 5.0 + 4.0 - 2.0 + 5.0) / 2
	if !almostEqual(result.QualityScores[1], want, 1e-9) {
		t.Errorf("DMOS quality_scores[1] = %v, want %v", result.QualityScores[1], want)
	}
}

func TestSubjrejFailsOnSubjectWithFewRatings(t *testing.T) {
	values := [][]float64{{5}}
	observed := [][]bool{{true}}
	ten, err := tensor.New(values, observed, []int{0}, []int{-1}, 1, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Subjrej(ten, qtypes.ModelConfig{}); err == nil {
		t.Fatal("expected InsufficientData for a subject with a single rating")
	}
}

func TestLeastSquaresModelBiasSumsToZero(t *testing.T) {
	ten := fullyObservedTensor(t)
	result, err := LeastSquaresModel(ten)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, b := range result.ObserverBias {
		sum += b
	}
	if !almostEqual(sum, 0, 1e-6) {
		t.Errorf("sum(ObserverBias) = %v, want 0", sum)
	}
	if len(result.QualityScores) != 3 {
		t.Fatalf("len(QualityScores) = %d, want 3", len(result.QualityScores))
	}
}

func TestPerSubjectOneRowPerSubject(t *testing.T) {
	ten := fullyObservedTensor(t)
	summary := PerSubject(ten)
	if len(summary.Mean) != 4 {
		t.Fatalf("len(Mean) = %d, want 4", len(summary.Mean))
	}
	if !almostEqual(summary.Mean[0], 4.0, 1e-9) {
		t.Errorf("Mean[0] = %v, want 4.0", summary.Mean[0])
	}
}
