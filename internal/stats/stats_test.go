package stats

import (
	"math"
	"testing"

	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

func buildTensor(t *testing.T) *tensor.Tensor {
	t.Helper()
	values := [][]float64{
		{1, 2},
		{2, math.NaN()},
		{3, 4},
	}
	observed := [][]bool{
		{true, true},
		{true, false},
		{true, true},
	}
	ten, err := tensor.New(values, observed, []int{0, 0}, []int{-1, -1}, 1, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ten
}

func TestColumnMeanIgnoresMissing(t *testing.T) {
	ten := buildTensor(t)
	if got := ColumnMean(ten, 1); got != 3 {
		t.Errorf("ColumnMean(1) = %v, want 3", got)
	}
	if got := ColumnMean(ten, 0); got != 2 {
		t.Errorf("ColumnMean(0) = %v, want 2", got)
	}
}

func TestColumnStdMatchesSampleFormula(t *testing.T) {
	ten := buildTensor(t)
	got := ColumnStd(ten, 0)
	want := math.Sqrt(1.0) // {1,2,3}: variance=1, std=1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ColumnStd(0) = %v, want %v", got, want)
	}
}

func TestCountObserved(t *testing.T) {
	ten := buildTensor(t)
	if got := CountObserved(ten, 1); got != 2 {
		t.Errorf("CountObserved(1) = %d, want 2", got)
	}
}
