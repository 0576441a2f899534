package perturb

import (
	"testing"

	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

func fullyObservedTensor(t *testing.T) *tensor.Tensor {
	t.Helper()
	s, e := 6, 4
	values := make([][]float64, s)
	observed := make([][]bool, s)
	for i := range values {
		values[i] = make([]float64, e)
		observed[i] = make([]bool, e)
		for j := range values[i] {
			values[i][j] = 3.0
			observed[i][j] = true
		}
	}
	ten, err := tensor.New(values, observed, []int{0, 0, 1, 1}, []int{-1, -1, -1, -1}, 2, qtypes.DefaultScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ten
}

func TestMissingDataIsDeterministicForASeed(t *testing.T) {
	ten := fullyObservedTensor(t)
	a := MissingData(ten, 7, 0.5)
	b := MissingData(ten, 7, 0.5)
	s, e := a.Dims()
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			_, aOk := a.At(i, j)
			_, bOk := b.At(i, j)
			if aOk != bOk {
				t.Fatalf("MissingData(seed=7) not reproducible at (%d,%d)", i, j)
			}
		}
	}
}

func TestMissingDataLeavesSourceUntouched(t *testing.T) {
	ten := fullyObservedTensor(t)
	_ = MissingData(ten, 1, 1.0) // drop probability 1: every cell masked in the copy
	s, e := ten.Dims()
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			if _, ok := ten.At(i, j); !ok {
				t.Fatalf("MissingData mutated the source tensor at (%d,%d)", i, j)
			}
		}
	}
}

func TestSyntheticUsesProvidedQualityAsMean(t *testing.T) {
	ten := fullyObservedTensor(t)
	params := SyntheticParams{
		Quality:       []float64{4, 4, 4, 4},
		Bias:          make([]float64, 6),
		Inconsistency: make([]float64, 6), // zero noise: output must equal Quality exactly
	}
	out := Synthetic(ten, params, 3)
	s, e := out.Dims()
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			v, ok := out.At(i, j)
			if !ok {
				t.Fatalf("Synthetic dropped an observed cell at (%d,%d)", i, j)
			}
			if v != 4 {
				t.Errorf("Synthetic(%d,%d) = %v, want 4 (zero inconsistency)", i, j, v)
			}
		}
	}
}

func TestCorruptSubjectStaysWithinScale(t *testing.T) {
	ten := fullyObservedTensor(t)
	out := CorruptSubject(ten, map[int]bool{0: true, 2: true}, 0)
	_, e := out.Dims()
	for j := 0; j < e; j++ {
		v, ok := out.At(0, j)
		if !ok {
			t.Fatalf("CorruptSubject dropped an observed cell at (0,%d)", j)
		}
		if v < qtypes.DefaultScale.Min || v > qtypes.DefaultScale.Max {
			t.Errorf("CorruptSubject(0,%d) = %v out of scale", j, v)
		}
	}
	for j := 0; j < e; j++ {
		v, _ := out.At(1, j)
		if v != 3.0 {
			t.Errorf("CorruptSubject must leave subject 1 untouched, got %v", v)
		}
	}
}

func TestCorruptSubjectIsDeterministicForASeedRegardlessOfMapOrder(t *testing.T) {
	ten := fullyObservedTensor(t)
	subjects := map[int]bool{0: true, 2: true, 4: true}

	first := CorruptSubject(ten, subjects, 42)
	for run := 0; run < 5; run++ {
		again := CorruptSubject(ten, subjects, 42)
		s, e := first.Dims()
		for i := 0; i < s; i++ {
			for j := 0; j < e; j++ {
				fv, _ := first.At(i, j)
				av, _ := again.At(i, j)
				if fv != av {
					t.Fatalf("CorruptSubject(seed=42) not reproducible at (%d,%d): %v vs %v", i, j, fv, av)
				}
			}
		}
	}
}

func TestCorruptSubjectDoesNotMutateSource(t *testing.T) {
	ten := fullyObservedTensor(t)
	_ = CorruptSubject(ten, map[int]bool{0: true}, 0)
	v, _ := ten.At(0, 0)
	if v != 3.0 {
		t.Errorf("CorruptSubject mutated the source tensor: At(0,0) = %v, want 3.0", v)
	}
}
