// Package perturb implements the test-fixture wrappers described in spec
// section 4.5 (C6): missing-data masking, synthetic tensor generation
// from known ground-truth parameters, and subject corruption. None of
// these run in the production aggregation path; they exist so the
// reference scenarios in spec section 8 (corrupted-subject subject
// rejection, re-run stability under synthetic data) can be reproduced.
// Every function here returns a derived tensor.Tensor and never mutates
// the one it was handed, per the no-mutation rule in spec section 5.
package perturb

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qualab/subjqual/pkg/tensor"
)

// newSource gives each perturbation call its own deterministic random
// stream, so the same seed always reproduces the same derived tensor
// (required for the re-run-stability property in spec section 8).
func newSource(seed uint64) rand.Source {
	return rand.NewSource(int64(seed))
}

// MissingData returns a clone of t with each observed entry independently
// dropped with probability p, using a distuv.Uniform(0,1) draw per cell
// seeded from seed. A dropped cell is cleared with Tensor.Unset: its
// Observed bit goes false and its stored value becomes NaN, the tensor's
// missing sentinel (spec section 9, "missing sentinel").
func MissingData(t *tensor.Tensor, seed uint64, p float64) *tensor.Tensor {
	out := t.Clone()
	s, e := out.Dims()
	u := distuv.Uniform{Min: 0, Max: 1, Src: newSource(seed)}
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			if _, ok := out.At(i, j); !ok {
				continue
			}
			if u.Rand() < p {
				out.Unset(i, j)
			}
		}
	}
	return out
}

// SyntheticParams names the ground-truth parameters used to synthesize an
// opinion tensor under the model of spec section 4.3:
//
//	O[s,e] = Quality[e] + Bias[s] + N(0, Inconsistency[s]^2 + ContentBias[kappa(e)]^2 + Ambiguity[kappa(e)]^2)
//
// ContentBias stands in for the per-content zero-mean noise term Delta;
// Ambiguity is the content ambiguity a. Both fold into the same
// observation variance and are kept separate here only so a caller can
// drive them independently when constructing a test fixture.
type SyntheticParams struct {
	Quality       []float64 // length E
	Bias          []float64 // length S
	Inconsistency []float64 // length S
	ContentBias   []float64 // length C, optional (nil treated as all zero)
	Ambiguity     []float64 // length C, optional (nil treated as all zero)
}

// Synthetic builds a new tensor with the same shape, content map and
// reference map as t (Observed mask preserved), but with every observed
// cell redrawn from the model in params. It is the generative counterpart
// to the MLE's estimation: fitting a Solver against Synthetic's output
// should recover params up to sampling noise.
func Synthetic(t *tensor.Tensor, params SyntheticParams, seed uint64) *tensor.Tensor {
	out := t.Clone()
	s, e := out.Dims()
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: newSource(seed)}
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			if _, ok := out.At(i, j); !ok {
				continue
			}
			c := out.Content[j]
			variance := sq(at(params.Inconsistency, i)) + sq(at(params.ContentBias, c)) + sq(at(params.Ambiguity, c))
			sigma := math.Sqrt(math.Max(0, variance))
			mean := at(params.Quality, j) + at(params.Bias, i)
			value := mean + noise.Rand()*sigma
			out.Set(i, j, value)
		}
	}
	return out
}

// CorruptSubject returns a clone of t with every observed cell in each
// named subject's row replaced by an independent draw uniform over the
// tensor's rating scale, simulating an inattentive or adversarial
// observer (spec section 4.5). Observed is left untouched: corruption
// attacks values, not missingness.
func CorruptSubject(t *tensor.Tensor, subjects map[int]bool, seed uint64) *tensor.Tensor {
	out := t.Clone()
	_, e := out.Dims()
	u := distuv.Uniform{Min: out.Scale.Min, Max: out.Scale.Max, Src: newSource(seed)}

	// Iterate subjects in a fixed order so the shared deterministic RNG
	// stream always assigns the same draws to the same subject index for
	// a given seed; Go map iteration order is randomized per-process and
	// would otherwise break reproducibility across repeated calls.
	sorted := make([]int, 0, len(subjects))
	for i := range subjects {
		sorted = append(sorted, i)
	}
	sort.Ints(sorted)

	for _, i := range sorted {
		for j := 0; j < e; j++ {
			if _, ok := out.At(i, j); !ok {
				continue
			}
			out.Set(i, j, u.Rand())
		}
	}
	return out
}

func at(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

func sq(v float64) float64 { return v * v }
