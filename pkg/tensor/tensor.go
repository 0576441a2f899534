// Package tensor implements the opinion tensor (spec section 3): a dense
// (subjects x stimuli) matrix of opinion scores with a companion observed
// mask standing in for the NaN sentinel, plus the content and reference
// maps. The representation follows the teacher's types.CSVData: a value
// matrix (here a *mat.Dense, mirroring internal/utils.MatrixToDense) and a
// parallel [][]bool mask recording which cells actually carry data.
package tensor

import (
	"math"

	"github.com/qualab/subjqual/pkg/qerrors"
	"github.com/qualab/subjqual/pkg/qtypes"
	"gonum.org/v1/gonum/mat"
)

// Tensor is the opinion tensor O plus the content map kappa and the
// reference map rho (spec section 3). It is read-only once built: models
// receive it by reference and must never write through it (section 5).
type Tensor struct {
	O        *mat.Dense // S x E, NaN where Observed is false
	Observed [][]bool   // S x E

	// Content holds kappa(e), the content index for stimulus e.
	Content []int
	// Ref holds rho(e), the reference stimulus index for stimulus e, or
	// -1 when undefined.
	Ref []int

	NumContents int

	SubjectLabels  []string
	StimulusLabels []string

	Scale qtypes.Scale
}

// New builds a Tensor from already-indexed data. Callers normally reach
// this indirectly through dataset.Build; New is exported so tests and
// perturbation wrappers can construct tensors directly.
func New(values [][]float64, observed [][]bool, content, ref []int, numContents int, scale qtypes.Scale) (*Tensor, error) {
	s := len(values)
	if s == 0 {
		return nil, qerrors.NewSchemaError("opinion tensor has zero subjects", nil)
	}
	e := len(values[0])
	if e == 0 {
		return nil, qerrors.NewSchemaError("opinion tensor has zero stimuli", nil)
	}
	if len(content) != e || len(ref) != e {
		return nil, qerrors.NewSchemaError("content/ref maps must have length E", nil)
	}

	flat := make([]float64, s*e)
	for i := 0; i < s; i++ {
		if len(values[i]) != e || len(observed[i]) != e {
			return nil, qerrors.NewSchemaError("ragged opinion matrix", nil).With("subject", i)
		}
		for j := 0; j < e; j++ {
			v := values[i][j]
			if observed[i][j] {
				if v < scale.Min || v > scale.Max || math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, qerrors.NewSchemaError("opinion score out of range", nil).
						With("subject", i).With("stimulus", j).With("value", v)
				}
			} else {
				v = math.NaN()
			}
			flat[i*e+j] = v
		}
	}

	obs := make([][]bool, s)
	for i := range observed {
		obs[i] = append([]bool(nil), observed[i]...)
	}

	return &Tensor{
		O:           mat.NewDense(s, e, flat),
		Observed:    obs,
		Content:     append([]int(nil), content...),
		Ref:         append([]int(nil), ref...),
		NumContents: numContents,
		Scale:       scale,
	}, nil
}

// Dims returns (S, E): the subject and stimulus counts.
func (t *Tensor) Dims() (s, e int) {
	s, e = t.O.Dims()
	return
}

// Clone returns a deep copy, so preprocessing transforms (bias removal,
// z-scoring, DMOS remap, ...) can mutate the copy without aliasing the
// tensor the caller handed to the model (section 5: tensors are
// read-only to models).
func (t *Tensor) Clone() *Tensor {
	s, e := t.Dims()
	out := &Tensor{
		O:           mat.DenseCopyOf(t.O),
		Observed:    make([][]bool, s),
		Content:     append([]int(nil), t.Content...),
		Ref:         append([]int(nil), t.Ref...),
		NumContents: t.NumContents,
		Scale:       t.Scale,
	}
	for i := 0; i < s; i++ {
		out.Observed[i] = append([]bool(nil), t.Observed[i]...)
	}
	out.SubjectLabels = append([]string(nil), t.SubjectLabels...)
	out.StimulusLabels = append([]string(nil), t.StimulusLabels...)
	_ = e
	return out
}

// Set writes value at (s, e) and marks it observed. Only preprocessing
// transforms operating on a freshly Clone()'d tensor should call this.
func (t *Tensor) Set(s, e int, value float64) {
	t.O.Set(s, e, value)
	t.Observed[s][e] = true
}

// Unset marks (s, e) missing, leaving the stored value unspecified.
func (t *Tensor) Unset(s, e int) {
	t.Observed[s][e] = false
	t.O.Set(s, e, math.NaN())
}

// At returns the value at (s, e) and whether it is observed.
func (t *Tensor) At(s, e int) (float64, bool) {
	return t.O.At(s, e), t.Observed[s][e]
}

// Column returns the observed values in stimulus column e, in subject
// order, along with the subject indices they came from.
func (t *Tensor) Column(e int) (values []float64, subjects []int) {
	s, _ := t.Dims()
	for i := 0; i < s; i++ {
		if t.Observed[i][e] {
			values = append(values, t.O.At(i, e))
			subjects = append(subjects, i)
		}
	}
	return
}

// Row returns the observed values in subject row s, in stimulus order,
// along with the stimulus indices they came from.
func (t *Tensor) Row(s int) (values []float64, stimuli []int) {
	_, e := t.Dims()
	for j := 0; j < e; j++ {
		if t.Observed[s][j] {
			values = append(values, t.O.At(s, j))
			stimuli = append(stimuli, j)
		}
	}
	return
}

// ContentStimuli returns the stimulus indices belonging to content c.
func (t *Tensor) ContentStimuli(c int) []int {
	var out []int
	for e, kc := range t.Content {
		if kc == c {
			out = append(out, e)
		}
	}
	return out
}

// DropSubjects returns a clone with the given subject rows excluded
// entirely (used by BT.500 subject rejection, spec section 4.2).
func (t *Tensor) DropSubjects(reject map[int]bool) *Tensor {
	s, e := t.Dims()
	var keptValues [][]float64
	var keptObserved [][]bool
	var keptLabels []string
	for i := 0; i < s; i++ {
		if reject[i] {
			continue
		}
		row := make([]float64, e)
		mat.Row(row, i, t.O)
		keptValues = append(keptValues, row)
		keptObserved = append(keptObserved, append([]bool(nil), t.Observed[i]...))
		if i < len(t.SubjectLabels) {
			keptLabels = append(keptLabels, t.SubjectLabels[i])
		}
	}
	flat := make([]float64, len(keptValues)*e)
	for i, row := range keptValues {
		copy(flat[i*e:(i+1)*e], row)
	}
	return &Tensor{
		O:              mat.NewDense(len(keptValues), e, flat),
		Observed:       keptObserved,
		Content:        append([]int(nil), t.Content...),
		Ref:            append([]int(nil), t.Ref...),
		NumContents:    t.NumContents,
		SubjectLabels:  keptLabels,
		StimulusLabels: append([]string(nil), t.StimulusLabels...),
		Scale:          t.Scale,
	}
}
