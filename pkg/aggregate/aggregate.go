// Package aggregate implements the descriptive aggregators (C2): MOS,
// DMOS, bias removal, z-scoring, BT.500 subject rejection, and the
// supplemental non-iterative least-squares model. Each preprocessing
// step runs on a Clone of the tensor handed in, per the no-mutation rule
// in spec section 5.
package aggregate

import (
	"math"

	"github.com/qualab/subjqual/internal/stats"
	"github.com/qualab/subjqual/pkg/postprocess"
	"github.com/qualab/subjqual/pkg/qerrors"
	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

// removeBias subtracts each subject's additive offset from the grand
// mean in place and reports the bias vector (spec section 4.2).
func removeBias(t *tensor.Tensor) (bias, biasStd []float64) {
	s, _ := t.Dims()
	grandMean := stats.GrandMean(t)
	bias = make([]float64, s)
	biasStd = make([]float64, s)
	for i := 0; i < s; i++ {
		values, stimuli := t.Row(i)
		n := len(values)
		if n == 0 {
			bias[i] = math.NaN()
			biasStd[i] = math.NaN()
			continue
		}
		mean := stats.Mean(values)
		bias[i] = mean - grandMean
		if n > 1 {
			biasStd[i] = stats.StdDev(values) / math.Sqrt(float64(n))
		} else {
			biasStd[i] = math.NaN()
		}
		for _, e := range stimuli {
			v, _ := t.At(i, e)
			t.Set(i, e, v-bias[i])
		}
	}
	return bias, biasStd
}

// ZScore standardizes each subject's row to zero mean, unit variance in
// place, using only that subject's observed entries (spec section 4.2).
// Exported so pkg/mle can reuse it for zscore_mode.
func ZScore(t *tensor.Tensor) error {
	s, _ := t.Dims()
	for i := 0; i < s; i++ {
		values, stimuli := t.Row(i)
		if len(values) < 2 {
			return qerrors.NewInsufficientDataError("subject has fewer than 2 ratings for z-scoring",
				map[string]any{"subject": i})
		}
		mean := stats.Mean(values)
		std := stats.StdDev(values)
		if std == 0 {
			return qerrors.NewNumericFailureError("subject has zero variance under z-scoring", "zscore", i)
		}
		for _, e := range stimuli {
			v, _ := t.At(i, e)
			t.Set(i, e, (v-mean)/std)
		}
	}
	return nil
}

// DmosRemap replaces each distorted stimulus's ratings with the
// reference-minus-distorted difference anchored at the scale maximum
// (spec section 4.2 and the Open Question resolution in SPEC_FULL.md
// section 9). Stimuli with no defined reference are left untouched —
// they are treated as the hidden-reference stimuli themselves. If no
// stimulus in the whole tensor defines a reference, dscore_mode cannot
// do anything useful and fails with MissingReference.
func DmosRemap(t *tensor.Tensor) error {
	s, e := t.Dims()
	anyRef := false
	for _, r := range t.Ref {
		if r != -1 {
			anyRef = true
			break
		}
	}
	if !anyRef {
		return qerrors.NewMissingReferenceError("dscore_mode requested but no stimulus defines a reference", 0)
	}
	for j := 0; j < e; j++ {
		r := t.Ref[j]
		if r == -1 {
			continue
		}
		for i := 0; i < s; i++ {
			disVal, disOk := t.At(i, j)
			refVal, refOk := t.At(i, r)
			if !disOk {
				continue
			}
			if !refOk {
				t.Unset(i, j)
				continue
			}
			t.Set(i, j, refVal-disVal+t.Scale.Max)
		}
	}
	return nil
}

// subjectThreshold returns the BT.500 rejection bound for stimulus e:
// 2*sigma for near-normal score distributions (excess kurtosis in
// [2,4] once re-based to ordinary kurtosis), sqrt(20)*sigma otherwise.
func subjectThreshold(t *tensor.Tensor, e int) (mean, threshold float64) {
	values, _ := t.Column(e)
	mean = stats.Mean(values)
	sigma := stats.ColumnStd(t, e)
	kurtosis := stats.ExcessKurtosis(values) + 3
	if kurtosis >= 2 && kurtosis <= 4 {
		threshold = 2 * sigma
	} else {
		threshold = math.Sqrt(20) * sigma
	}
	return mean, threshold
}

// rejectSubjects applies the ITU-R BT.500 subject-rejection procedure
// (spec section 4.2) and returns the set of rejected subject indices. It
// does not mutate t; the caller drops the rows itself so that other
// diagnostics computed before rejection (e.g. bias) still refer to
// original indices.
func rejectSubjects(t *tensor.Tensor) (map[int]bool, error) {
	s, e := t.Dims()
	means := make([]float64, e)
	thresholds := make([]float64, e)
	for j := 0; j < e; j++ {
		means[j], thresholds[j] = subjectThreshold(t, j)
	}

	reject := make(map[int]bool)
	for i := 0; i < s; i++ {
		values, stimuli := t.Row(i)
		n := len(values)
		if n < 2 {
			return nil, qerrors.NewInsufficientDataError("subject has fewer than 2 ratings for subject rejection",
				map[string]any{"subject": i})
		}
		var p, q int
		for k, e := range stimuli {
			v := values[k]
			if v > means[e]+thresholds[e] {
				p++
			}
			if v < means[e]-thresholds[e] {
				q++
			}
		}
		pn := float64(p) / float64(n)
		qn := float64(q) / float64(n)
		if pn > 0.05 && math.Abs(qn-0.5) < 0.3 {
			reject[i] = true
		}
	}
	return reject, nil
}

// columnMOS reduces each stimulus column to its observed mean and the
// standard error of that mean (spec section 4.2).
func columnMOS(t *tensor.Tensor) *qtypes.Result {
	_, e := t.Dims()
	scores := make([]float64, e)
	std := make([]float64, e)
	for j := 0; j < e; j++ {
		values, _ := t.Column(j)
		n := len(values)
		scores[j] = stats.Mean(values)
		if n > 1 {
			std[j] = stats.StdDev(values) / math.Sqrt(float64(n))
		} else {
			std[j] = math.NaN()
		}
	}
	return &qtypes.Result{QualityScores: scores, QualityScoresStd: std}
}

// Run executes the descriptive pipeline in the fixed order declared by
// spec section 4.2: bias removal, subject rejection, z-scoring, DMOS
// remap, then MOS reduction, then the shared postprocess.Apply final
// transforms.
func Run(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	working := t.Clone()
	var bias, biasStd []float64
	var rejected map[int]bool

	if cfg.BiasRemoval {
		bias, biasStd = removeBias(working)
	}
	if cfg.SubjectRejection {
		var err error
		rejected, err = rejectSubjects(working)
		if err != nil {
			return nil, err
		}
		working = working.DropSubjects(rejected)
	}
	if cfg.ZscoreMode {
		if err := ZScore(working); err != nil {
			return nil, err
		}
	}
	if cfg.DscoreMode {
		if err := DmosRemap(working); err != nil {
			return nil, err
		}
	}

	result := columnMOS(working)
	result.ObserverBias = bias
	result.ObserverBiasStd = biasStd
	result.RejectedSubjects = rejected

	return postprocess.Apply(result, cfg), nil
}

// MOS runs the plain mean-opinion-score reduction with no preprocessing.
func MOS(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.BiasRemoval, cfg.SubjectRejection, cfg.ZscoreMode, cfg.DscoreMode = false, false, false, false
	return Run(t, cfg)
}

// DMOS runs the differential MOS reduction (dscore_mode forced on).
func DMOS(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.DscoreMode = true
	return Run(t, cfg)
}

// Biasremv runs MOS after per-subject bias removal.
func Biasremv(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.BiasRemoval = true
	cfg.SubjectRejection, cfg.ZscoreMode, cfg.DscoreMode = false, false, false
	return Run(t, cfg)
}

// Subjrej runs MOS after BT.500 subject rejection.
func Subjrej(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.SubjectRejection = true
	return Run(t, cfg)
}

// Zscoring runs MOS after per-subject z-scoring.
func Zscoring(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.ZscoreMode = true
	return Run(t, cfg)
}

// BiasremvSubjrej composes bias removal then subject rejection before MOS.
func BiasremvSubjrej(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.BiasRemoval = true
	cfg.SubjectRejection = true
	return Run(t, cfg)
}

// ZscoringSubjrej composes subject rejection then z-scoring before MOS.
func ZscoringSubjrej(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	cfg.SubjectRejection = true
	cfg.ZscoreMode = true
	return Run(t, cfg)
}

// BiasremvMos is an explicit alias of Biasremv kept for the reference
// scenario's naming convention (SPEC_FULL.md section 8, scenario 10).
func BiasremvMos(t *tensor.Tensor, cfg qtypes.ModelConfig) (*qtypes.Result, error) {
	return Biasremv(t, cfg)
}

// SubjectSummary is the per-subject diagnostic (spec section 4.2,
// "per-subject" aggregator): one row per subject instead of one per
// stimulus.
type SubjectSummary struct {
	Mean []float64
	Std  []float64
}

// PerSubject reduces each subject's row to its mean and the standard
// error of that mean.
func PerSubject(t *tensor.Tensor) SubjectSummary {
	s, _ := t.Dims()
	out := SubjectSummary{Mean: make([]float64, s), Std: make([]float64, s)}
	for i := 0; i < s; i++ {
		values, _ := t.Row(i)
		n := len(values)
		out.Mean[i] = stats.Mean(values)
		if n > 1 {
			out.Std[i] = stats.StdDev(values) / math.Sqrt(float64(n))
		} else {
			out.Std[i] = math.NaN()
		}
	}
	return out
}
