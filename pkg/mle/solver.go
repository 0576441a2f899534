// Package mle implements the joint maximum-likelihood estimator (C3):
// stimulus quality, observer bias, observer inconsistency and optional
// content ambiguity fit jointly over a partially observed opinion
// tensor via fixed-point iteration, plus the specialized LiveDMOS
// pipeline. This is the core algorithm in the spec (spec section 4.3).
package mle

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/qualab/subjqual/internal/stats"
	"github.com/qualab/subjqual/pkg/aggregate"
	"github.com/qualab/subjqual/pkg/postprocess"
	"github.com/qualab/subjqual/pkg/qerrors"
	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

const (
	// DefaultTolerance is the convergence tolerance on the largest
	// relative parameter change between sweeps.
	DefaultTolerance = 1e-8
	// DefaultMaxIterations is the fixed-point iteration cap.
	DefaultMaxIterations = 1000
	// floorEpsilon bounds v and a away from zero to avoid division by
	// zero in the weight w = 1/(v^2+a^2).
	floorEpsilon = 1e-8
	// logEpsilon is the clamp applied to non-positive scores before
	// taking the log under use_log (SPEC_FULL.md section 9, Open
	// Question resolution).
	logEpsilon = 1e-6
)

// Solver fits the model described in spec section 4.3. The zero value is
// not usable; construct with NewSolver.
type Solver struct {
	Variant       Variant
	Config        qtypes.ModelConfig
	Tolerance     float64
	MaxIterations int
}

// NewSolver returns a Solver with the default tolerance and iteration cap.
func NewSolver(variant Variant, cfg qtypes.ModelConfig) *Solver {
	return &Solver{
		Variant:       variant,
		Config:        cfg,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

func applyLog(t *tensor.Tensor) {
	s, e := t.Dims()
	for i := 0; i < s; i++ {
		for j := 0; j < e; j++ {
			v, ok := t.At(i, j)
			if !ok {
				continue
			}
			if v <= 0 {
				v = logEpsilon
			}
			t.Set(i, j, math.Log(v))
		}
	}
}

// Run fits the configured variant against t and returns the converged
// result (spec section 4.3).
func (sv *Solver) Run(t *tensor.Tensor) (*qtypes.Result, error) {
	if sv.Config.SubjectRejection {
		return nil, qerrors.NewInvalidCombinationError("subject_rejection is not supported by any MLE variant")
	}

	working := t.Clone()
	if sv.Config.ZscoreMode {
		if err := aggregate.ZScore(working); err != nil {
			return nil, err
		}
	}
	if sv.Config.DscoreMode {
		if err := aggregate.DmosRemap(working); err != nil {
			return nil, err
		}
	}
	if sv.Config.UseLog {
		applyLog(working)
	}

	f := flagsFor(sv.Variant)
	if sv.Config.ZscoreMode {
		f.estimateBias = false
	}

	s, e := working.Dims()
	numContents := working.NumContents

	psi := make([]float64, e)
	for j := 0; j < e; j++ {
		values, _ := working.Column(j)
		psi[j] = stats.Mean(values)
	}
	b := make([]float64, s)
	v := make([]float64, s)
	for i := 0; i < s; i++ {
		values, stimuli := working.Row(i)
		var sq float64
		for k, j := range stimuli {
			r := values[k] - psi[j]
			sq += r * r
		}
		if len(stimuli) > 0 {
			v[i] = math.Max(math.Sqrt(sq/float64(len(stimuli))), floorEpsilon)
		} else {
			v[i] = 1
		}
		if !f.estimateInconsistency {
			v[i] = 1
		}
	}
	a := make([]float64, numContents)
	if f.estimateAmbiguity {
		for c := 0; c < numContents; c++ {
			var sq float64
			var n int
			for _, j := range working.ContentStimuli(c) {
				values, subjects := working.Column(j)
				for k, si := range subjects {
					r := values[k] - psi[j] - b[si]
					sq += r * r
					n++
				}
			}
			if n > 0 {
				a[c] = math.Max(math.Sqrt(sq/float64(n)), floorEpsilon)
			} else {
				a[c] = floorEpsilon
			}
		}
	}

	weight := func(si, ei int) float64 {
		return 1 / (v[si]*v[si] + a[working.Content[ei]]*a[working.Content[ei]])
	}

	iterations := 0
	converged := false
	lastDelta := math.Inf(1)
	for ; iterations < sv.MaxIterations; iterations++ {
		psiOld := append([]float64(nil), psi...)
		bOld := append([]float64(nil), b...)
		vOld := append([]float64(nil), v...)
		aOld := append([]float64(nil), a...)

		// Stage 1: quality update.
		for j := 0; j < e; j++ {
			values, subjects := working.Column(j)
			var num, den float64
			for k, si := range subjects {
				w := weight(si, j)
				num += w * (values[k] - b[si])
				den += w
			}
			if den > 0 {
				psi[j] = num / den
			}
		}
		if sv.Config.ZscoreMode {
			mean := floats.Sum(psi) / float64(e)
			floats.AddConst(-mean, psi)
		}

		// Stage 2: bias update.
		if f.estimateBias {
			for i := 0; i < s; i++ {
				values, stimuli := working.Row(i)
				var num, den float64
				for k, j := range stimuli {
					w := weight(i, j)
					num += w * (values[k] - psi[j])
					den += w
				}
				if den > 0 {
					b[i] = num / den
				}
			}
			mean := floats.Sum(b) / float64(s)
			floats.AddConst(-mean, b)
		}

		// Stage 3: inconsistency update.
		if f.estimateInconsistency {
			for i := 0; i < s; i++ {
				v[i] = sv.updateInconsistency(working, i, psi, b, a)
			}
		}

		// Stage 4: ambiguity update.
		if f.estimateAmbiguity {
			for c := 0; c < numContents; c++ {
				var num, den float64
				for _, j := range working.ContentStimuli(c) {
					values, subjects := working.Column(j)
					for k, si := range subjects {
						r := values[k] - psi[j] - b[si]
						num += r*r - v[si]*v[si]
						den++
					}
				}
				if den > 0 {
					a[c] = math.Sqrt(math.Max(0, num/den))
				}
				a[c] = math.Max(a[c], floorEpsilon)
			}
		}

		if err := checkFinite(psi, b, v, a); err != nil {
			return nil, err
		}

		delta := maxRelDelta(psiOld, psi)
		delta = math.Max(delta, maxRelDelta(bOld, b))
		delta = math.Max(delta, maxRelDelta(vOld, v))
		delta = math.Max(delta, maxRelDelta(aOld, a))
		lastDelta = delta
		if delta < sv.Tolerance {
			iterations++
			converged = true
			break
		}
	}
	if !converged {
		return nil, qerrors.NewDidNotConvergeError("MLE solver did not converge", iterations, lastDelta)
	}

	result := sv.standardErrors(working, psi, b, v, a, f)
	result.Iterations = iterations

	return postprocess.Apply(result, sv.Config), nil
}

// updateInconsistency locates the stationary point of the marginal
// log-likelihood with respect to v[s]^2, either by the closed-form
// expression directly (gradient_method "original") or via a single
// Newton step started from the closed-form value, whose first and second
// derivatives come from gonum/diff/fd central differences on the
// per-subject negative log-likelihood (gradient_method "numerical");
// both target the same root.
func (sv *Solver) updateInconsistency(t *tensor.Tensor, s int, psi, b, a []float64) float64 {
	values, stimuli := t.Row(s)
	if len(values) == 0 {
		return floorEpsilon
	}

	residualSq := make([]float64, len(values))
	aSq := make([]float64, len(values))
	for k, j := range stimuli {
		r := values[k] - b[s] - psi[j]
		residualSq[k] = r * r
		aSq[k] = a[t.Content[j]] * a[t.Content[j]]
	}

	closedForm := func() float64 {
		var num float64
		for k := range residualSq {
			num += residualSq[k] - aSq[k]
		}
		return math.Max(0, num/float64(len(residualSq)))
	}

	if sv.Config.GradientMethod != qtypes.GradientNumerical {
		return math.Max(math.Sqrt(closedForm()), floorEpsilon)
	}

	nll := func(x float64) float64 {
		var total float64
		for k := range residualSq {
			denom := x + aSq[k]
			if denom <= 0 {
				denom = floorEpsilon
			}
			total += 0.5*math.Log(denom) + residualSq[k]/(2*denom)
		}
		return total
	}
	gradient := func(x float64) float64 {
		return fd.Derivative(nll, x, &fd.Settings{Step: 1e-5})
	}

	x0 := math.Max(closedForm(), floorEpsilon)
	g0 := fd.Derivative(nll, x0, &fd.Settings{Step: 1e-5})
	h0 := fd.Derivative(gradient, x0, &fd.Settings{Step: 1e-5})
	if h0 == 0 || math.IsNaN(h0) || math.IsNaN(g0) {
		return math.Max(math.Sqrt(x0), floorEpsilon)
	}
	x1 := x0 - g0/h0
	if math.IsNaN(x1) || math.IsInf(x1, 0) || x1 < 0 {
		x1 = x0
	}
	return math.Max(math.Sqrt(x1), floorEpsilon)
}

func maxRelDelta(oldV, newV []float64) float64 {
	var worst float64
	for i := range oldV {
		d := math.Abs(newV[i]-oldV[i]) / (math.Abs(oldV[i]) + 1e-12)
		if d > worst {
			worst = d
		}
	}
	return worst
}

func checkFinite(vecs ...[]float64) error {
	for _, vec := range vecs {
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return qerrors.NewNumericFailureError("non-finite parameter during MLE iteration", "param", i)
			}
		}
	}
	return nil
}

func (sv *Solver) standardErrors(t *tensor.Tensor, psi, b, v, a []float64, f flags) *qtypes.Result {
	s, e := t.Dims()

	result := &qtypes.Result{QualityScores: psi}

	if !f.emitStd {
		// Legacy estimates the same psi, b, v as ContentOblivious but
		// does not report standard errors (spec section 4.3 and 8).
		if f.estimateBias {
			result.ObserverBias = b
		}
		if f.estimateInconsistency {
			result.ObserverInconsistency = v
		}
		if f.estimateAmbiguity {
			result.ContentAmbiguity = a
		}
		return result
	}

	psiStd := make([]float64, e)
	for j := 0; j < e; j++ {
		_, subjects := t.Column(j)
		var den float64
		for _, si := range subjects {
			den += 1 / (v[si]*v[si] + a[t.Content[j]]*a[t.Content[j]])
		}
		if den > 0 {
			psiStd[j] = 1 / math.Sqrt(den)
		}
	}
	result.QualityScoresStd = psiStd

	if f.estimateBias {
		bStd := make([]float64, s)
		for i := 0; i < s; i++ {
			_, stimuli := t.Row(i)
			var den float64
			for _, j := range stimuli {
				den += 1 / (v[i]*v[i] + a[t.Content[j]]*a[t.Content[j]])
			}
			if den > 0 {
				bStd[i] = 1 / math.Sqrt(den)
			}
		}
		result.ObserverBias = b
		result.ObserverBiasStd = bStd
	}

	if f.estimateInconsistency {
		vStd := make([]float64, s)
		for i := 0; i < s; i++ {
			values, _ := t.Row(i)
			n := len(values)
			if n > 0 {
				vStd[i] = v[i] / math.Sqrt(2*float64(n))
			}
		}
		result.ObserverInconsistency = v
		result.ObserverInconsistencyStd = vStd
	}

	if f.estimateAmbiguity {
		aStd := make([]float64, len(a))
		for c := range a {
			n := 0
			for _, j := range t.ContentStimuli(c) {
				values, _ := t.Column(j)
				n += len(values)
			}
			if n > 0 {
				aStd[c] = a[c] / math.Sqrt(2*float64(n))
			}
		}
		result.ContentAmbiguity = a
		result.ContentAmbiguityStd = aStd
	}

	return result
}
