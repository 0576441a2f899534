// Copyright 2026 qualab. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package qtypes

// Result is the write-once output record produced by every descriptive
// aggregator and MLE variant (spec section 3, "Result record R"). Fields
// that a particular model does not estimate are left nil rather than
// zero-filled, so callers can tell "not estimated" from "estimated as
// zero" (e.g. SubjectOblivious fixes bias at zero but never reports it).
type Result struct {
	QualityScores    []float64
	QualityScoresStd []float64

	ObserverBias    []float64
	ObserverBiasStd []float64

	ObserverInconsistency    []float64
	ObserverInconsistencyStd []float64

	ContentAmbiguity    []float64
	ContentAmbiguityStd []float64

	// RejectedSubjects holds the 0-based subject indices excluded by a
	// BT.500 subject-rejection pass; nil for models that don't reject.
	RejectedSubjects map[int]bool

	// Iterations is the number of fixed-point sweeps the MLE solver ran
	// before converging; zero for non-iterative (descriptive) models.
	Iterations int
}

// Clone returns a deep copy of r, so callers can mutate the copy (e.g.
// post-processing transforms) without aliasing the original.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{Iterations: r.Iterations}
	out.QualityScores = append([]float64(nil), r.QualityScores...)
	out.QualityScoresStd = append([]float64(nil), r.QualityScoresStd...)
	out.ObserverBias = append([]float64(nil), r.ObserverBias...)
	out.ObserverBiasStd = append([]float64(nil), r.ObserverBiasStd...)
	out.ObserverInconsistency = append([]float64(nil), r.ObserverInconsistency...)
	out.ObserverInconsistencyStd = append([]float64(nil), r.ObserverInconsistencyStd...)
	out.ContentAmbiguity = append([]float64(nil), r.ContentAmbiguity...)
	out.ContentAmbiguityStd = append([]float64(nil), r.ContentAmbiguityStd...)
	if r.RejectedSubjects != nil {
		out.RejectedSubjects = make(map[int]bool, len(r.RejectedSubjects))
		for k, v := range r.RejectedSubjects {
			out.RejectedSubjects[k] = v
		}
	}
	return out
}
