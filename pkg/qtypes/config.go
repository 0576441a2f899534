// Copyright 2026 qualab. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package qtypes

// Affine is a post-fit linear transform x -> P1*x + P0, applied to
// quality_scores after normalize_final (if both are requested).
type Affine struct {
	P1 float64 `json:"p1"`
	P0 float64 `json:"p0"`
}

// GradientMethod selects how the MLE solver's inconsistency update locates
// the stationary point of the marginal log-likelihood.
type GradientMethod string

const (
	// GradientOriginal evaluates the closed-form stationary point
	// directly.
	GradientOriginal GradientMethod = "original"
	// GradientNumerical locates the same stationary point via a
	// gonum/diff/fd central-difference Newton step.
	GradientNumerical GradientMethod = "numerical"
)

// ModelConfig is the shared configuration surface for descriptive
// aggregators and the MLE solver, mirroring the teacher's PCAConfig: a
// plain struct with json tags, no flag parsing or env var lookups.
type ModelConfig struct {
	// BiasRemoval selects the descriptive bias-removal preprocessing step
	// (pkg/aggregate). Has no effect on MLE variants, which estimate bias
	// jointly instead.
	BiasRemoval      bool           `json:"bias_removal,omitempty"`
	DscoreMode       bool           `json:"dscore_mode,omitempty"`
	ZscoreMode       bool           `json:"zscore_mode,omitempty"`
	SubjectRejection bool           `json:"subject_rejection,omitempty"`
	UseLog           bool           `json:"use_log,omitempty"`
	GradientMethod   GradientMethod `json:"gradient_method,omitempty"`
	NormalizeFinal   bool           `json:"normalize_final,omitempty"`
	TransformFinal   *Affine        `json:"transform_final,omitempty"`
}

// Scale is the bounded opinion scale, e.g. [1,5] for a typical ACR test.
type Scale struct {
	Min float64
	Max float64
}

// DefaultScale is the typical 5-point ACR opinion scale used throughout
// the reference scenarios.
var DefaultScale = Scale{Min: 1, Max: 5}
