// Package postprocess implements the shared final-transform stage (spec
// section 4.4) applied after any model converges, descriptive or MLE:
// optional zero-mean/unit-variance normalization, then an optional affine
// remap, both applied to quality_scores and carried through to its
// standard errors.
package postprocess

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/qualab/subjqual/pkg/qtypes"
)

// Normalize rescales values to zero mean and unit variance in place and
// returns the (mean, std) it used, so a caller can apply the same
// transform to a companion standard-error vector.
func Normalize(values []float64) (mean, std float64) {
	mean = stat.Mean(values, nil)
	std = stat.StdDev(values, nil)
	if std == 0 {
		std = 1
	}
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
	return mean, std
}

// Affine applies x -> p1*x + p0 in place.
func Affine(values []float64, p1, p0 float64) {
	for i := range values {
		values[i] = p1*values[i] + p0
	}
}

// Apply runs normalize_final then transform_final on result.QualityScores
// (spec section 4.4), scaling QualityScoresStd by the same factors (an
// additive constant never affects a standard error). Returns a clone;
// result is left untouched.
func Apply(result *qtypes.Result, cfg qtypes.ModelConfig) *qtypes.Result {
	out := result.Clone()
	if len(out.QualityScores) == 0 {
		return out
	}

	scale := 1.0
	if cfg.NormalizeFinal {
		_, std := Normalize(out.QualityScores)
		if std != 0 {
			scale /= std
		}
	}
	if cfg.TransformFinal != nil {
		Affine(out.QualityScores, cfg.TransformFinal.P1, cfg.TransformFinal.P0)
		scale *= cfg.TransformFinal.P1
	}
	for i := range out.QualityScoresStd {
		out.QualityScoresStd[i] *= math.Abs(scale)
	}
	return out
}
