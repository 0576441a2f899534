// Package stats holds the masked descriptive-statistics helpers shared by
// pkg/aggregate and pkg/mle: per-column and per-row mean, sample standard
// deviation, variance and excess kurtosis over the tensor's observed
// entries only. It follows the teacher's internal/core/statistics.go in
// leaning on gonum/stat rather than hand-rolled loops.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/qualab/subjqual/pkg/tensor"
)

// ColumnMean returns the mean of the observed entries in stimulus column e.
func ColumnMean(t *tensor.Tensor, e int) float64 {
	values, _ := t.Column(e)
	return stat.Mean(values, nil)
}

// ColumnStd returns the sample standard deviation (Bessel-corrected, n-1)
// of the observed entries in stimulus column e.
func ColumnStd(t *tensor.Tensor, e int) float64 {
	values, _ := t.Column(e)
	return stat.StdDev(values, nil)
}

// ColumnVariance returns the sample variance of the observed entries in
// stimulus column e.
func ColumnVariance(t *tensor.Tensor, e int) float64 {
	values, _ := t.Column(e)
	return stat.Variance(values, nil)
}

// RowMean returns the mean of the observed entries in subject row s.
func RowMean(t *tensor.Tensor, s int) float64 {
	values, _ := t.Row(s)
	return stat.Mean(values, nil)
}

// RowStd returns the sample standard deviation of the observed entries in
// subject row s.
func RowStd(t *tensor.Tensor, s int) float64 {
	values, _ := t.Row(s)
	return stat.StdDev(values, nil)
}

// ExcessKurtosis returns the excess kurtosis of values (stat.ExKurtosis is
// already excess, i.e. 0 for a normal distribution), used by BT.500
// subject rejection to pick the normal vs non-normal rejection rule.
func ExcessKurtosis(values []float64) float64 {
	return stat.ExKurtosis(values, nil)
}

// Mean is a thin re-export so callers outside this package don't need to
// import gonum/stat directly for the common case.
func Mean(values []float64) float64 { return stat.Mean(values, nil) }

// StdDev is a thin re-export, see Mean.
func StdDev(values []float64) float64 { return stat.StdDev(values, nil) }

// Variance is a thin re-export, see Mean.
func Variance(values []float64) float64 { return stat.Variance(values, nil) }

// CountObserved returns the number of observed entries in stimulus column e.
func CountObserved(t *tensor.Tensor, e int) int {
	values, _ := t.Column(e)
	return len(values)
}

// GrandMean returns the mean of every observed entry in the tensor,
// used by bias removal (spec section 4.2).
func GrandMean(t *tensor.Tensor) float64 {
	s, _ := t.Dims()
	var all []float64
	for i := 0; i < s; i++ {
		values, _ := t.Row(i)
		all = append(all, values...)
	}
	return stat.Mean(all, nil)
}
