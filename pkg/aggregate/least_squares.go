package aggregate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/qualab/subjqual/internal/stats"
	"github.com/qualab/subjqual/pkg/qerrors"
	"github.com/qualab/subjqual/pkg/qtypes"
	"github.com/qualab/subjqual/pkg/tensor"
)

// LeastSquaresModel is the supplemental non-iterative alternative to the
// MLE (spec section 4.2, grounded in original_source): it fits
// O[s,e] ~= psi[e] + b[s] by ordinary least squares over a one-hot design
// (E stimulus columns + S subject columns), solved via the normal
// equations with an SVD pseudoinverse fallback when the design is
// rank-deficient. The design is always rank-deficient by exactly one
// degree of freedom (a stimulus column and a subject column sum to the
// same all-ones vector), so the fallback path is the one that always
// runs; the normal-equations attempt is kept first anyway so the two-path
// structure matches its grounding exactly.
func LeastSquaresModel(t *tensor.Tensor) (*qtypes.Result, error) {
	s, e := t.Dims()
	width := e + s

	var flatX []float64
	var y []float64
	for i := 0; i < s; i++ {
		values, stimuli := t.Row(i)
		for k, j := range stimuli {
			row := make([]float64, width)
			row[j] = 1
			row[e+i] = 1
			flatX = append(flatX, row...)
			y = append(y, values[k])
		}
	}
	n := len(y)
	if n < width {
		return nil, qerrors.NewInsufficientDataError("too few observations for the least-squares design",
			map[string]any{"observations": n, "parameters": width})
	}

	X := mat.NewDense(n, width, flatX)
	Y := mat.NewDense(n, 1, y)

	var B mat.Dense
	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err == nil {
		var xty mat.Dense
		xty.Mul(X.T(), Y)
		B.Mul(&xtxInv, &xty)
	} else {
		var svd mat.SVD
		ok := svd.Factorize(X, mat.SVDFullU|mat.SVDFullV)
		if !ok {
			return nil, qerrors.NewNumericFailureError("SVD factorization failed for least-squares design", "least_squares", -1)
		}
		rank := svd.Rank(1e-12)
		if rank == 0 {
			B = *mat.NewDense(width, 1, nil)
		} else {
			B = *mat.NewDense(width, 1, nil)
			svd.SolveTo(&B, Y, rank)
		}
	}

	psi := make([]float64, e)
	bias := make([]float64, s)
	for j := 0; j < e; j++ {
		psi[j] = B.At(j, 0)
	}
	for i := 0; i < s; i++ {
		bias[i] = B.At(e+i, 0)
	}

	delta := stats.Mean(bias)
	for i := range bias {
		bias[i] -= delta
	}
	for j := range psi {
		psi[j] += delta
	}

	return &qtypes.Result{QualityScores: psi, ObserverBias: bias}, nil
}
