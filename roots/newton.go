// newton.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------
package roots

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	newtonTol      = 1e-10
	newtonMaxIter  = 200
	newtonFDStep   = 1e-7
	newtonMaxHalve = 25
)

// Newton solves F(x) = 0 starting from x0 with a damped Newton
// iteration: the Jacobian is approximated by forward differences,
// each step solves J d = -F by LU factorization and the step is
// halved until the residual norm decreases. Non-convergence within
// the iteration budget and singular Jacobians are errors.
func Newton(f func([]float64) ([]float64, error), x0 []float64) ([]float64, error) {
	n := len(x0)
	if n == 0 {
		return nil, errors.New("roots: empty starting point")
	}
	x := make([]float64, n)
	copy(x, x0)

	fx, err := f(x)
	if err != nil {
		return nil, err
	}
	if len(fx) != n {
		return nil, errors.Errorf("roots: residual of length %d for %d unknowns", len(fx), n)
	}
	norm := floats.Norm(fx, math.Inf(1))

	jac := mat.NewDense(n, n, nil)
	xh := make([]float64, n)
	step := mat.NewVecDense(n, nil)
	rhs := mat.NewVecDense(n, nil)

	for iter := 0; iter < newtonMaxIter; iter++ {
		if norm < newtonTol {
			return x, nil
		}

		for j := 0; j < n; j++ {
			h := newtonFDStep * math.Max(1, math.Abs(x[j]))
			copy(xh, x)
			xh[j] += h
			fh, err := f(xh)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				jac.Set(i, j, (fh[i]-fx[i])/h)
			}
		}

		for i := 0; i < n; i++ {
			rhs.SetVec(i, -fx[i])
		}
		var lu mat.LU
		lu.Factorize(jac)
		if err := lu.SolveVecTo(step, false, rhs); err != nil {
			return nil, errors.Wrap(err, "roots: singular Jacobian")
		}

		alpha := 1.0
		accepted := false
		for halve := 0; halve < newtonMaxHalve; halve++ {
			for i := 0; i < n; i++ {
				xh[i] = x[i] + alpha*step.AtVec(i)
			}
			fh, err := f(xh)
			if err != nil {
				return nil, err
			}
			if hn := floats.Norm(fh, math.Inf(1)); hn < norm {
				copy(x, xh)
				fx, norm = fh, hn
				accepted = true
				break
			}
			alpha /= 2
		}
		if !accepted {
			return nil, errors.Errorf("roots: Newton line search stalled at residual %.3e", norm)
		}
	}
	return nil, errors.Errorf("roots: Newton did not converge in %d iterations, residual %.3e", newtonMaxIter, norm)
}
