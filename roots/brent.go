// brent.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Package roots implements the two root-finders the self-consistency
// machinery needs: a bracketed scalar solve (Brent) for the chemical
// potential and a damped Newton iteration for multidimensional fixed
// points.
package roots

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNoBracket is returned when the target function has no sign change
// on the supplied interval.
var ErrNoBracket = errors.New("roots: no sign change in bracket")

const (
	brentTol     = 1e-12
	brentMaxIter = 200
)

// Brent finds a root of f on the bracket [a, b] with Brent's method,
// combining bisection, secant and inverse quadratic interpolation.
// f(a) and f(b) must differ in sign, otherwise ErrNoBracket is
// returned.
func Brent(f func(float64) (float64, error), a, b float64) (float64, error) {
	fa, err := f(a)
	if err != nil {
		return 0, err
	}
	fb, err := f(b)
	if err != nil {
		return 0, err
	}
	if (fa > 0) == (fb > 0) && fa != 0 && fb != 0 {
		return 0, errors.Wrapf(ErrNoBracket, "f(%v)=%v, f(%v)=%v", a, fa, b, fb)
	}

	c, fc := a, fa
	var d, e float64
	for iter := 0; iter < brentMaxIter; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		const machEps = 2.220446049250313e-16
		tol1 := 2*machEps*math.Abs(b) + 0.5*brentTol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// Attempt secant or inverse quadratic interpolation.
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb, err = f(b)
		if err != nil {
			return 0, err
		}
	}
	return 0, errors.Errorf("roots: Brent did not converge in %d iterations", brentMaxIter)
}
