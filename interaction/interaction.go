// interaction.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Package interaction represents density-density interaction
// Hamiltonians and extracts the four-index tensor U_abcd and its
// density-density reduction U_ab from them.
package interaction

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Term is a single density-density coupling Coeff * n_A * n_B.
type Term struct {
	Coeff float64
	A, B  int
}

// Expr is a density-density interaction Hamiltonian: a sum of Terms
// over a fixed set of norb fundamental orbitals. Once handed to a
// solver it must not be modified.
type Expr struct {
	norb  int
	terms []Term
}

func NewExpr(norb int) *Expr {
	return &Expr{norb: norb}
}

func (e *Expr) Norb() int { return e.norb }

func (e *Expr) Terms() []Term { return e.terms }

// Add appends the coupling coeff * n_a * n_b and returns e for
// chaining. Index validation happens when the tensor is extracted.
func (e *Expr) Add(coeff float64, a, b int) *Expr {
	e.terms = append(e.terms, Term{Coeff: coeff, A: a, B: b})
	return e
}

// Kanamori builds the density-density part of the Kanamori
// interaction for norb/2 orbitals with two spin species, in the
// spin-major index convention [up orbitals..., down orbitals...]:
// U between opposite spins on the same orbital, U-3J between equal
// spins on different orbitals and U-2J between opposite spins on
// different orbitals.
func Kanamori(norb int, u, j float64) (*Expr, error) {
	if norb <= 0 || norb%2 != 0 {
		return nil, errors.Errorf("interaction: Kanamori needs a positive even orbital count, got %d", norb)
	}
	half := norb / 2
	orb := func(i int) int { return i % half }
	spin := func(i int) int { return i / half }

	e := NewExpr(norb)
	for i1 := 0; i1 < norb; i1++ {
		for i2 := 0; i2 < norb; i2++ {
			o1, o2 := orb(i1), orb(i2)
			s1, s2 := spin(i1), spin(i2)
			switch {
			case o1 == o2 && s1 != s2:
				e.Add(u, i1, i2)
			case o1 != o2 && s1 == s2:
				e.Add(u-3*j, i1, i2)
			case o1 != o2 && s1 != s2:
				e.Add(u-2*j, i2, i1)
			}
		}
	}
	return e, nil
}

// Index4 flattens a four-index orbital tuple into the row-major
// position used by the U_abcd tensors.
func Index4(a, b, c, d, norb int) int {
	return ((a*norb+b)*norb+c)*norb + d
}

// RPATensor extracts the four-index interaction tensor U_abcd from e:
// each term coeff * n_a * n_b lands on U[a,a,b,b]. Terms referencing
// orbitals outside [0, norb) are a configuration error.
func RPATensor(e *Expr) ([]float64, error) {
	n := e.norb
	if n <= 0 {
		return nil, errors.Errorf("interaction: non-positive orbital count %d", n)
	}
	u := make([]float64, n*n*n*n)
	for _, t := range e.terms {
		if t.A < 0 || t.A >= n || t.B < 0 || t.B >= n {
			return nil, errors.Errorf("interaction: term (%d,%d) outside %d orbitals", t.A, t.B, n)
		}
		u[Index4(t.A, t.A, t.B, t.B, n)] += t.Coeff
	}
	return u, nil
}

// DensDens reduces the four-index tensor to the density-density
// matrix U_ab = U_abcd[a,a,b,b].
func DensDens(uabcd []float64, norb int) (*mat.Dense, error) {
	if len(uabcd) != norb*norb*norb*norb {
		return nil, errors.Errorf("interaction: tensor of length %d, want %d", len(uabcd), norb*norb*norb*norb)
	}
	uab := mat.NewDense(norb, norb, nil)
	for a := 0; a < norb; a++ {
		for b := 0; b < norb; b++ {
			uab.Set(a, b, uabcd[Index4(a, a, b, b, norb)])
		}
	}
	return uab, nil
}
