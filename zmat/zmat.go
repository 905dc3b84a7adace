// zmat.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Package zmat provides the small amount of complex dense linear
// algebra the mean-field solver needs on top of gonum: Hermitian
// eigendecomposition, spectral function application and inversion.
//
// gonum carries no complex Hermitian eigensolver, so every spectral
// operation here goes through the real-symmetric embedding
//
//	E = [[Re(H), -Im(H)], [Im(H), Re(H)]]
//
// which is a *-algebra homomorphism: sums, products and spectral
// functions computed on E are the embeddings of the same operations
// on H, with every eigenvalue of H appearing twice in E.
package zmat

import (
	"fmt"
	"math/cmplx"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// hermTol is the absolute tolerance for Hermiticity checks.
const hermTol = 1e-9

// Dense is a row-major complex128 dense matrix.
type Dense struct {
	rows, cols int
	data       []complex128
}

func NewDense(rows, cols int) *Dense {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("zmat: non-positive dimension %dx%d", rows, cols))
	}
	return &Dense{rows: rows, cols: cols, data: make([]complex128, rows*cols)}
}

// FromRows builds a Dense from a rectangular slice of rows.
func FromRows(rows [][]complex128) *Dense {
	m := NewDense(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			panic("zmat: ragged rows")
		}
		copy(m.data[i*m.cols:(i+1)*m.cols], row)
	}
	return m
}

// Eye returns the n x n identity.
func Eye(n int) *Dense {
	m := NewDense(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func (m *Dense) Rows() int { return m.rows }
func (m *Dense) Cols() int { return m.cols }

func (m *Dense) At(i, j int) complex128 { return m.data[i*m.cols+j] }

func (m *Dense) Set(i, j int, v complex128) { m.data[i*m.cols+j] = v }

func (m *Dense) Clone() *Dense {
	c := NewDense(m.rows, m.cols)
	copy(c.data, m.data)
	return c
}

func (m *Dense) CopyFrom(a *Dense) {
	if m.rows != a.rows || m.cols != a.cols {
		panic("zmat: shape mismatch in CopyFrom")
	}
	copy(m.data, a.data)
}

// Zero sets all entries to zero.
func (m *Dense) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Add accumulates m += alpha * a.
func (m *Dense) Add(alpha complex128, a *Dense) {
	if m.rows != a.rows || m.cols != a.cols {
		panic("zmat: shape mismatch in Add")
	}
	for i, v := range a.data {
		m.data[i] += alpha * v
	}
}

// Scale multiplies every entry by alpha.
func (m *Dense) Scale(alpha complex128) {
	for i := range m.data {
		m.data[i] *= alpha
	}
}

// Mul sets m = a * b. The receiver must not alias a or b.
func (m *Dense) Mul(a, b *Dense) {
	if a.cols != b.rows || m.rows != a.rows || m.cols != b.cols {
		panic("zmat: shape mismatch in Mul")
	}
	for i := 0; i < a.rows; i++ {
		for j := 0; j < b.cols; j++ {
			var s complex128
			for k := 0; k < a.cols; k++ {
				s += a.data[i*a.cols+k] * b.data[k*b.cols+j]
			}
			m.data[i*m.cols+j] = s
		}
	}
}

// Trace returns the sum of diagonal entries.
func (m *Dense) Trace() complex128 {
	if m.rows != m.cols {
		panic("zmat: trace of non-square matrix")
	}
	var t complex128
	for i := 0; i < m.rows; i++ {
		t += m.data[i*m.cols+i]
	}
	return t
}

// DiagReal returns the real parts of the diagonal.
func (m *Dense) DiagReal() []float64 {
	if m.rows != m.cols {
		panic("zmat: diagonal of non-square matrix")
	}
	d := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		d[i] = real(m.data[i*m.cols+i])
	}
	return d
}

// IsHermitian reports whether m equals its conjugate transpose within
// the package tolerance.
func (m *Dense) IsHermitian() bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := i; j < m.cols; j++ {
			if cmplx.Abs(m.At(i, j)-cmplx.Conj(m.At(j, i))) > hermTol {
				return false
			}
		}
	}
	return true
}

// EqualApprox reports elementwise equality within tol.
func (m *Dense) EqualApprox(a *Dense, tol float64) bool {
	if m.rows != a.rows || m.cols != a.cols {
		return false
	}
	for i, v := range m.data {
		if cmplx.Abs(v-a.data[i]) > tol {
			return false
		}
	}
	return true
}

func (m *Dense) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		b.WriteString("    ")
		for j := 0; j < m.cols; j++ {
			v := m.At(i, j)
			fmt.Fprintf(&b, "%12.8f%+12.8fi  ", real(v), imag(v))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// embed returns the 2n x 2m real embedding [[Re,-Im],[Im,Re]].
func embed(a *Dense) *mat.Dense {
	n, m := a.rows, a.cols
	e := mat.NewDense(2*n, 2*m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			re, im := real(a.At(i, j)), imag(a.At(i, j))
			e.Set(i, j, re)
			e.Set(i, m+j, -im)
			e.Set(n+i, j, im)
			e.Set(n+i, m+j, re)
		}
	}
	return e
}

// extract recovers the complex n x m matrix from its embedding.
func extract(e mat.Matrix, n, m int) *Dense {
	a := NewDense(n, m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			a.Set(i, j, complex(e.At(i, j), e.At(n+i, j)))
		}
	}
	return a
}

// hermitize returns (h + h†)/2 so the embedding is exactly symmetric.
func hermitize(h *Dense) *Dense {
	s := NewDense(h.rows, h.cols)
	for i := 0; i < h.rows; i++ {
		for j := 0; j < h.cols; j++ {
			s.Set(i, j, 0.5*(h.At(i, j)+cmplx.Conj(h.At(j, i))))
		}
	}
	return s
}

func embedSym(h *Dense) *mat.SymDense {
	e := embed(hermitize(h))
	n := h.rows
	s := mat.NewSymDense(2*n, nil)
	for i := 0; i < 2*n; i++ {
		for j := i; j < 2*n; j++ {
			s.SetSym(i, j, e.At(i, j))
		}
	}
	return s
}

// Eigvalsh returns the eigenvalues of the Hermitian matrix h in
// ascending order.
func Eigvalsh(h *Dense) ([]float64, error) {
	if h.rows != h.cols {
		return nil, errors.Errorf("zmat: eigendecomposition of %dx%d matrix", h.rows, h.cols)
	}
	if !h.IsHermitian() {
		return nil, errors.New("zmat: matrix is not Hermitian")
	}

	var eigsym mat.EigenSym
	if ok := eigsym.Factorize(embedSym(h), false); !ok {
		return nil, errors.New("zmat: eigendecomposition failed")
	}
	all := eigsym.Values(nil)

	// Every eigenvalue of h appears twice in the embedding; the sorted
	// duplicates are adjacent, so taking every second one halves each
	// multiplicity exactly.
	vals := make([]float64, h.rows)
	for i := range vals {
		vals[i] = all[2*i]
	}
	return vals, nil
}

// Func applies the spectral function f to the Hermitian matrix h,
// returning V diag(f(eps)) V†.
func Func(h *Dense, f func(float64) float64) (*Dense, error) {
	if h.rows != h.cols {
		return nil, errors.Errorf("zmat: spectral function of %dx%d matrix", h.rows, h.cols)
	}
	if !h.IsHermitian() {
		return nil, errors.New("zmat: matrix is not Hermitian")
	}
	n := h.rows

	var eigsym mat.EigenSym
	if ok := eigsym.Factorize(embedSym(h), true); !ok {
		return nil, errors.New("zmat: eigendecomposition failed")
	}
	var ev mat.Dense
	eigsym.VectorsTo(&ev)

	fvals := make([]float64, 2*n)
	for i, e := range eigsym.Values(nil) {
		fvals[i] = f(e)
	}

	var tmp, res mat.Dense
	tmp.Mul(&ev, mat.NewDiagDense(2*n, fvals))
	res.Mul(&tmp, ev.T())
	return extract(&res, n, n), nil
}

// Inverse returns a^-1, or an error when the LU factorization of a is
// numerically singular.
func Inverse(a *Dense) (*Dense, error) {
	if a.rows != a.cols {
		return nil, errors.Errorf("zmat: inverse of %dx%d matrix", a.rows, a.cols)
	}
	n := a.rows

	var lu mat.LU
	lu.Factorize(embed(a))

	eye := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < 2*n; i++ {
		eye.Set(i, i, 1)
	}
	var inv mat.Dense
	if err := lu.SolveTo(&inv, false, eye); err != nil {
		return nil, errors.Wrap(err, "zmat: singular matrix")
	}
	return extract(&inv, n, n), nil
}
