// response.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------
package hartree

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"hartree/interaction"
	"hartree/kspace"
	"hartree/zmat"
)

// DefaultEps is the finite-difference step of the response
// calculators. It trades truncation error against floating-point
// cancellation; callers probing very small or very large energy
// scales should override it with WithEps.
const DefaultEps = 1e-9

// ResponseOption configures a response calculator.
type ResponseOption func(*responseConfig)

type responseConfig struct {
	eps float64
}

// WithEps sets the finite-difference step.
func WithEps(eps float64) ResponseOption {
	return func(c *responseConfig) { c.eps = eps }
}

func newResponseConfig(opts []ResponseOption) (responseConfig, error) {
	cfg := responseConfig{eps: DefaultEps}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.eps <= 0 {
		return cfg, errors.Errorf("hartree: non-positive finite-difference step %v", cfg.eps)
	}
	return cfg, nil
}

// shiftedDispersion returns e_k_MF - mu*I, the effective
// single-particle Hamiltonian the response is computed around.
func shiftedDispersion(s *Solver) *kspace.Dispersion {
	ek := s.ekMF.Clone()
	ek.AddConst(-s.mu)
	return ek
}

// drhoDOp is the symmetric difference quotient of the density matrix
// with respect to the applied field op,
//
//	drho = (rho(e_k + eps*op) - rho(e_k - eps*op)) / (2*eps),
//
// averaged over the momentum mesh.
func drhoDOp(ek *kspace.Dispersion, beta, eps float64, op *zmat.Dense) (*zmat.Dense, error) {
	ekp := ek.Clone()
	if err := ekp.AddBlock(complex(eps, 0), op); err != nil {
		return nil, err
	}
	ekm := ek.Clone()
	if err := ekm.AddBlock(complex(-eps, 0), op); err != nil {
		return nil, err
	}

	rhoP, err := kspace.DensityMatrix(ekp, beta, 0)
	if err != nil {
		return nil, err
	}
	rhoM, err := kspace.DensityMatrix(ekm, beta, 0)
	if err != nil {
		return nil, err
	}

	drho := rhoP.Clone()
	drho.Add(-1, rhoM)
	drho.Scale(complex(1/(2*eps), 0))
	return drho, nil
}

// HartreeResponse is the diagonal-restricted response engine: probe
// operators must be diagonal in the orbital basis. The bare response
// chi0_ab is assembled from per-orbital projector fields and
// RPA-corrected through the orbital-diagonal Dyson equation
// chi = chi0 (I - U chi0)^-1.
type HartreeResponse struct {
	beta, eps float64
	norb      int

	chi0 *mat.Dense
	chi  *mat.Dense
}

// NewHartreeResponse builds the Hartree response around the state of a
// solved Solver.
func NewHartreeResponse(s *Solver, opts ...ResponseOption) (*HartreeResponse, error) {
	cfg, err := newResponseConfig(opts)
	if err != nil {
		return nil, err
	}
	if s.rho == nil {
		return nil, errors.New("hartree: response requires a solved mean field")
	}
	norb := s.norb
	ek := shiftedDispersion(s)

	chi0 := mat.NewDense(norb, norb, nil)
	for a := 0; a < norb; a++ {
		field := zmat.NewDense(norb, norb)
		field.Set(a, a, 1)

		drho, err := drhoDOp(ek, s.beta, cfg.eps, field)
		if err != nil {
			return nil, errors.Wrapf(err, "projector field %d", a)
		}
		for b, v := range drho.DiagReal() {
			chi0.Set(a, b, -v)
		}
	}

	// chi = chi0 (I - U chi0)^-1.
	var uchi mat.Dense
	uchi.Mul(s.uab, chi0)
	lhs := mat.NewDense(norb, norb, nil)
	for i := 0; i < norb; i++ {
		lhs.Set(i, i, 1)
	}
	lhs.Sub(lhs, &uchi)

	var lu mat.LU
	lu.Factorize(lhs)
	eye := mat.NewDense(norb, norb, nil)
	for i := 0; i < norb; i++ {
		eye.Set(i, i, 1)
	}
	var inv mat.Dense
	if err := lu.SolveTo(&inv, false, eye); err != nil {
		return nil, errors.Wrap(err, "hartree: singular Dyson inversion I - U*chi0")
	}
	var chi mat.Dense
	chi.Mul(chi0, &inv)

	return &HartreeResponse{
		beta: s.beta,
		eps:  cfg.eps,
		norb: norb,
		chi0: chi0,
		chi:  &chi,
	}, nil
}

// checkOp enforces the diagonal-probe restriction of the Hartree
// approximation.
func (r *HartreeResponse) checkOp(op *mat.Dense) error {
	rows, cols := op.Dims()
	if rows != r.norb || cols != r.norb {
		return errors.Errorf("hartree: probe of shape %dx%d, want %dx%d", rows, cols, r.norb, r.norb)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if i != j && math.Abs(op.At(i, j)) > 1e-12 {
				return errors.Errorf("hartree: probe has off-diagonal element at (%d,%d); "+
					"Hartree response requires diagonal operators", i, j)
			}
		}
	}
	return nil
}

func (r *HartreeResponse) contract(chi *mat.Dense, op1, op2 *mat.Dense) (float64, error) {
	if err := r.checkOp(op1); err != nil {
		return 0, err
	}
	if err := r.checkOp(op2); err != nil {
		return 0, err
	}
	var sum float64
	for a := 0; a < r.norb; a++ {
		for b := 0; b < r.norb; b++ {
			sum += op1.At(a, a) * chi.At(a, b) * op2.At(b, b)
		}
	}
	return sum, nil
}

// BareResponse contracts two diagonal probes against the bare
// susceptibility chi0.
func (r *HartreeResponse) BareResponse(op1, op2 *mat.Dense) (float64, error) {
	return r.contract(r.chi0, op1, op2)
}

// Response contracts two diagonal probes against the RPA-corrected
// susceptibility.
func (r *HartreeResponse) Response(op1, op2 *mat.Dense) (float64, error) {
	return r.contract(r.chi, op1, op2)
}

// Chi0 returns a copy of the bare susceptibility matrix.
func (r *HartreeResponse) Chi0() *mat.Dense { return mat.DenseCopyOf(r.chi0) }

// Chi returns a copy of the RPA susceptibility matrix.
func (r *HartreeResponse) Chi() *mat.Dense { return mat.DenseCopyOf(r.chi) }

// HartreeFockResponse lifts the finite-difference response to the full
// four-index tensor: the perturbing fields sweep all Hermitian orbital
// pairs with unit and imaginary scale factors, and the two real sweeps
// combine as chi0 = (R_real + Im(R_imag)) / 2. Probes need not be
// diagonal.
type HartreeFockResponse struct {
	beta, eps float64
	norb      int

	chi0 []complex128
	chi  []complex128
}

// NewHartreeFockResponse builds the full-tensor response around the
// state of a solved Solver.
func NewHartreeFockResponse(s *Solver, opts ...ResponseOption) (*HartreeFockResponse, error) {
	cfg, err := newResponseConfig(opts)
	if err != nil {
		return nil, err
	}
	if s.rho == nil {
		return nil, errors.New("hartree: response requires a solved mean field")
	}
	norb := s.norb
	ek := shiftedDispersion(s)

	rReal, err := rTensor(ek, s.beta, cfg.eps, 1)
	if err != nil {
		return nil, err
	}
	rImag, err := rTensor(ek, s.beta, cfg.eps, 1i)
	if err != nil {
		return nil, err
	}
	chi0 := make([]complex128, len(rReal))
	for i := range chi0 {
		chi0[i] = 0.5 * (rReal[i] + complex(imag(rImag[i]), 0))
	}

	// Dyson in the flattened (norb^2 x norb^2) space:
	// chi = (I - chi0 U)^-1 chi0.
	m := norb * norb
	chi0M := zmat.NewDense(m, m)
	uM := zmat.NewDense(m, m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			chi0M.Set(i, j, chi0[i*m+j])
			uM.Set(i, j, complex(s.uabcd[i*m+j], 0))
		}
	}
	lhs := zmat.Eye(m)
	tmp := zmat.NewDense(m, m)
	tmp.Mul(chi0M, uM)
	lhs.Add(-1, tmp)

	inv, err := zmat.Inverse(lhs)
	if err != nil {
		return nil, errors.Wrap(err, "hartree: singular Dyson inversion I - chi0*U")
	}
	chiM := zmat.NewDense(m, m)
	chiM.Mul(inv, chi0M)

	chi := make([]complex128, len(chi0))
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			chi[i*m+j] = chiM.At(i, j)
		}
	}

	return &HartreeFockResponse{
		beta: s.beta,
		eps:  cfg.eps,
		norb: norb,
		chi0: chi0,
		chi:  chi,
	}, nil
}

// rTensor sweeps all orbital-pair fields F = scale*E_ab + conj(scale)*E_ba
// and collects R[b,a,c,d] = -drho_cd/dF.
func rTensor(ek *kspace.Dispersion, beta, eps float64, scale complex128) ([]complex128, error) {
	norb := ek.Norb()
	r := make([]complex128, norb*norb*norb*norb)
	for a := 0; a < norb; a++ {
		for b := 0; b < norb; b++ {
			field := zmat.NewDense(norb, norb)
			field.Set(a, b, field.At(a, b)+scale)
			field.Set(b, a, field.At(b, a)+cmplx.Conj(scale))

			drho, err := drhoDOp(ek, beta, eps, field)
			if err != nil {
				return nil, errors.Wrapf(err, "pair field (%d,%d)", a, b)
			}
			for c := 0; c < norb; c++ {
				for d := 0; d < norb; d++ {
					r[interaction.Index4(b, a, c, d, norb)] = -drho.At(c, d)
				}
			}
		}
	}
	return r, nil
}

func (r *HartreeFockResponse) checkOp(op *zmat.Dense) error {
	if op.Rows() != r.norb || op.Cols() != r.norb {
		return errors.Errorf("hartree: probe of shape %dx%d, want %dx%d",
			op.Rows(), op.Cols(), r.norb, r.norb)
	}
	return nil
}

func (r *HartreeFockResponse) contract(chi []complex128, op1, op2 *zmat.Dense) (complex128, error) {
	if err := r.checkOp(op1); err != nil {
		return 0, err
	}
	if err := r.checkOp(op2); err != nil {
		return 0, err
	}
	n := r.norb
	var sum complex128
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for c := 0; c < n; c++ {
				for d := 0; d < n; d++ {
					sum += op1.At(a, b) * chi[interaction.Index4(a, b, c, d, n)] * op2.At(c, d)
				}
			}
		}
	}
	return sum, nil
}

// BareResponse contracts two general probes against the bare
// four-index susceptibility.
func (r *HartreeFockResponse) BareResponse(op1, op2 *zmat.Dense) (complex128, error) {
	return r.contract(r.chi0, op1, op2)
}

// Response contracts two general probes against the RPA-corrected
// four-index susceptibility.
func (r *HartreeFockResponse) Response(op1, op2 *zmat.Dense) (complex128, error) {
	return r.contract(r.chi, op1, op2)
}

// Chi0Tensor returns a copy of the bare four-index susceptibility in
// row-major (a,b,c,d) order.
func (r *HartreeFockResponse) Chi0Tensor() []complex128 {
	out := make([]complex128, len(r.chi0))
	copy(out, r.chi0)
	return out
}

// ChiTensor returns a copy of the RPA four-index susceptibility.
func (r *HartreeFockResponse) ChiTensor() []complex128 {
	out := make([]complex128, len(r.chi))
	copy(out, r.chi)
	return out
}
