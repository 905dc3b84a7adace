// solver.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Package hartree implements a self-consistent mean-field (Hartree /
// Hartree-Fock) solver for density-density interacting lattice
// fermions, together with bare and RPA-corrected susceptibilities.
//
// The solver iterates the composite step
//
//	M <- diag(U_ab rho_diag)
//	e_k_MF <- e_k + M
//	mu <- root of N(mu) = N_tot
//	rho <- 1/N_k sum_k f(e_k_MF - mu)
//
// to its fixed point, either by linear mixing (SolveIter) or by a
// Newton root-find on the residual (SolveNewton).
package hartree

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"hartree/interaction"
	"hartree/kspace"
	"hartree/roots"
	"hartree/zmat"
)

// Defaults for the solver knobs, matching the reference conventions.
const (
	DefaultMuMin   = -10.0
	DefaultMuMax   = 10.0
	DefaultMixing  = 0.5
	DefaultTol     = 1e-9
	DefaultMaxIter = 100
)

// Option configures a Solver at construction.
type Option func(*Solver)

// WithMuWindow sets the search bracket for the chemical potential.
func WithMuWindow(min, max float64) Option {
	return func(s *Solver) { s.muMin, s.muMax = min, max }
}

// WithMixing sets the linear-mixing weight in [0, 1] used by SolveIter.
func WithMixing(mixing float64) Option {
	return func(s *Solver) { s.mixing = mixing }
}

// WithTolerance sets the relative convergence tolerance on the density
// matrix diagonal.
func WithTolerance(tol float64) Option {
	return func(s *Solver) { s.tol = tol }
}

// WithMaxIter sets the iteration cap of SolveIter.
func WithMaxIter(n int) Option {
	return func(s *Solver) { s.maxIter = n }
}

// WithInitialM sets the starting mean-field matrix diagonal.
func WithInitialM(m []float64) Option {
	return func(s *Solver) { s.m0 = slices.Clone(m) }
}

// WithInitialMu sets the starting chemical potential instead of
// solving for it during setup.
func WithInitialMu(mu float64) Option {
	return func(s *Solver) { s.mu0 = &mu }
}

// Solver holds the mutable state of one mean-field calculation. It is
// not safe for concurrent use; each solve call mutates the state in a
// fixed order.
type Solver struct {
	ek   *kspace.Dispersion
	ekMF *kspace.Dispersion
	norb int

	uabcd []float64
	uab   *mat.Dense

	m       []float64
	mu      float64
	rho     *zmat.Dense
	rhoDiag []float64

	beta float64
	ntot float64

	muMin, muMax float64
	mixing, tol  float64
	maxIter      int

	m0  []float64
	mu0 *float64
}

// Result reports the outcome of a self-consistency solve. A run that
// exhausts its iteration budget comes back with Converged false rather
// than an error; callers decide how hard to fail.
type Result struct {
	Converged  bool
	Iterations int
	Residual   float64
	Trajectory [][]float64
}

// New builds a solver for the dispersion ek and the density-density
// interaction hint. The interaction's orbital count must match the
// dispersion's per-point block shape.
func New(ek *kspace.Dispersion, hint *interaction.Expr, opts ...Option) (*Solver, error) {
	if hint.Norb() != ek.Norb() {
		return nil, errors.Errorf("hartree: interaction over %d orbitals, dispersion has %d",
			hint.Norb(), ek.Norb())
	}
	uabcd, err := interaction.RPATensor(hint)
	if err != nil {
		return nil, err
	}
	uab, err := interaction.DensDens(uabcd, ek.Norb())
	if err != nil {
		return nil, err
	}

	s := &Solver{
		ek:      ek.Clone(),
		ekMF:    ek.Clone(),
		norb:    ek.Norb(),
		uabcd:   uabcd,
		uab:     uab,
		m:       make([]float64, ek.Norb()),
		muMin:   DefaultMuMin,
		muMax:   DefaultMuMax,
		mixing:  DefaultMixing,
		tol:     DefaultTol,
		maxIter: DefaultMaxIter,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.mixing < 0 || s.mixing > 1 {
		return nil, errors.Errorf("hartree: mixing %v outside [0, 1]", s.mixing)
	}
	if s.tol <= 0 {
		return nil, errors.Errorf("hartree: non-positive tolerance %v", s.tol)
	}
	if s.maxIter <= 0 {
		return nil, errors.Errorf("hartree: non-positive iteration cap %d", s.maxIter)
	}
	if s.muMin >= s.muMax {
		return nil, errors.Errorf("hartree: empty chemical potential window [%v, %v]", s.muMin, s.muMax)
	}
	if s.m0 != nil && len(s.m0) != s.norb {
		return nil, errors.Errorf("hartree: initial mean field of length %d, want %d", len(s.m0), s.norb)
	}
	return s, nil
}

// meanField sets M_a = sum_b U_ab rho_bb. Only the diagonal
// occupations enter; off-diagonal interaction elements are unused by
// this coupling and callers must match that convention.
func (s *Solver) meanField(rhoDiag []float64) {
	var v mat.VecDense
	v.MulVec(s.uab, mat.NewVecDense(s.norb, rhoDiag))
	for i := range s.m {
		s.m[i] = v.AtVec(i)
	}
}

func (s *Solver) updateDispersion() error {
	if err := s.ekMF.CopyFrom(s.ek); err != nil {
		return err
	}
	return s.ekMF.AddDiag(s.m)
}

// solveMu brackets the chemical potential that reproduces the target
// total density on the current mean-field dispersion. The
// eigendecompositions run once; only the Fermi sums rerun per Brent
// evaluation.
func (s *Solver) solveMu() error {
	eigs, err := kspace.Eigenvalues(s.ekMF)
	if err != nil {
		return err
	}
	target := func(mu float64) (float64, error) {
		return kspace.TotalDensity(eigs, s.beta, mu) - s.ntot, nil
	}
	mu, err := roots.Brent(target, s.muMin, s.muMax)
	if err != nil {
		if errors.Is(err, roots.ErrNoBracket) {
			return errors.Wrapf(err, "hartree: target density %v not attainable in mu window [%v, %v]",
				s.ntot, s.muMin, s.muMax)
		}
		return errors.Wrap(err, "hartree: chemical potential solve")
	}
	s.mu = mu
	return nil
}

func (s *Solver) updateRho() ([]float64, error) {
	rho, err := kspace.DensityMatrix(s.ekMF, s.beta, s.mu)
	if err != nil {
		return nil, err
	}
	s.rho = rho
	s.rhoDiag = rho.DiagReal()
	return slices.Clone(s.rhoDiag), nil
}

// Step runs one composite self-consistency step from the given
// density-matrix diagonal and returns the updated diagonal. Near the
// fixed point Step is idempotent to within the solver tolerance.
func (s *Solver) Step(rhoDiag []float64) ([]float64, error) {
	if len(rhoDiag) != s.norb {
		return nil, errors.Errorf("hartree: density diagonal of length %d, want %d", len(rhoDiag), s.norb)
	}
	s.meanField(rhoDiag)
	if err := s.updateDispersion(); err != nil {
		return nil, err
	}
	if err := s.solveMu(); err != nil {
		return nil, err
	}
	return s.updateRho()
}

// SolveSetup establishes beta and the target density, installs the
// initial mean field and chemical potential and returns the initial
// density-matrix diagonal.
func (s *Solver) SolveSetup(beta, ntot float64) ([]float64, error) {
	if beta <= 0 {
		return nil, errors.Errorf("hartree: non-positive inverse temperature %v", beta)
	}
	s.beta, s.ntot = beta, ntot

	if s.mu0 != nil {
		s.mu = *s.mu0
	} else if err := s.solveMu(); err != nil {
		return nil, err
	}

	if s.m0 != nil {
		copy(s.m, s.m0)
	} else {
		for i := range s.m {
			s.m[i] = 0
		}
	}
	if err := s.updateDispersion(); err != nil {
		return nil, err
	}
	if err := s.solveMu(); err != nil {
		return nil, err
	}
	return s.updateRho()
}

// SolveIter runs the linearly mixed forward iteration
//
//	rho <- (1-mixing)*rho_old + mixing*Step(rho_old)
//
// until the relative L2 change of the diagonal drops below the
// tolerance or the iteration cap is reached.
func (s *Solver) SolveIter(beta, ntot float64) (Result, error) {
	rhoDiag, err := s.SolveSetup(beta, ntot)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i := 0; i < s.maxIter; i++ {
		res.Trajectory = append(res.Trajectory, slices.Clone(rhoDiag))

		old := slices.Clone(rhoDiag)
		next, err := s.Step(rhoDiag)
		if err != nil {
			return Result{}, err
		}
		res.Iterations = i + 1

		denom := floats.Norm(old, 2)
		if denom == 0 {
			denom = 1
		}
		res.Residual = floats.Distance(old, next, 2) / denom
		if res.Residual < s.tol {
			res.Converged = true
			break
		}

		for j := range rhoDiag {
			rhoDiag[j] = (1-s.mixing)*old[j] + s.mixing*next[j]
		}
	}
	return res, nil
}

// SolveNewton solves the fixed point rho = Step(rho) with a Newton
// root-find on Step(rho)-rho, started from the setup value. Root-find
// failure is returned as an error; on success the solver state is left
// at the fixed point by a final Step.
func (s *Solver) SolveNewton(beta, ntot float64) (Result, error) {
	rho0, err := s.SolveSetup(beta, ntot)
	if err != nil {
		return Result{}, err
	}

	steps := 0
	target := func(x []float64) ([]float64, error) {
		steps++
		next, err := s.Step(x)
		if err != nil {
			return nil, err
		}
		r := make([]float64, len(next))
		for i := range r {
			r[i] = next[i] - x[i]
		}
		return r, nil
	}

	rhoDiag, err := roots.Newton(target, rho0)
	if err != nil {
		return Result{}, errors.Wrap(err, "hartree: Newton solve")
	}
	final, err := s.Step(rhoDiag)
	if err != nil {
		return Result{}, err
	}

	denom := floats.Norm(rhoDiag, 2)
	if denom == 0 {
		denom = 1
	}
	return Result{
		Converged:  true,
		Iterations: steps,
		Residual:   floats.Distance(rhoDiag, final, 2) / denom,
		Trajectory: [][]float64{rho0, final},
	}, nil
}

// Beta returns the inverse temperature of the last solve.
func (s *Solver) Beta() float64 { return s.beta }

// Mu returns the current chemical potential.
func (s *Solver) Mu() float64 { return s.mu }

// Norb returns the orbital dimension.
func (s *Solver) Norb() int { return s.norb }

// MeanField returns a copy of the mean-field matrix diagonal.
func (s *Solver) MeanField() []float64 { return slices.Clone(s.m) }

// RhoDiag returns a copy of the density-matrix diagonal.
func (s *Solver) RhoDiag() []float64 { return slices.Clone(s.rhoDiag) }

// Rho returns a copy of the full density matrix.
func (s *Solver) Rho() *zmat.Dense { return s.rho.Clone() }

// Density returns the real part of the density-matrix trace.
func (s *Solver) Density() float64 {
	var n float64
	for _, v := range s.rhoDiag {
		n += v
	}
	return n
}

// InteractionMatrix returns a copy of the density-density matrix U_ab.
func (s *Solver) InteractionMatrix() *mat.Dense {
	return mat.DenseCopyOf(s.uab)
}

func (s *Solver) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MF: Solver state\n")
	fmt.Fprintf(&b, "beta     = %v\n", s.beta)
	fmt.Fprintf(&b, "N_target = %v\n", s.ntot)
	fmt.Fprintf(&b, "N_tot    = %v\n", s.Density())
	fmt.Fprintf(&b, "mu       = %v\n", s.mu)
	fmt.Fprintf(&b, "M        = %v\n", s.m)
	if s.rho != nil {
		fmt.Fprintf(&b, "rho =\n%s", s.rho)
	}
	return b.String()
}
