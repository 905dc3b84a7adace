package hartree_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"hartree"
	"hartree/interaction"
	"hartree/kspace"
	"hartree/zmat"
)

func projector(norb, a int) *mat.Dense {
	p := mat.NewDense(norb, norb, nil)
	p.Set(a, a, 1)
	return p
}

func solvedHubbard(t *testing.T, u float64) *hartree.Solver {
	t.Helper()
	ek, err := kspace.TightBinding1D(16, 2, -1)
	require.NoError(t, err)
	hint, err := interaction.Kanamori(2, u, 0)
	require.NoError(t, err)
	s, err := hartree.New(ek, hint)
	require.NoError(t, err)
	res, err := s.SolveIter(10, 1.0)
	require.NoError(t, err)
	require.True(t, res.Converged)
	return s
}

func TestHartreeResponseRequiresSolve(t *testing.T) {
	ek, err := kspace.TightBinding1D(8, 2, -1)
	require.NoError(t, err)
	s, err := hartree.New(ek, interaction.NewExpr(2))
	require.NoError(t, err)
	_, err = hartree.NewHartreeResponse(s)
	require.Error(t, err)
}

func TestHartreeResponseNonInteracting(t *testing.T) {
	// With U = 0 the RPA correction is the identity: response and bare
	// response agree exactly.
	s := solvedHubbard(t, 0)
	r, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)

	p0, p1 := projector(2, 0), projector(2, 1)
	for _, ops := range [][2]*mat.Dense{{p0, p0}, {p0, p1}, {p1, p1}} {
		bare, err := r.BareResponse(ops[0], ops[1])
		require.NoError(t, err)
		full, err := r.Response(ops[0], ops[1])
		require.NoError(t, err)
		require.InDelta(t, bare, full, 1e-12)
	}
}

func TestHartreeResponseOnsagerSymmetry(t *testing.T) {
	s := solvedHubbard(t, 2)
	r, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)

	p0, p1 := projector(2, 0), projector(2, 1)
	b01, err := r.BareResponse(p0, p1)
	require.NoError(t, err)
	b10, err := r.BareResponse(p1, p0)
	require.NoError(t, err)
	require.InDelta(t, b01, b10, 1e-5)

	c01, err := r.Response(p0, p1)
	require.NoError(t, err)
	c10, err := r.Response(p1, p0)
	require.NoError(t, err)
	require.InDelta(t, c01, c10, 1e-5)
}

func TestHartreeResponseRejectsOffDiagonalProbe(t *testing.T) {
	s := solvedHubbard(t, 0)
	r, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)

	bad := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	_, err = r.BareResponse(bad, projector(2, 0))
	require.Error(t, err)
	_, err = r.Response(projector(2, 0), bad)
	require.Error(t, err)

	wrongShape := mat.NewDense(3, 3, nil)
	_, err = r.BareResponse(wrongShape, wrongShape)
	require.Error(t, err)
}

func TestHartreeResponseCompressibilityPositive(t *testing.T) {
	s := solvedHubbard(t, 0)
	r, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)

	n := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	chi, err := r.BareResponse(n, n)
	require.NoError(t, err)
	require.Greater(t, chi, 0.0)
}

func TestHartreeResponseDysonConsistency(t *testing.T) {
	// Response must reproduce the contraction of chi = chi0 (I-U chi0)^-1
	// assembled by hand from the exposed matrices.
	s := solvedHubbard(t, 2)
	r, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)

	chi0 := r.Chi0()
	uab := s.InteractionMatrix()

	var uchi mat.Dense
	uchi.Mul(uab, chi0)
	lhs := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	lhs.Sub(lhs, &uchi)
	var inv mat.Dense
	require.NoError(t, inv.Inverse(lhs))
	var want mat.Dense
	want.Mul(chi0, &inv)

	p0, p1 := projector(2, 0), projector(2, 1)
	got, err := r.Response(p0, p1)
	require.NoError(t, err)
	require.InDelta(t, want.At(0, 1), got, 1e-10)
}

func TestHartreeFockResponseNonInteracting(t *testing.T) {
	s := solvedHubbard(t, 0)
	r, err := hartree.NewHartreeFockResponse(s)
	require.NoError(t, err)

	op := zmat.FromRows([][]complex128{
		{1, 0.3 + 0.1i},
		{0.3 - 0.1i, -0.5},
	})
	bare, err := r.BareResponse(op, op)
	require.NoError(t, err)
	full, err := r.Response(op, op)
	require.NoError(t, err)
	require.InDelta(t, real(bare), real(full), 1e-10)
	require.InDelta(t, imag(bare), imag(full), 1e-10)
}

func TestHartreeFockMatchesHartreeDiagonal(t *testing.T) {
	// For diagonal probes the four-index bare tensor reduces to the
	// diagonal-restricted chi0.
	s := solvedHubbard(t, 2)
	hr, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)
	hfr, err := hartree.NewHartreeFockResponse(s)
	require.NoError(t, err)

	chi0 := hr.Chi0()
	tensor := hfr.Chi0Tensor()
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			v := tensor[interaction.Index4(a, a, b, b, 2)]
			require.InDelta(t, chi0.At(a, b), real(v), 1e-5)
			require.InDelta(t, 0, imag(v), 1e-5)
		}
	}
}

func TestHartreeFockResponseProbeShape(t *testing.T) {
	s := solvedHubbard(t, 0)
	r, err := hartree.NewHartreeFockResponse(s)
	require.NoError(t, err)
	_, err = r.BareResponse(zmat.NewDense(3, 3), zmat.NewDense(3, 3))
	require.Error(t, err)
}

func TestResponseEpsOption(t *testing.T) {
	s := solvedHubbard(t, 0)

	_, err := hartree.NewHartreeResponse(s, hartree.WithEps(-1))
	require.Error(t, err)

	// A coarser step still reproduces the default within finite
	// difference accuracy.
	rDefault, err := hartree.NewHartreeResponse(s)
	require.NoError(t, err)
	rCoarse, err := hartree.NewHartreeResponse(s, hartree.WithEps(1e-6))
	require.NoError(t, err)

	p0 := projector(2, 0)
	a, err := rDefault.BareResponse(p0, p0)
	require.NoError(t, err)
	b, err := rCoarse.BareResponse(p0, p0)
	require.NoError(t, err)
	require.InDelta(t, a, b, 1e-4)
}
