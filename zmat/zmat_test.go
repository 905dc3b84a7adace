package zmat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEigvalshPauliX(t *testing.T) {
	// sigma_x has eigenvalues -1, +1.
	h := FromRows([][]complex128{
		{0, 1},
		{1, 0},
	})
	vals, err := Eigvalsh(h)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.InDelta(t, -1.0, vals[0], 1e-12)
	require.InDelta(t, 1.0, vals[1], 1e-12)
}

func TestEigvalshComplexHermitian(t *testing.T) {
	// sigma_y has eigenvalues -1, +1 and a purely imaginary off-diagonal.
	h := FromRows([][]complex128{
		{0, -1i},
		{1i, 0},
	})
	vals, err := Eigvalsh(h)
	require.NoError(t, err)
	require.InDelta(t, -1.0, vals[0], 1e-12)
	require.InDelta(t, 1.0, vals[1], 1e-12)
}

func TestEigvalshDegenerate(t *testing.T) {
	h := FromRows([][]complex128{
		{2, 0, 0},
		{0, 2, 0},
		{0, 0, 5},
	})
	vals, err := Eigvalsh(h)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{2, 2, 5}, vals, 1e-12)
}

func TestEigvalshRejectsNonHermitian(t *testing.T) {
	h := FromRows([][]complex128{
		{0, 1},
		{2, 0},
	})
	_, err := Eigvalsh(h)
	require.Error(t, err)
}

func TestFuncIdentity(t *testing.T) {
	h := FromRows([][]complex128{
		{1, 2 + 1i},
		{2 - 1i, -3},
	})
	one, err := Func(h, func(float64) float64 { return 1 })
	require.NoError(t, err)
	require.True(t, one.EqualApprox(Eye(2), 1e-12))
}

func TestFuncReproducesMatrix(t *testing.T) {
	h := FromRows([][]complex128{
		{1, 2 + 1i},
		{2 - 1i, -3},
	})
	same, err := Func(h, func(e float64) float64 { return e })
	require.NoError(t, err)
	require.True(t, same.EqualApprox(h, 1e-12))
}

func TestFuncSquare(t *testing.T) {
	h := FromRows([][]complex128{
		{0, 1i},
		{-1i, 2},
	})
	sq, err := Func(h, func(e float64) float64 { return e * e })
	require.NoError(t, err)

	want := NewDense(2, 2)
	want.Mul(h, h)
	require.True(t, sq.EqualApprox(want, 1e-12))
}

func TestInverse(t *testing.T) {
	a := FromRows([][]complex128{
		{1 + 1i, 2},
		{0, 3 - 1i},
	})
	inv, err := Inverse(a)
	require.NoError(t, err)

	prod := NewDense(2, 2)
	prod.Mul(a, inv)
	require.True(t, prod.EqualApprox(Eye(2), 1e-12))
}

func TestInverseSingular(t *testing.T) {
	a := FromRows([][]complex128{
		{1, 2},
		{2, 4},
	})
	_, err := Inverse(a)
	require.Error(t, err)
}

func TestMulMatchesEmbedding(t *testing.T) {
	a := FromRows([][]complex128{
		{1 + 2i, -1},
		{0, 3i},
	})
	b := FromRows([][]complex128{
		{2, 1i},
		{-1i, 1},
	})
	prod := NewDense(2, 2)
	prod.Mul(a, b)

	// (a*b)[0][0] = (1+2i)*2 + (-1)*(-1i) = 2+4i+1i = 2+5i.
	require.InDelta(t, 2, real(prod.At(0, 0)), 1e-14)
	require.InDelta(t, 5, imag(prod.At(0, 0)), 1e-14)
}

func TestTraceAndDiag(t *testing.T) {
	a := FromRows([][]complex128{
		{1 + 1i, 9},
		{9, 2 - 1i},
	})
	require.Equal(t, complex(3, 0), a.Trace())
	require.Equal(t, []float64{1, 2}, a.DiagReal())
}

func TestHermitianCheck(t *testing.T) {
	require.True(t, FromRows([][]complex128{
		{1, 2 + 1i},
		{2 - 1i, -1},
	}).IsHermitian())
	require.False(t, FromRows([][]complex128{
		{1, 2 + 1i},
		{2 + 1i, -1},
	}).IsHermitian())
	require.False(t, FromRows([][]complex128{
		{1i, 0},
		{0, 1},
	}).IsHermitian())
}

func TestEigvalshLargeSpread(t *testing.T) {
	h := FromRows([][]complex128{
		{1e6, 1e-3i},
		{-1e-3i, -1e6},
	})
	vals, err := Eigvalsh(h)
	require.NoError(t, err)
	require.InDelta(t, -1e6, vals[0], 1e-6)
	require.InDelta(t, 1e6, vals[1], 1e-6)
	require.False(t, math.IsNaN(vals[0]))
}
