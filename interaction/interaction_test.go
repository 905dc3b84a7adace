package interaction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKanamoriSingleOrbital(t *testing.T) {
	// One orbital, two spins: only the intra-orbital U between opposite
	// spins survives.
	e, err := Kanamori(2, 4.0, 1.0)
	require.NoError(t, err)

	uabcd, err := RPATensor(e)
	require.NoError(t, err)
	uab, err := DensDens(uabcd, 2)
	require.NoError(t, err)

	require.InDelta(t, 0, uab.At(0, 0), 1e-14)
	require.InDelta(t, 0, uab.At(1, 1), 1e-14)
	require.InDelta(t, 4.0, uab.At(0, 1), 1e-14)
	require.InDelta(t, 4.0, uab.At(1, 0), 1e-14)
}

func TestKanamoriTwoOrbitals(t *testing.T) {
	u, j := 4.0, 0.5
	e, err := Kanamori(4, u, j)
	require.NoError(t, err)
	uabcd, err := RPATensor(e)
	require.NoError(t, err)
	uab, err := DensDens(uabcd, 4)
	require.NoError(t, err)

	// Index convention: [orb0 up, orb1 up, orb0 down, orb1 down].
	for i := 0; i < 4; i++ {
		require.InDelta(t, 0, uab.At(i, i), 1e-14)
	}
	// Same orbital, opposite spin: U.
	require.InDelta(t, u, uab.At(0, 2), 1e-14)
	require.InDelta(t, u, uab.At(1, 3), 1e-14)
	// Different orbital, same spin: U - 3J.
	require.InDelta(t, u-3*j, uab.At(0, 1), 1e-14)
	require.InDelta(t, u-3*j, uab.At(2, 3), 1e-14)
	// Different orbital, opposite spin: U - 2J.
	require.InDelta(t, u-2*j, uab.At(0, 3), 1e-14)
	require.InDelta(t, u-2*j, uab.At(1, 2), 1e-14)
	// The matrix is symmetric.
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			require.InDelta(t, uab.At(a, b), uab.At(b, a), 1e-14)
		}
	}
}

func TestKanamoriRejectsOddOrbitals(t *testing.T) {
	_, err := Kanamori(3, 1, 0)
	require.Error(t, err)
	_, err = Kanamori(0, 1, 0)
	require.Error(t, err)
}

func TestRPATensorPlacesDensityTerms(t *testing.T) {
	e := NewExpr(3).Add(1.5, 0, 2).Add(0.5, 0, 2).Add(-1, 1, 1)
	u, err := RPATensor(e)
	require.NoError(t, err)
	require.Len(t, u, 81)
	require.InDelta(t, 2.0, u[Index4(0, 0, 2, 2, 3)], 1e-14)
	require.InDelta(t, -1.0, u[Index4(1, 1, 1, 1, 3)], 1e-14)
	require.InDelta(t, 0, u[Index4(0, 1, 2, 2, 3)], 1e-14)
}

func TestRPATensorRejectsOutOfRange(t *testing.T) {
	_, err := RPATensor(NewExpr(2).Add(1, 0, 2))
	require.Error(t, err)
	_, err = RPATensor(NewExpr(2).Add(1, -1, 0))
	require.Error(t, err)
}

func TestDensDensShapeCheck(t *testing.T) {
	_, err := DensDens(make([]float64, 15), 2)
	require.Error(t, err)
}
