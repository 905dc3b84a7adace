// density.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------
package kspace

import (
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"hartree/zmat"
)

// Fermi is the Fermi-Dirac occupation 1/(exp(beta*e)+1), written so
// that beta*e far from zero saturates to 0 or 1 without overflow.
func Fermi(e, beta float64) float64 {
	x := beta * e
	if x > 0 {
		ex := math.Exp(-x)
		return ex / (1 + ex)
	}
	return 1 / (1 + math.Exp(x))
}

// DensityMatrix diagonalizes every momentum block of d, fills the
// eigenstates with Fermi-Dirac occupations at chemical potential mu and
// averages over the mesh with uniform weight,
//
//	rho = 1/N_k sum_k V_k diag(f(eps_k - mu)) V_k†.
//
// The per-momentum eigendecompositions are independent and are fanned
// out over GOMAXPROCS goroutines.
func DensityMatrix(d *Dispersion, beta, mu float64) (*zmat.Dense, error) {
	if beta <= 0 {
		return nil, errors.Errorf("kspace: non-positive inverse temperature %v", beta)
	}
	f := func(e float64) float64 { return Fermi(e-mu, beta) }

	rho, err := sumBlocks(d, func(k int, acc *zmat.Dense) error {
		rhoK, err := zmat.Func(d.At(k), f)
		if err != nil {
			return errors.Wrapf(err, "momentum point %d", k)
		}
		acc.Add(1, rhoK)
		return nil
	})
	if err != nil {
		return nil, err
	}
	rho.Scale(complex(1/float64(d.NK()), 0))
	return rho, nil
}

// Eigenvalues returns the sorted eigenvalues of every momentum block.
func Eigenvalues(d *Dispersion) ([][]float64, error) {
	eigs := make([][]float64, d.NK())
	err := eachBlock(d.NK(), func(k int) error {
		e, err := zmat.Eigvalsh(d.At(k))
		if err != nil {
			return errors.Wrapf(err, "momentum point %d", k)
		}
		eigs[k] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return eigs, nil
}

// TotalDensity evaluates sum_k Tr f(eps_k - mu) / N_k from precomputed
// eigenvalues.
func TotalDensity(eigs [][]float64, beta, mu float64) float64 {
	var n float64
	for _, ek := range eigs {
		for _, e := range ek {
			n += Fermi(e-mu, beta)
		}
	}
	return n / float64(len(eigs))
}

// sumBlocks accumulates fn over all momentum points into a single
// orbital matrix, splitting the mesh across GOMAXPROCS workers with
// one partial accumulator each.
func sumBlocks(d *Dispersion, fn func(k int, acc *zmat.Dense) error) (*zmat.Dense, error) {
	nk, norb := d.NK(), d.Norb()
	workers := runtime.GOMAXPROCS(-1)
	if workers > nk {
		workers = nk
	}

	if workers <= 1 {
		acc := zmat.NewDense(norb, norb)
		for k := 0; k < nk; k++ {
			if err := fn(k, acc); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}

	parts := make([]*zmat.Dense, workers)
	errs := make([]error, workers)
	chunk := nk / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if w == workers-1 {
			hi = nk
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			acc := zmat.NewDense(norb, norb)
			for k := lo; k < hi; k++ {
				if err := fn(k, acc); err != nil {
					errs[w] = err
					return
				}
			}
			parts[w] = acc
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	total := zmat.NewDense(norb, norb)
	for _, p := range parts {
		total.Add(1, p)
	}
	return total, nil
}

// eachBlock runs fn for every momentum index, fanned out over
// GOMAXPROCS workers.
func eachBlock(nk int, fn func(k int) error) error {
	workers := runtime.GOMAXPROCS(-1)
	if workers > nk {
		workers = nk
	}

	if workers <= 1 {
		for k := 0; k < nk; k++ {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, workers)
	chunk := nk / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if w == workers-1 {
			hi = nk
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for k := lo; k < hi; k++ {
				if err := fn(k); err != nil {
					errs[w] = err
					return
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
