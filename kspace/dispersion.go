// dispersion.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Package kspace holds single-particle dispersions on a uniform
// momentum mesh and the finite-temperature density-matrix evaluator.
package kspace

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"hartree/zmat"
)

// Dispersion is a single-particle dispersion: one complex Hermitian
// orbital block per momentum point, all blocks of the same shape.
type Dispersion struct {
	norb   int
	blocks []*zmat.Dense
}

// New validates that every block is square and of the same orbital
// dimension and wraps them into a Dispersion.
func New(blocks []*zmat.Dense) (*Dispersion, error) {
	if len(blocks) == 0 {
		return nil, errors.New("kspace: empty momentum mesh")
	}
	norb := blocks[0].Rows()
	for k, b := range blocks {
		if b.Rows() != norb || b.Cols() != norb {
			return nil, errors.Errorf("kspace: block %d has shape %dx%d, want %dx%d",
				k, b.Rows(), b.Cols(), norb, norb)
		}
	}
	return &Dispersion{norb: norb, blocks: blocks}, nil
}

// NK returns the number of momentum points.
func (d *Dispersion) NK() int { return len(d.blocks) }

// Norb returns the orbital dimension of each block.
func (d *Dispersion) Norb() int { return d.norb }

// At returns the block at momentum index k without copying.
func (d *Dispersion) At(k int) *zmat.Dense { return d.blocks[k] }

func (d *Dispersion) Clone() *Dispersion {
	blocks := make([]*zmat.Dense, len(d.blocks))
	for k, b := range d.blocks {
		blocks[k] = b.Clone()
	}
	return &Dispersion{norb: d.norb, blocks: blocks}
}

// CopyFrom overwrites every block of d with the blocks of src.
func (d *Dispersion) CopyFrom(src *Dispersion) error {
	if d.norb != src.norb || len(d.blocks) != len(src.blocks) {
		return errors.Errorf("kspace: mismatched dispersions %d/%d vs %d/%d",
			d.norb, len(d.blocks), src.norb, len(src.blocks))
	}
	for k, b := range src.blocks {
		d.blocks[k].CopyFrom(b)
	}
	return nil
}

// AddDiag adds diag(m) to every momentum block in place.
func (d *Dispersion) AddDiag(m []float64) error {
	if len(m) != d.norb {
		return errors.Errorf("kspace: diagonal of length %d, want %d", len(m), d.norb)
	}
	for _, b := range d.blocks {
		for i, v := range m {
			b.Set(i, i, b.At(i, i)+complex(v, 0))
		}
	}
	return nil
}

// AddConst adds c to every diagonal entry of every block, shifting all
// single-particle energies by c.
func (d *Dispersion) AddConst(c float64) {
	for _, b := range d.blocks {
		for i := 0; i < d.norb; i++ {
			b.Set(i, i, b.At(i, i)+complex(c, 0))
		}
	}
}

// AddBlock adds alpha*op to every momentum block in place; op is a
// momentum-independent orbital matrix.
func (d *Dispersion) AddBlock(alpha complex128, op *zmat.Dense) error {
	if op.Rows() != d.norb || op.Cols() != d.norb {
		return errors.Errorf("kspace: operator shape %dx%d, want %dx%d",
			op.Rows(), op.Cols(), d.norb, d.norb)
	}
	for _, b := range d.blocks {
		b.Add(alpha, op)
	}
	return nil
}

// FromHoppings Fourier-sums real-space hopping matrices H_r into a
// dispersion on a uniform nk-point 1D momentum grid,
//
//	e(k_j) = sum_r H_r exp(i 2*pi*j*r/nk),  k_j = 2*pi*j/nk.
//
// Hermiticity of every e(k) requires H_{-r} = H_r†, which is checked.
func FromHoppings(hops map[int]*zmat.Dense, nk int) (*Dispersion, error) {
	if nk <= 0 {
		return nil, errors.Errorf("kspace: non-positive mesh size %d", nk)
	}
	if len(hops) == 0 {
		return nil, errors.New("kspace: no hopping matrices")
	}

	var norb int
	for _, h := range hops {
		norb = h.Rows()
		break
	}
	for r, h := range hops {
		if h.Rows() != norb || h.Cols() != norb {
			return nil, errors.Errorf("kspace: hopping %d has shape %dx%d, want %dx%d",
				r, h.Rows(), h.Cols(), norb, norb)
		}
		conj, ok := hops[-r]
		if !ok {
			return nil, errors.Errorf("kspace: hopping %d has no partner at %d", r, -r)
		}
		for i := 0; i < norb; i++ {
			for j := 0; j < norb; j++ {
				if cmplx.Abs(conj.At(i, j)-cmplx.Conj(h.At(j, i))) > 1e-12 {
					return nil, errors.Errorf("kspace: hoppings %d and %d are not Hermitian partners", r, -r)
				}
			}
		}
	}

	blocks := make([]*zmat.Dense, nk)
	for j := 0; j < nk; j++ {
		ek := zmat.NewDense(norb, norb)
		for r, h := range hops {
			phase := cmplx.Exp(complex(0, 2*math.Pi*float64(j)*float64(r)/float64(nk)))
			ek.Add(phase, h)
		}
		blocks[j] = ek
	}
	return New(blocks)
}

// TightBinding1D builds a nearest-neighbour chain with norb identical
// orbitals and hopping t, e(k) = 2*t*cos(k) per orbital.
func TightBinding1D(nk, norb int, t float64) (*Dispersion, error) {
	h := zmat.NewDense(norb, norb)
	for i := 0; i < norb; i++ {
		h.Set(i, i, complex(t, 0))
	}
	return FromHoppings(map[int]*zmat.Dense{1: h, -1: h.Clone()}, nk)
}
