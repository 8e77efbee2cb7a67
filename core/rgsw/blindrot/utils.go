package blindrot

import (
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/utils/concurrency"
)

// NewMonomialTable returns the 2N polynomials X^{-i}, i in [0, 2N), in the NTT and
// Montgomery domain: X^{-i} = -X^{N-i} for i in [1, N] and X^{2N-i} for i in (N, 2N).
func NewMonomialTable(r *ring.Ring) (table []ring.Poly) {

	N := r.N()
	Q := r.SubRings[0].Modulus

	table = make([]ring.Poly, 2*N)

	concurrency.ParallelFor(2*N, func(i int) {
		pol := r.NewPoly()
		switch {
		case i == 0:
			pol.Coeffs[0][0] = 1
		case i <= N:
			pol.Coeffs[0][N-i] = Q - 1
		default:
			pol.Coeffs[0][2*N-i] = 1
		}
		r.NTT(pol, pol)
		r.MForm(pol, pol)
		table[i] = pol
	})

	return
}

// getGaloisElementInverseMap generates a map [(+/-) g^{k} mod 2N] = +/- k for k in [0, N/2),
// the value -1 = -g^0 being mapped to the sentinel 2N to keep it apart from 1 = g^0.
func getGaloisElementInverseMap(GaloisGen uint64, N int) (GaloisGenDiscreteLog map[uint64]int) {

	twoN := N << 1
	NHalf := N >> 1
	mask := uint64(twoN - 1)

	GaloisGenDiscreteLog = map[uint64]int{}

	var pow uint64 = 1
	for i := 0; i < NHalf; i++ {
		GaloisGenDiscreteLog[pow] = i
		if i == 0 {
			GaloisGenDiscreteLog[uint64(twoN)-pow] = twoN
		} else {
			GaloisGenDiscreteLog[uint64(twoN)-pow] = -i
		}
		pow *= GaloisGen
		pow &= mask
	}

	return
}
