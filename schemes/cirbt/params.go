package cirbt

import (
	"encoding/json"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/google/go-cmp/cmp"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/bignum"
	"golang.org/x/crypto/blake2b"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// ParameterSet enumerates the predefined parameter sets.
type ParameterSet int

const (
	// STD128_CMUX_1 targets 128-bit security with a CC gadget (2^1, 8).
	STD128_CMUX_1 ParameterSet = iota + 1
	// STD128_CMUX_2 targets 128-bit security with a CC gadget (2^3, 4).
	STD128_CMUX_2
	// STD128_CMUX_3 targets 128-bit security with a CC gadget (2^2, 8).
	STD128_CMUX_3
	// STD128_CMUX_4 targets 128-bit security with a CC gadget (2^2, 8) and finer EP and HT gadgets.
	STD128_CMUX_4
)

func (set ParameterSet) String() string {
	switch set {
	case STD128_CMUX_1:
		return "STD128_CMUX_1"
	case STD128_CMUX_2:
		return "STD128_CMUX_2"
	case STD128_CMUX_3:
		return "STD128_CMUX_3"
	case STD128_CMUX_4:
		return "STD128_CMUX_4"
	default:
		return fmt.Sprintf("ParameterSet(%d)", int(set))
	}
}

// Literal returns the [ParametersLiteral] of the parameter set.
func (set ParameterSet) Literal() (pl ParametersLiteral, err error) {

	pl = ParametersLiteral{
		LogN:        11,
		LogQ:        54,
		LWEN:        571,
		LWEQ:        1024,
		Sigma:       lwe.DefaultSigma,
		LWEKeyDist:  lwe.Binary,
		RLWEKeyDist: lwe.Binary,
		SS:          GadgetLiteral{LogBase: 28, Digits: 1},
	}

	switch set {
	case STD128_CMUX_1:
		pl.EP = GadgetLiteral{LogBase: 17, Digits: 2}
		pl.HT = GadgetLiteral{LogBase: 17, Digits: 2}
		pl.CC = GadgetLiteral{LogBase: 1, Digits: 8}
	case STD128_CMUX_2:
		pl.EP = GadgetLiteral{LogBase: 13, Digits: 3}
		pl.HT = GadgetLiteral{LogBase: 17, Digits: 2}
		pl.CC = GadgetLiteral{LogBase: 3, Digits: 4}
	case STD128_CMUX_3:
		pl.EP = GadgetLiteral{LogBase: 13, Digits: 3}
		pl.HT = GadgetLiteral{LogBase: 17, Digits: 2}
		pl.CC = GadgetLiteral{LogBase: 2, Digits: 8}
	case STD128_CMUX_4:
		pl.EP = GadgetLiteral{LogBase: 10, Digits: 4}
		pl.HT = GadgetLiteral{LogBase: 13, Digits: 3}
		pl.CC = GadgetLiteral{LogBase: 2, Digits: 8}
	default:
		return pl, errs.Configuration("unknown parameter set %s", set)
	}

	return
}

// GadgetLiteral is the literal of a gadget of base 2^LogBase with Digits digits.
type GadgetLiteral struct {
	LogBase int
	Digits  int
}

// ParametersLiteral is a literal representation of circuit-bootstrapping parameters.
// It has public fields and is used to express unchecked user-defined parameters
// literally into Go programs. The [NewParametersFromLiteral] function is used
// to generate the actual checked parameters from the literal representation.
//
// If Q is zero, it is set to the largest LogQ-bit prime congruent to 1 mod 2N.
type ParametersLiteral struct {
	LogN int
	LogQ int
	Q    uint64

	LWEN int
	LWEQ uint64

	Sigma       float64
	LWEKeyDist  lwe.KeyDistribution
	RLWEKeyDist lwe.KeyDistribution

	// EP is the gadget of the blind-rotation keys.
	EP GadgetLiteral
	// HT is the gadget of the trace keys.
	HT GadgetLiteral
	// SS is the gadget of the scheme-switching key.
	SS GadgetLiteral
	// CC is the gadget of the output RGSW ciphertexts.
	CC GadgetLiteral
}

// Parameters is the immutable set of circuit-bootstrapping parameters and
// the tables derived from them. It is safe for concurrent use.
type Parameters struct {
	literal ParametersLiteral

	lwe           lwe.Parameters
	rlwe          rlwe.Parameters
	blindRotation blindrot.Parameters

	gadgetHT gadget.Gadget
	gadgetSS gadget.Gadget
	gadgetCC gadget.Gadget

	bitwidth int
	lut      ring.Poly
	offset   ring.Poly
	nInv     uint64

	digest [blake2b.Size256]byte
}

// NewParametersFromLiteral validates the literal and precomputes the gadget tables,
// the multi-value LUT, the monomial table and N^{-1} mod Q.
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {

	if pl.LogN < 2 || pl.LogN > 16 {
		return params, errs.Configuration("invalid LogN %d: must be in [2, 16]", pl.LogN)
	}

	N := 1 << pl.LogN

	if pl.Q == 0 {
		if pl.Q, err = gadget.LastPrime(pl.LogQ, uint64(N)<<1); err != nil {
			return params, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
		}
	}

	if pl.Q%(uint64(N)<<1) != 1 || !ring.IsPrime(pl.Q) {
		return params, errs.Configuration("invalid modulus %d: must be a prime congruent to 1 mod 2N", pl.Q)
	}

	pl.LogQ = bits.Len64(pl.Q)

	if pl.Sigma == 0 {
		pl.Sigma = lwe.DefaultSigma
	}

	if params.lwe, err = lwe.NewParametersFromLiteral(lwe.ParametersLiteral{
		N:       pl.LWEN,
		Q:       pl.LWEQ,
		Sigma:   pl.Sigma,
		KeyDist: pl.LWEKeyDist,
	}); err != nil {
		return params, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	switch pl.RLWEKeyDist {
	case lwe.Binary, lwe.Ternary, lwe.Gaussian:
	default:
		return params, errs.Configuration("invalid RLWE key distribution %s", pl.RLWEKeyDist)
	}

	// Xs is unused: RLWE secrets are sampled by ske under RLWEKeyDist.
	if params.rlwe, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    pl.LogN,
		Q:       []uint64{pl.Q},
		Xs:      ring.Ternary{P: 2.0 / 3.0},
		Xe:      ring.DiscreteGaussian{Sigma: pl.Sigma, Bound: lwe.DefaultBoundFactor * pl.Sigma},
		NTTFlag: true,
	}); err != nil {
		return params, fmt.Errorf("cannot NewParametersFromLiteral: %w: %w", errs.ErrConfiguration, err)
	}

	var gadgets [4]gadget.Gadget
	for i, gl := range []GadgetLiteral{pl.EP, pl.HT, pl.SS, pl.CC} {
		if gadgets[i], err = gadget.NewGadget(pl.Q, gl.LogBase, gl.Digits); err != nil {
			return params, fmt.Errorf("cannot NewParametersFromLiteral: %s gadget: %w", [4]string{"EP", "HT", "SS", "CC"}[i], err)
		}
	}

	if params.blindRotation, err = blindrot.NewParameters(params.rlwe, params.lwe, gadgets[0]); err != nil {
		return params, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	params.gadgetHT = gadgets[1]
	params.gadgetSS = gadgets[2]
	params.gadgetCC = gadgets[3]

	params.literal = pl

	numLUT := params.gadgetCC.Digits

	params.bitwidth = bitwidth(numLUT)

	if 1<<(params.bitwidth+1) > N {
		return params, errs.Configuration("invalid CC gadget: %d digits do not fit in the ring degree %d", numLUT, N)
	}

	r := params.rlwe.RingQ()

	params.nInv = new(big.Int).ModInverse(bignum.NewInt(N), bignum.NewInt(pl.Q)).Uint64()

	params.lut = NewLUT(r, params.gadgetCC, params.bitwidth)
	params.offset = newOffset(r, params.gadgetCC, params.nInv)

	buf, err := json.Marshal(pl)
	if err != nil {
		return params, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	params.digest = blake2b.Sum256(buf)

	return
}

// bitwidth returns ceil(log2(numLUT)).
func bitwidth(numLUT int) (b int) {
	for 1<<b < numLUT {
		b++
	}
	return
}

// NewLUT returns the multi-value LUT of the gadget g in the NTT domain: for i in [0, N>>(bitwidth+1))
// and j in [0, g.Digits), coefficient (i<<bitwidth)+j is -g.Powers[j]/2 and coefficient
// N/2+(i<<bitwidth)+j is g.Powers[j]/2.
func NewLUT(r *ring.Ring, g gadget.Gadget, bitwidth int) (lut ring.Poly) {

	N := r.N()
	Q := r.SubRings[0].Modulus

	lut = r.NewPoly()
	coeffs := lut.Coeffs[0]

	for i := 0; i < N>>(bitwidth+1); i++ {
		for j := 0; j < g.Digits; j++ {
			half := g.Powers[j] >> 1
			coeffs[(i<<bitwidth)+j] = (Q - half) % Q
			coeffs[(N>>1)+(i<<bitwidth)+j] = half
		}
	}

	r.NTT(lut, lut)

	return
}

// newOffset returns sum_{i < g.Digits} (g.Powers[i]/2) * nInv * X^{i} mod Q in the NTT domain.
func newOffset(r *ring.Ring, g gadget.Gadget, nInv uint64) (offset ring.Poly) {

	Q := r.SubRings[0].Modulus

	offset = r.NewPoly()
	for i := 0; i < g.Digits; i++ {
		offset.Coeffs[0][i] = mulMod(g.Powers[i]>>1, nInv, Q)
	}

	r.NTT(offset, offset)

	return
}

// ParametersLiteral returns the [ParametersLiteral] of the target [Parameters],
// with the modulus Q resolved.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return p.literal
}

// LWE returns the parameters of the bootstrapped LWE ciphertexts.
func (p Parameters) LWE() lwe.Parameters {
	return p.lwe
}

// RLWE returns the ring parameters.
func (p Parameters) RLWE() rlwe.Parameters {
	return p.rlwe
}

// BlindRotation returns the parameters of the accumulator.
func (p Parameters) BlindRotation() blindrot.Parameters {
	return p.blindRotation
}

// N returns the ring degree.
func (p Parameters) N() int {
	return p.rlwe.N()
}

// Q returns the ring modulus.
func (p Parameters) Q() uint64 {
	return p.literal.Q
}

// GadgetEP returns the gadget of the blind-rotation keys.
func (p Parameters) GadgetEP() gadget.Gadget {
	return p.blindRotation.Gadget
}

// GadgetHT returns the gadget of the trace keys.
func (p Parameters) GadgetHT() gadget.Gadget {
	return p.gadgetHT
}

// GadgetSS returns the gadget of the scheme-switching key.
func (p Parameters) GadgetSS() gadget.Gadget {
	return p.gadgetSS
}

// GadgetCC returns the gadget of the output RGSW ciphertexts.
func (p Parameters) GadgetCC() gadget.Gadget {
	return p.gadgetCC
}

// NumLUT returns the number of values extracted by the multi-value bootstrapping, that is
// the number of digits of the CC gadget.
func (p Parameters) NumLUT() int {
	return p.gadgetCC.Digits
}

// Bitwidth returns ceil(log2(NumLUT())).
func (p Parameters) Bitwidth() int {
	return p.bitwidth
}

// LUT returns the multi-value LUT in the NTT domain. The returned polynomial must not be modified.
func (p Parameters) LUT() ring.Poly {
	return p.lut
}

// Monomial returns X^{-i} for i in [0, 2N) in the NTT and Montgomery domain.
// The returned polynomial must not be modified.
func (p Parameters) Monomial(i uint64) ring.Poly {
	return p.blindRotation.Monomials[i%p.blindRotation.TwoN()]
}

// NInv returns N^{-1} mod Q.
func (p Parameters) NInv() uint64 {
	return p.nInv
}

// Digest returns the blake2b-256 digest of the parameters, which identifies the
// parameters a key set was generated for.
func (p Parameters) Digest() [blake2b.Size256]byte {
	return p.digest
}

// Equal returns true if both sets of parameters are identical.
func (p Parameters) Equal(other *Parameters) bool {
	return other != nil && cmp.Equal(p.literal, other.literal)
}

// MarshalJSON returns a JSON representation of this parameter set. See [json.Marshal].
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.literal)
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See [json.Unmarshal].
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	var pl ParametersLiteral
	if err = json.Unmarshal(data, &pl); err != nil {
		return
	}
	*p, err = NewParametersFromLiteral(pl)
	return
}
