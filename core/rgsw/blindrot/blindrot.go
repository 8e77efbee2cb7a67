// Package blindrot implements blind-rotation accumulators: given an RLWE accumulator acc
// and an LWE mask a switched to modulus 2N, they homomorphically evaluate acc * X^{<a, s>},
// s being the LWE secret encrypted in the accumulator key.
//
// Two variants implement the [Accumulator] interface:
//   - [CGGI]: per-coefficient external products with gadget encryptions of binary s[i],
//     acc <- acc + (acc x RGSW(s[i])) * (X^{a[i]} - 1);
//   - [LMKCDEY]: Algorithm 3 of https://eprint.iacr.org/2022/198, external products with
//     RGSW(X^{s[i]}) grouped by the discrete logarithm of a[i] in Z_{2N}^{*} and automorphisms.
package blindrot

import (
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// Variant enumerates the blind-rotation accumulators.
type Variant int

const (
	// CGGI is the accumulator of Chillotti, Gama, Georgieva and Izabachene, binary LWE secrets only.
	CGGI Variant = iota
	// LMKCDEY is the automorphism-based accumulator of Lee, Micciancio, Kim, Choi, Deryabin, Eom and Yoo.
	LMKCDEY
)

func (v Variant) String() string {
	switch v {
	case CGGI:
		return "CGGI"
	case LMKCDEY:
		return "LMKCDEY"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// AccKey is the evaluation key of an [Accumulator]. Implementations are read-only
// once generated and safe for concurrent use.
type AccKey interface {
	Variant() Variant
	Check(params Parameters) error
	BinarySize() int
	WriteTo(w io.Writer) (n int64, err error)
	ReadFrom(r io.Reader) (n int64, err error)
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(p []byte) error
}

// Accumulator is the interface implemented by the blind-rotation accumulators.
// Implementations own scratch buffers and are not safe for concurrent use, see ShallowCopy.
type Accumulator interface {

	// Variant returns the variant of the accumulator.
	Variant() Variant

	// KeyGenAcc generates the accumulator key of the LWE secret skLWE under the RLWE secret skRLWE.
	KeyGenAcc(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey) (AccKey, error)

	// KeyGenAccWithSeed is as KeyGenAcc, with the randomness of the key derived from seed.
	KeyGenAccWithSeed(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey, seed []byte) (AccKey, error)

	// EvalAcc evaluates acc <- acc * X^{sum_i a[i]*s[i]} in place, a being given mod 2N.
	// acc must be in the NTT domain.
	EvalAcc(key AccKey, acc *rlwe.Ciphertext, a []uint64) error

	// ShallowCopy returns an accumulator sharing the read-only data of the receiver
	// with fresh buffers. The receiver and the returned value can be used concurrently.
	ShallowCopy() Accumulator
}

// NewAccumulator instantiates the [Accumulator] of the given variant.
func NewAccumulator(params Parameters, v Variant) (Accumulator, error) {
	switch v {
	case CGGI:
		return NewCGGIEvaluator(params), nil
	case LMKCDEY:
		return NewLMKCDEYEvaluator(params), nil
	default:
		return nil, errs.Configuration("unknown blind-rotation variant %s", v)
	}
}

// NewAccKey allocates an empty [AccKey] of the given variant, to be populated with ReadFrom.
func NewAccKey(v Variant) (AccKey, error) {
	switch v {
	case CGGI:
		return &CGGIKey{}, nil
	case LMKCDEY:
		return &LMKCDEYKey{}, nil
	default:
		return nil, errs.Configuration("unknown blind-rotation variant %s", v)
	}
}

// Parameters are the parameters of a blind-rotation accumulator.
type Parameters struct {
	// RLWE are the parameters of the accumulator, a single NTT-friendly prime Q.
	RLWE rlwe.Parameters

	// LWE are the parameters of the rotated LWE samples.
	LWE lwe.Parameters

	// Gadget is the gadget of the accumulator keys, over Q.
	Gadget gadget.Gadget

	// Monomials[i] = X^{-i} for i in [0, 2N), in the NTT and Montgomery domain.
	Monomials []ring.Poly
}

// NewParameters validates the accumulator parameters and precomputes the monomial table.
func NewParameters(paramsRLWE rlwe.Parameters, paramsLWE lwe.Parameters, g gadget.Gadget) (params Parameters, err error) {

	if paramsRLWE.QCount() != 1 {
		return params, errs.Configuration("invalid accumulator ring: %d moduli, a single prime is required", paramsRLWE.QCount())
	}

	if paramsRLWE.Q()[0] != g.Q {
		return params, errs.Configuration("invalid accumulator gadget: modulus %d does not match the ring modulus %d", g.Q, paramsRLWE.Q()[0])
	}

	if !paramsRLWE.NTTFlag() {
		return params, errs.Configuration("invalid accumulator ring: ciphertexts must be in the NTT domain")
	}

	return Parameters{
		RLWE:      paramsRLWE,
		LWE:       paramsLWE,
		Gadget:    g,
		Monomials: NewMonomialTable(paramsRLWE.RingQ()),
	}, nil
}

// TwoN returns 2N, the modulus of the rotation exponents.
func (p Parameters) TwoN() uint64 {
	return uint64(p.RLWE.N()) << 1
}

// MonomialX returns X^k for k in [0, 2N), in the NTT and Montgomery domain.
func (p Parameters) MonomialX(k uint64) ring.Poly {
	twoN := p.TwoN()
	return p.Monomials[(twoN-k%twoN)%twoN]
}
