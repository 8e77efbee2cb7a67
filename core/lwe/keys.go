package lwe

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// SecretKey is an LWE secret key, a vector of small signed integers.
type SecretKey struct {
	Value []int64
}

// NewSecretKey allocates a zero [SecretKey] of the dimension of params.
func NewSecretKey(params Parameters) *SecretKey {
	return &SecretKey{Value: make([]int64, params.N())}
}

// CopyNew returns a deep copy of the key.
func (sk SecretKey) CopyNew() *SecretKey {
	return &SecretKey{Value: append([]int64(nil), sk.Value...)}
}

// Equal performs a deep equal.
func (sk SecretKey) Equal(other *SecretKey) bool {
	if other == nil || len(sk.Value) != len(other.Value) {
		return false
	}
	for i := range sk.Value {
		if sk.Value[i] != other.Value[i] {
			return false
		}
	}
	return true
}

// IsBinary returns true if all the coefficients of the key are in {0, 1}.
func (sk SecretKey) IsBinary() bool {
	for _, si := range sk.Value {
		if si != 0 && si != 1 {
			return false
		}
	}
	return true
}

// KeyGenerator generates LWE secret keys.
type KeyGenerator struct {
	params Parameters
	prng   sampling.PRNG
}

// NewKeyGenerator creates a new [KeyGenerator] drawing its randomness from a fresh PRNG.
func NewKeyGenerator(params Parameters) *KeyGenerator {
	prng, err := sampling.NewPRNG()

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	return &KeyGenerator{params: params, prng: prng}
}

// WithPRNG returns a shallow copy of the receiver drawing its randomness from prng.
func (kgen KeyGenerator) WithPRNG(prng sampling.PRNG) *KeyGenerator {
	return &KeyGenerator{params: kgen.params, prng: prng}
}

// GenSecretKeyNew generates a new secret key following the key distribution of the parameters.
func (kgen KeyGenerator) GenSecretKeyNew() (sk *SecretKey, err error) {

	sk = NewSecretKey(kgen.params)

	switch kgen.params.KeyDist() {
	case Binary:
		for i := range sk.Value {
			sk.Value[i] = int64(ring.RandUniform(kgen.prng, 2, 1))
		}
	case Ternary:
		err = SampleSmall(kgen.prng, ring.Ternary{P: 2.0 / 3.0}, sk.Value)
	case Gaussian:
		err = SampleSmall(kgen.prng, ring.DiscreteGaussian{Sigma: kgen.params.Sigma(), Bound: DefaultBoundFactor * kgen.params.Sigma()}, sk.Value)
	}

	if err != nil {
		return nil, fmt.Errorf("cannot GenSecretKeyNew: %w", err)
	}

	return
}

// carrierModulus is the NTT-friendly prime 2^61 - 2^21 + 1. Small coefficients are
// drawn with the ring samplers over this modulus and then centered.
const carrierModulus = 0x1fffffffffe00001

// smallSampler draws vectors of small signed integers with a ring sampler.
type smallSampler struct {
	sampler ring.Sampler
	buff    ring.Poly
}

func newSmallSampler(prng sampling.PRNG, n int, X ring.DistributionParameters) (*smallSampler, error) {

	logN := bits.Len64(uint64(n - 1))
	if logN < 4 {
		logN = 4
	}

	r, err := ring.NewRing(1<<logN, []uint64{carrierModulus})
	if err != nil {
		return nil, err
	}

	sampler, err := ring.NewSampler(prng, r, X, false)
	if err != nil {
		return nil, err
	}

	return &smallSampler{sampler: sampler, buff: r.NewPoly()}, nil
}

func (s smallSampler) read(out []int64) {
	coeffs := s.buff.Coeffs[0]
	for i := 0; i < len(out); i += len(coeffs) {
		s.sampler.Read(s.buff)
		for j := 0; j < len(coeffs) && i+j < len(out); j++ {
			if c := coeffs[j]; c > carrierModulus>>1 {
				out[i+j] = -int64(carrierModulus - c)
			} else {
				out[i+j] = int64(c)
			}
		}
	}
}

// SampleSmall fills out with signed integers following the distribution X
// (ternary or discrete Gaussian) drawn from prng.
func SampleSmall(prng sampling.PRNG, X ring.DistributionParameters, out []int64) (err error) {
	s, err := newSmallSampler(prng, len(out), X)
	if err != nil {
		return fmt.Errorf("cannot SampleSmall: %w", err)
	}
	s.read(out)
	return
}
