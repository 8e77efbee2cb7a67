// Package ske implements symmetric RLWE encryption of polynomials mod a plaintext
// modulus p on top of lattigo's rlwe package, and the generation of RLWE secret keys
// under a selectable distribution.
package ske

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// KeyGenerator generates RLWE secret keys under a binary, ternary or Gaussian distribution.
type KeyGenerator struct {
	params rlwe.Parameters
	prng   sampling.PRNG
}

// NewKeyGenerator creates a new [KeyGenerator] drawing its randomness from a fresh PRNG.
func NewKeyGenerator(params rlwe.Parameters) *KeyGenerator {
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

// GenSecretKeyNew generates a new secret key whose coefficients follow dist.
// The key is stored in the NTT and Montgomery domain, as lattigo's keys.
func (kgen KeyGenerator) GenSecretKeyNew(dist lwe.KeyDistribution) (sk *rlwe.SecretKey, err error) {

	s := make([]int64, kgen.params.N())

	switch dist {
	case lwe.Binary:
		for i := range s {
			s[i] = int64(ring.RandUniform(kgen.prng, 2, 1))
		}
	case lwe.Ternary:
		err = lwe.SampleSmall(kgen.prng, ring.Ternary{P: 2.0 / 3.0}, s)
	case lwe.Gaussian:
		err = lwe.SampleSmall(kgen.prng, ring.DiscreteGaussian{Sigma: lwe.DefaultSigma, Bound: lwe.DefaultBoundFactor * lwe.DefaultSigma}, s)
	default:
		return nil, errs.Configuration("invalid RLWE key distribution %s", dist)
	}

	if err != nil {
		return nil, fmt.Errorf("cannot GenSecretKeyNew: %w", err)
	}

	return NewSecretKeyFromCoefficients(kgen.params, s), nil
}

// NewSecretKeyFromCoefficients returns the secret key of coefficients s,
// stored in the NTT and Montgomery domain.
func NewSecretKeyFromCoefficients(params rlwe.Parameters, s []int64) (sk *rlwe.SecretKey) {
	sk = rlwe.NewSecretKey(params)
	setSigned(params.RingQ(), s, sk.Value.Q)
	if rP := params.RingP(); rP != nil {
		setSigned(rP, s, sk.Value.P)
	}
	return
}

func setSigned(r *ring.Ring, s []int64, pol ring.Poly) {
	for j, qi := range r.ModuliChain()[:r.Level()+1] {
		coeffs := pol.Coeffs[j]
		for i, si := range s {
			if si < 0 {
				coeffs[i] = qi - uint64(-si)%qi
			} else {
				coeffs[i] = uint64(si) % qi
			}
		}
	}
	r.NTT(pol, pol)
	r.MForm(pol, pol)
}

// SecretCoefficients returns the centered coefficients of the secret key sk.
func SecretCoefficients(params rlwe.Parameters, sk *rlwe.SecretKey) (s []int64) {

	r := params.RingQ().AtLevel(0)

	buff := r.NewPoly()
	r.IMForm(sk.Value.Q, buff)
	r.INTT(buff, buff)

	q := r.SubRings[0].Modulus

	s = make([]int64, r.N())
	for i, c := range buff.Coeffs[0] {
		if c > q>>1 {
			s[i] = -int64(q - c)
		} else {
			s[i] = int64(c)
		}
	}

	return
}
