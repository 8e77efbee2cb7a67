// Package lwe implements plain LWE encryption over a small modulus q:
// secret keys under binary, ternary or Gaussian distributions, ciphertexts (A, B)
// with B = <A, s> + m*(q/p) + e mod q, and their encryption and decryption.
package lwe

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/tuneinsight/cirbt/utils/errs"
)

// KeyDistribution enumerates the distributions of LWE and RLWE secret keys.
type KeyDistribution int

const (
	// Binary samples the coefficients uniformly in {0, 1}.
	Binary KeyDistribution = iota
	// Ternary samples the coefficients uniformly in {-1, 0, 1}.
	Ternary
	// Gaussian samples the coefficients from a discrete Gaussian of standard deviation 3.2.
	Gaussian
)

// DefaultSigma is the standard deviation of the error distribution and of Gaussian secrets.
const DefaultSigma = 3.2

// DefaultBoundFactor scales the standard deviation into the truncation bound of discrete Gaussians.
const DefaultBoundFactor = 6.0

func (d KeyDistribution) String() string {
	switch d {
	case Binary:
		return "Binary"
	case Ternary:
		return "Ternary"
	case Gaussian:
		return "Gaussian"
	default:
		return fmt.Sprintf("KeyDistribution(%d)", int(d))
	}
}

// ParametersLiteral is a literal representation of LWE parameters.
// It has public fields and is used to express unchecked user-defined parameters
// literally into Go programs. The [NewParametersFromLiteral] function is used
// to generate the actual checked parameters from the literal representation.
type ParametersLiteral struct {
	N       int
	Q       uint64
	Sigma   float64
	KeyDist KeyDistribution
}

// Parameters represents a set of validated LWE parameters.
type Parameters struct {
	n       int
	q       uint64
	sigma   float64
	keyDist KeyDistribution
}

// NewParametersFromLiteral instantiates a set of LWE parameters from a [ParametersLiteral].
// A zero Sigma is replaced by [DefaultSigma].
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {

	if pl.N < 1 {
		return params, errs.Configuration("invalid LWE dimension %d: must be positive", pl.N)
	}

	if pl.Q < 2 {
		return params, errs.Configuration("invalid LWE modulus %d: must be at least 2", pl.Q)
	}

	if bits.Len64(pl.Q) > 32 {
		return params, errs.Configuration("invalid LWE modulus %d: bit length exceeds 32", pl.Q)
	}

	if pl.Sigma < 0 {
		return params, errs.Configuration("invalid LWE standard deviation %f: must be non-negative", pl.Sigma)
	}

	if pl.Sigma == 0 {
		pl.Sigma = DefaultSigma
	}

	switch pl.KeyDist {
	case Binary, Ternary, Gaussian:
	default:
		return params, errs.Configuration("invalid LWE key distribution %s", pl.KeyDist)
	}

	return Parameters{
		n:       pl.N,
		q:       pl.Q,
		sigma:   pl.Sigma,
		keyDist: pl.KeyDist,
	}, nil
}

// N returns the LWE dimension.
func (p Parameters) N() int {
	return p.n
}

// Q returns the LWE modulus.
func (p Parameters) Q() uint64 {
	return p.q
}

// Sigma returns the standard deviation of the error.
func (p Parameters) Sigma() float64 {
	return p.sigma
}

// KeyDist returns the distribution of the secret keys.
func (p Parameters) KeyDist() KeyDistribution {
	return p.keyDist
}

// ParametersLiteral returns the [ParametersLiteral] of the target [Parameters].
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		N:       p.n,
		Q:       p.q,
		Sigma:   p.sigma,
		KeyDist: p.keyDist,
	}
}

// Equal returns true if both sets of parameters are identical.
func (p Parameters) Equal(other *Parameters) bool {
	return p == *other
}

// MarshalJSON returns a JSON representation of this parameter set. See [json.Marshal].
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See [json.Unmarshal].
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	var params ParametersLiteral
	if err = json.Unmarshal(data, &params); err != nil {
		return
	}
	*p, err = NewParametersFromLiteral(params)
	return
}

// Delta returns q/p, the scaling factor of the plaintext modulus p.
// It returns an error wrapping [errs.ErrUnsupportedOperation] if p does not divide q.
func (p Parameters) Delta(pt uint64) (uint64, error) {

	if pt < 2 {
		return 0, errs.Configuration("invalid plaintext modulus %d: must be at least 2", pt)
	}

	if p.q%pt != 0 {
		return 0, errs.Unsupported("ciphertext modulus %d must be divisible by the plaintext modulus %d", p.q, pt)
	}

	return p.q / pt, nil
}

func (p Parameters) mask() uint64 {
	return (uint64(1) << bits.Len64(p.q-1)) - 1
}
