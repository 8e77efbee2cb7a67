package lwe

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// Encryptor encrypts messages mod p under an LWE secret key.
// It is not safe for concurrent use.
type Encryptor struct {
	params   Parameters
	sk       *SecretKey
	prng     sampling.PRNG
	gaussian *smallSampler
	buff     []int64
}

// NewEncryptor instantiates a new [Encryptor] for the secret key sk.
func NewEncryptor(params Parameters, sk *SecretKey) *Encryptor {
	prng, err := sampling.NewPRNG()

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	return newEncryptor(params, sk, prng)
}

func newEncryptor(params Parameters, sk *SecretKey, prng sampling.PRNG) *Encryptor {

	gaussian, err := newSmallSampler(prng, 1, ring.DiscreteGaussian{Sigma: params.Sigma(), Bound: DefaultBoundFactor * params.Sigma()})

	// Sanity check, this error should not happen with validated parameters.
	if err != nil {
		panic(err)
	}

	return &Encryptor{
		params:   params,
		sk:       sk,
		prng:     prng,
		gaussian: gaussian,
		buff:     make([]int64, 1),
	}
}

// WithPRNG returns a new [Encryptor] with the same key drawing its randomness from prng.
func (enc Encryptor) WithPRNG(prng sampling.PRNG) *Encryptor {
	return newEncryptor(enc.params, enc.sk, prng)
}

// Encrypt encrypts m mod p on ct: A is uniform mod q and B = <A, s> + (m mod p)*(q/p) + e mod q.
// It returns an error wrapping [errs.ErrUnsupportedOperation] if p does not divide q.
func (enc Encryptor) Encrypt(m, p uint64, ct *Ciphertext) (err error) {

	delta, err := enc.params.Delta(p)
	if err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	if len(ct.A) != enc.params.N() {
		return fmt.Errorf("cannot Encrypt: ciphertext dimension %d does not match the parameters dimension %d", len(ct.A), enc.params.N())
	}

	q := enc.params.Q()
	mask := enc.params.mask()

	var b uint64
	for i, si := range enc.sk.Value {
		ai := ring.RandUniform(enc.prng, q, mask)
		ct.A[i] = ai
		b = (b + ai*reduce(si, q)) % q
	}

	enc.gaussian.read(enc.buff)

	b = (b + (m%p)*delta + reduce(enc.buff[0], q)) % q

	ct.B = b

	return
}

// EncryptNew encrypts m mod p on a newly allocated [Ciphertext].
func (enc Encryptor) EncryptNew(m, p uint64) (ct *Ciphertext, err error) {
	ct = NewCiphertext(enc.params)
	return ct, enc.Encrypt(m, p, ct)
}

// reduce maps the signed integer x to [0, q).
func reduce(x int64, q uint64) uint64 {
	if x < 0 {
		return q - (uint64(-x) % q)
	}
	return uint64(x) % q
}
