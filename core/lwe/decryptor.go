package lwe

import (
	"fmt"
	"math/bits"
)

// Decryptor decrypts LWE ciphertexts under a secret key.
type Decryptor struct {
	params Parameters
	sk     *SecretKey
}

// NewDecryptor instantiates a new [Decryptor] for the secret key sk.
func NewDecryptor(params Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{params: params, sk: sk}
}

// Phase returns B - <A, s> mod q.
func (dec Decryptor) Phase(ct *Ciphertext) uint64 {
	q := dec.params.Q()
	var as uint64
	for i, si := range dec.sk.Value {
		as = (as + ct.A[i]*reduce(si, q)) % q
	}
	return (ct.B + q - as) % q
}

// Decrypt returns round(p/q * (B - <A, s>)) mod p.
// It returns an error wrapping [errs.ErrUnsupportedOperation] if p does not divide q.
func (dec Decryptor) Decrypt(ct *Ciphertext, p uint64) (m uint64, err error) {

	if _, err = dec.params.Delta(p); err != nil {
		return 0, fmt.Errorf("cannot Decrypt: %w", err)
	}

	if len(ct.A) != dec.params.N() {
		return 0, fmt.Errorf("cannot Decrypt: ciphertext dimension %d does not match the parameters dimension %d", len(ct.A), dec.params.N())
	}

	q := dec.params.Q()

	hi, lo := bits.Mul64(dec.Phase(ct), p)
	lo, carry := bits.Add64(lo, q>>1, 0)
	m, _ = bits.Div64(hi+carry, lo, q)

	return m % p, nil
}
