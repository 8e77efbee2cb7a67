package ske

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/utils/errs"
)

// Encryptor encrypts polynomials mod p under an RLWE secret key: the ciphertext
// decrypts to floor(Q/p) * (m mod p) + e.
// It is not safe for concurrent use.
type Encryptor struct {
	params rlwe.Parameters
	enc    *rlwe.Encryptor
	pt     *rlwe.Plaintext
}

// NewEncryptor instantiates a new [Encryptor] for the secret key sk.
func NewEncryptor(params rlwe.Parameters, sk *rlwe.SecretKey) *Encryptor {
	return &Encryptor{
		params: params,
		enc:    rlwe.NewEncryptor(params, sk),
		pt:     rlwe.NewPlaintext(params, 0),
	}
}

// Encrypt encrypts on ct the polynomial whose coefficients are m (at most N of them) mod p.
func (enc Encryptor) Encrypt(m []uint64, p uint64, ct *rlwe.Ciphertext) (err error) {

	Q := enc.params.Q()[0]

	if err = checkPlaintextModulus(p, Q); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	if len(m) > enc.params.N() {
		return errs.Configuration("cannot Encrypt: %d coefficients exceed the ring degree %d", len(m), enc.params.N())
	}

	delta := Q / p

	pt := enc.pt
	pt.Value.Zero()
	for i, mi := range m {
		pt.Value.Coeffs[0][i] = (mi % p) * delta
	}

	if pt.IsNTT {
		enc.params.RingQ().AtLevel(0).NTT(pt.Value, pt.Value)
	}

	if err = enc.enc.Encrypt(pt, ct); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	return
}

// EncryptNew encrypts m mod p on a newly allocated ciphertext at level 0.
func (enc Encryptor) EncryptNew(m []uint64, p uint64) (ct *rlwe.Ciphertext, err error) {
	ct = rlwe.NewCiphertext(enc.params, 1, 0)
	return ct, enc.Encrypt(m, p, ct)
}

// Decryptor decrypts RLWE ciphertexts into polynomials mod p.
// It is not safe for concurrent use.
type Decryptor struct {
	params rlwe.Parameters
	dec    *rlwe.Decryptor
	pt     *rlwe.Plaintext
}

// NewDecryptor instantiates a new [Decryptor] for the secret key sk.
func NewDecryptor(params rlwe.Parameters, sk *rlwe.SecretKey) *Decryptor {
	return &Decryptor{
		params: params,
		dec:    rlwe.NewDecryptor(params, sk),
		pt:     rlwe.NewPlaintext(params, 0),
	}
}

// Decrypt returns the N coefficients round(p/Q * (c0 + c1*s)) mod p.
func (dec Decryptor) Decrypt(ct *rlwe.Ciphertext, p uint64) (m []uint64, err error) {

	Q := dec.params.Q()[0]

	if err = checkPlaintextModulus(p, Q); err != nil {
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}

	phase := dec.Phase(ct)

	m = make([]uint64, len(phase))
	for i, c := range phase {
		hi, lo := bits.Mul64(c, p)
		lo, carry := bits.Add64(lo, Q>>1, 0)
		m[i], _ = bits.Div64(hi+carry, lo, Q)
		m[i] %= p
	}

	return
}

// Phase returns the coefficients of c0 + c1*s mod Q. The returned slice is a buffer
// of the Decryptor, valid until its next call.
func (dec Decryptor) Phase(ct *rlwe.Ciphertext) []uint64 {
	pt := dec.pt
	dec.dec.Decrypt(ct, pt)
	if pt.IsNTT {
		dec.params.RingQ().AtLevel(pt.Level()).INTT(pt.Value, pt.Value)
	}
	return pt.Value.Coeffs[0]
}

func checkPlaintextModulus(p, Q uint64) error {
	if p < 2 || p >= Q {
		return errs.Configuration("invalid plaintext modulus %d: must be in [2, %d)", p, Q)
	}
	return nil
}
