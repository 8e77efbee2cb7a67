package gadget

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// Encryptor generates gadget ciphertexts and key-switching keys under a secret key.
//
// An Encryptor holds its own samplers and is not safe for concurrent use;
// concurrent key generation must use one Encryptor per goroutine.
type Encryptor struct {
	ringQ    *ring.Ring
	sk       *rlwe.SecretKey
	uniform  ring.Sampler
	gaussian ring.Sampler
}

// NewEncryptor instantiates a new Encryptor for the secret key sk, drawing
// its randomness from prng.
func NewEncryptor(params rlwe.Parameters, sk *rlwe.SecretKey, prng sampling.PRNG) (*Encryptor, error) {

	ringQ := params.RingQ()

	gaussian, err := ring.NewSampler(prng, ringQ, params.Xe(), false)
	if err != nil {
		return nil, fmt.Errorf("cannot NewEncryptor: %w", err)
	}

	return &Encryptor{
		ringQ:    ringQ,
		sk:       sk,
		uniform:  ring.NewUniformSampler(prng, ringQ),
		gaussian: gaussian,
	}, nil
}

// EncryptZero writes on row a fresh encryption of zero in the NTT domain:
// c1 is uniform and c0 = -c1*s + e.
func (enc Encryptor) EncryptZero(row [2]ring.Poly) {
	r := enc.ringQ
	enc.uniform.Read(row[1])
	enc.gaussian.Read(row[0])
	r.NTT(row[0], row[0])
	r.MulCoeffsMontgomeryThenSub(row[1], enc.sk.Value.Q, row[0])
}

// EncryptPowers writes on ct, for each gadget power k, an encryption of pt * g.Powers[k],
// pt being given in the NTT domain. The result is a key-switching key from pt to the
// secret of the Encryptor. Rows are stored in the NTT and Montgomery domain.
func (enc Encryptor) EncryptPowers(pt ring.Poly, g Gadget, ct *Ciphertext) {

	// Sanity check, this error should never happen unless the caller allocated
	// a ciphertext for another gadget.
	if ct.Rows() != g.Digits {
		panic(fmt.Errorf("cannot EncryptPowers: ciphertext has %d rows but gadget has %d digits", ct.Rows(), g.Digits))
	}

	r := enc.ringQ

	for k := range ct.Value {
		enc.EncryptZero(ct.Value[k])
		r.MulScalarThenAdd(pt, g.Powers[k], ct.Value[k][0])
		r.MForm(ct.Value[k][0], ct.Value[k][0])
		r.MForm(ct.Value[k][1], ct.Value[k][1])
	}
}

// EncryptScalar writes on ct an RGSW encryption of the scalar m for the gadget g:
// 2*g.Digits encryptions of zero, row 2k receiving m * g.Powers[k] on its mask (c1)
// and row 2k+1 on its body (c0). Rows are stored in the NTT and Montgomery domain.
func (enc Encryptor) EncryptScalar(m uint64, g Gadget, ct *Ciphertext) {

	// Sanity check, this error should never happen unless the caller allocated
	// a ciphertext for another gadget.
	if ct.Rows() != 2*g.Digits {
		panic(fmt.Errorf("cannot EncryptScalar: ciphertext has %d rows but gadget has %d digits", ct.Rows(), g.Digits))
	}

	r := enc.ringQ

	m %= g.Q

	for i := range ct.Value {

		enc.EncryptZero(ct.Value[i])

		if m != 0 {
			// The NTT of a constant polynomial is constant.
			r.AddScalar(ct.Value[i][1-(i&1)], mulMod(m, g.Powers[i>>1], g.Q), ct.Value[i][1-(i&1)])
		}

		r.MForm(ct.Value[i][0], ct.Value[i][0])
		r.MForm(ct.Value[i][1], ct.Value[i][1])
	}
}

// EncryptPoly writes on ct an RGSW encryption of the polynomial pt, given in the NTT domain,
// with the same row layout as EncryptScalar.
func (enc Encryptor) EncryptPoly(pt ring.Poly, g Gadget, ct *Ciphertext) {

	// Sanity check, this error should never happen unless the caller allocated
	// a ciphertext for another gadget.
	if ct.Rows() != 2*g.Digits {
		panic(fmt.Errorf("cannot EncryptPoly: ciphertext has %d rows but gadget has %d digits", ct.Rows(), g.Digits))
	}

	r := enc.ringQ

	for i := range ct.Value {
		enc.EncryptZero(ct.Value[i])
		r.MulScalarThenAdd(pt, g.Powers[i>>1], ct.Value[i][1-(i&1)])
		r.MForm(ct.Value[i][0], ct.Value[i][0])
		r.MForm(ct.Value[i][1], ct.Value[i][1])
	}
}

// SecretKey returns the secret key of the Encryptor.
func (enc Encryptor) SecretKey() *rlwe.SecretKey {
	return enc.sk
}
