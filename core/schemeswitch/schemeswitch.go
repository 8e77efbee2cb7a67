// Package schemeswitch turns an RLWE ciphertext of m into an RLWE ciphertext of s*m, s being
// the secret key, with a key-switching key from s^2 to s. An RLWE encryption of G_k*m and its
// switched counterpart are the two rows of digit k of an RGSW encryption of m.
package schemeswitch

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// EvaluationKey is the scheme-switching key: a key-switching key from s^2 to s.
type EvaluationKey struct {
	Value *gadget.Ciphertext
}

// Equal performs a deep equal.
func (evk EvaluationKey) Equal(other *EvaluationKey) bool {
	if other == nil || (evk.Value == nil) != (other.Value == nil) {
		return false
	}
	return evk.Value == nil || evk.Value.Equal(other.Value)
}

// Check returns an error wrapping [errs.ErrConfiguration] if the key is not a
// key-switching key of g.Digits rows over params.
func (evk *EvaluationKey) Check(params rlwe.Parameters, g gadget.Gadget) error {
	if evk == nil {
		return errs.Configuration("scheme-switching key is nil")
	}
	if err := evk.Value.Check(params.RingQ(), g.Digits); err != nil {
		return fmt.Errorf("scheme-switching key: %w", err)
	}
	return nil
}

// BinarySize returns the serialized size of the object in bytes.
func (evk EvaluationKey) BinarySize() int {
	if evk.Value == nil {
		return (&gadget.Ciphertext{}).BinarySize()
	}
	return evk.Value.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (evk EvaluationKey) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		v := evk.Value
		if v == nil {
			v = &gadget.Ciphertext{}
		}
		if n, err = v.WriteTo(w); err != nil {
			return n, fmt.Errorf("gadget.Ciphertext.WriteTo: %w", err)
		}
		return n, w.Flush()
	default:
		return evk.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the io.ReaderFrom interface.
func (evk *EvaluationKey) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:
		evk.Value = &gadget.Ciphertext{}
		if n, err = evk.Value.ReadFrom(r); err != nil {
			return n, fmt.Errorf("gadget.Ciphertext.ReadFrom: %w", err)
		}
		return n, nil
	default:
		return evk.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (evk EvaluationKey) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(evk.BinarySize())
	_, err = evk.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (evk *EvaluationKey) UnmarshalBinary(p []byte) (err error) {
	_, err = evk.ReadFrom(buffer.NewBuffer(p))
	return
}

func checkParameters(params rlwe.Parameters, g gadget.Gadget) error {

	if params.QCount() != 1 || params.Q()[0] != g.Q {
		return errs.Configuration("invalid scheme-switch parameters: the gadget modulus %d must be the single ring modulus", g.Q)
	}

	if !params.NTTFlag() {
		return errs.Configuration("invalid scheme-switch parameters: ciphertexts must be in the NTT domain")
	}

	return nil
}

// KeyGenerator generates scheme-switching keys.
type KeyGenerator struct {
	params rlwe.Parameters
	g      gadget.Gadget
}

// NewKeyGenerator instantiates a new [KeyGenerator] for the ring params and the scheme-switch gadget g.
func NewKeyGenerator(params rlwe.Parameters, g gadget.Gadget) (*KeyGenerator, error) {
	if err := checkParameters(params, g); err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}
	return &KeyGenerator{params: params, g: g}, nil
}

// GenEvaluationKeyNew generates the scheme-switching key of sk.
func (kgen KeyGenerator) GenEvaluationKeyNew(sk *rlwe.SecretKey) (*EvaluationKey, error) {
	seed, err := gadget.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeyNew: %w", err)
	}
	return kgen.GenEvaluationKeyWithSeedNew(sk, seed)
}

// GenEvaluationKeyWithSeedNew generates the scheme-switching key of sk from seed.
func (kgen KeyGenerator) GenEvaluationKeyWithSeedNew(sk *rlwe.SecretKey, seed []byte) (*EvaluationKey, error) {

	if sk == nil {
		return nil, errs.Configuration("cannot GenEvaluationKeyNew: secret key is nil")
	}

	prng, err := gadget.DerivePRNG(seed, "SS", 0)
	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeyNew: %w", err)
	}

	enc, err := gadget.NewEncryptor(kgen.params, sk, prng)
	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeyNew: %w", err)
	}

	r := kgen.params.RingQ()

	// s^2 in the NTT domain, outside of the Montgomery domain.
	s2 := r.NewPoly()
	r.MulCoeffsMontgomery(sk.Value.Q, sk.Value.Q, s2)
	r.IMForm(s2, s2)

	ct := gadget.NewCiphertext(r, kgen.g.Digits)
	enc.EncryptPowers(s2, kgen.g, ct)

	return &EvaluationKey{Value: ct}, nil
}

// Evaluator evaluates scheme switches. It is not safe for concurrent use, see ShallowCopy.
type Evaluator struct {
	*gadget.Evaluator
	params rlwe.Parameters
	g      gadget.Gadget
	buff   ring.Poly
}

// NewEvaluator instantiates a new [Evaluator] for the ring params and the scheme-switch gadget g.
func NewEvaluator(params rlwe.Parameters, g gadget.Gadget) (*Evaluator, error) {
	if err := checkParameters(params, g); err != nil {
		return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
	}
	return newEvaluator(params, g), nil
}

func newEvaluator(params rlwe.Parameters, g gadget.Gadget) *Evaluator {
	r := params.RingQ()
	return &Evaluator{
		Evaluator: gadget.NewEvaluator(r),
		params:    params,
		g:         g,
		buff:      r.NewPoly(),
	}
}

// ShallowCopy creates a shallow copy of this [Evaluator] in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated. The receiver and the returned
// Evaluators can be used concurrently.
func (eval Evaluator) ShallowCopy() *Evaluator {
	return newEvaluator(eval.params, eval.g)
}

// EvalSS evaluates opOut = (0, c0) + <decomp(c1), evk> for op0 = (c0, c1): if op0 has phase m,
// opOut has phase s*m. op0 and opOut can be the same.
func (eval *Evaluator) EvalSS(evk *EvaluationKey, op0, opOut *rlwe.Ciphertext) (err error) {

	if evk == nil || evk.Value == nil {
		return errs.Configuration("cannot EvalSS: scheme-switching key is nil")
	}

	if evk.Value.Rows() != eval.g.Digits {
		return errs.Configuration("cannot EvalSS: key has %d rows but the gadget has %d digits", evk.Value.Rows(), eval.g.Digits)
	}

	c1 := eval.buff
	c1.Copy(op0.Value[1])

	opOut.Value[1].Copy(op0.Value[0])
	opOut.Value[0].Zero()

	eval.KeySwitchThenAdd(eval.g, c1, evk.Value, opOut.Value[0], opOut.Value[1])

	opOut.IsNTT = true

	return
}
