package blindrot

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/utils/concurrency"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// CGGIEvaluator is the [CGGI] accumulator.
type CGGIEvaluator struct {
	params Parameters
	*gadget.Evaluator
	buff *rlwe.Ciphertext
}

// NewCGGIEvaluator instantiates a new [CGGIEvaluator].
func NewCGGIEvaluator(params Parameters) *CGGIEvaluator {
	buff := rlwe.NewCiphertext(params.RLWE, 1, 0)
	buff.IsNTT = true
	return &CGGIEvaluator{
		params:    params,
		Evaluator: gadget.NewEvaluator(params.RLWE.RingQ()),
		buff:      buff,
	}
}

// Variant returns [CGGI].
func (eval CGGIEvaluator) Variant() Variant {
	return CGGI
}

// ShallowCopy creates a shallow copy of this [CGGIEvaluator] in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated.
func (eval CGGIEvaluator) ShallowCopy() Accumulator {
	return NewCGGIEvaluator(eval.params)
}

// KeyGenAcc generates the accumulator key of skLWE, which must be binary, under skRLWE.
func (eval CGGIEvaluator) KeyGenAcc(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey) (AccKey, error) {
	seed, err := gadget.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("cannot KeyGenAcc: %w", err)
	}
	return eval.KeyGenAccWithSeed(skRLWE, skLWE, seed)
}

// KeyGenAccWithSeed generates the accumulator key of skLWE under skRLWE. Each secret position
// draws its randomness from its own PRNG derived from seed, so that the positions are generated
// in parallel and the key is reproducible.
func (eval CGGIEvaluator) KeyGenAccWithSeed(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey, seed []byte) (AccKey, error) {

	if skRLWE == nil || skLWE == nil {
		return nil, errs.Configuration("cannot KeyGenAcc: secret key is nil")
	}

	if len(skLWE.Value) != eval.params.LWE.N() {
		return nil, errs.Configuration("cannot KeyGenAcc: LWE secret of dimension %d but parameters of dimension %d", len(skLWE.Value), eval.params.LWE.N())
	}

	if !skLWE.IsBinary() {
		return nil, errs.Configuration("cannot KeyGenAcc: the CGGI accumulator requires a binary LWE secret")
	}

	g := eval.params.Gadget
	r := eval.params.RLWE.RingQ()

	key := &CGGIKey{Value: make([]*gadget.Ciphertext, len(skLWE.Value))}

	err := concurrency.ParallelForErr(len(skLWE.Value), func(i int) error {

		prng, err := gadget.DerivePRNG(seed, "CGGI", i)
		if err != nil {
			return err
		}

		enc, err := gadget.NewEncryptor(eval.params.RLWE, skRLWE, prng)
		if err != nil {
			return err
		}

		ct := gadget.NewCiphertext(r, 2*g.Digits)
		enc.EncryptScalar(uint64(skLWE.Value[i]), g, ct)
		key.Value[i] = ct

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("cannot KeyGenAcc: %w", err)
	}

	return key, nil
}

// EvalAcc evaluates acc <- acc * X^{<a, s>} with one external product per non-zero a[i].
func (eval *CGGIEvaluator) EvalAcc(key AccKey, acc *rlwe.Ciphertext, a []uint64) error {

	k, ok := key.(*CGGIKey)
	if !ok || k == nil {
		return errs.Configuration("cannot EvalAcc: invalid accumulator key %T for the CGGI accumulator", key)
	}

	if len(a) != len(k.Value) {
		return errs.Configuration("cannot EvalAcc: mask of dimension %d but key of dimension %d", len(a), len(k.Value))
	}

	for i, ai := range a {
		if ai%eval.params.TwoN() != 0 {
			eval.AddToAcc(k.Value[i], ai, acc)
		}
	}

	return nil
}

// AddToAcc evaluates acc <- acc + (acc x key) * (X^{a} - 1), that is acc * X^{a*s}
// if key encrypts s in {0, 1}.
func (eval *CGGIEvaluator) AddToAcc(key *gadget.Ciphertext, a uint64, acc *rlwe.Ciphertext) {

	r := eval.RingQ()
	buff := eval.buff

	eval.ExternalProduct(eval.params.Gadget, acc, key, buff)

	Xa := eval.params.MonomialX(a)

	for i := range acc.Value {
		r.MulCoeffsMontgomeryThenAdd(buff.Value[i], Xa, acc.Value[i])
		r.Sub(acc.Value[i], buff.Value[i], acc.Value[i])
	}
}
