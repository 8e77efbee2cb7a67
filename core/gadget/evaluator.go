package gadget

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/utils/concurrency"
)

// Evaluator decomposes polynomials and evaluates external products and key switches.
// It owns scratch buffers and is not safe for concurrent use, see ShallowCopy.
type Evaluator struct {
	ringQ *ring.Ring

	buffCoeffs [2]ring.Poly
	buffDigits []ring.Poly
}

// NewEvaluator instantiates a new Evaluator over ringQ.
func NewEvaluator(ringQ *ring.Ring) *Evaluator {
	return &Evaluator{
		ringQ:      ringQ,
		buffCoeffs: [2]ring.Poly{ringQ.NewPoly(), ringQ.NewPoly()},
	}
}

// ShallowCopy creates a shallow copy of this Evaluator in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated. The receiver and the returned
// Evaluator can be used concurrently.
func (eval Evaluator) ShallowCopy() *Evaluator {
	return NewEvaluator(eval.ringQ)
}

// RingQ returns the ring of the Evaluator.
func (eval Evaluator) RingQ() *ring.Ring {
	return eval.ringQ
}

func (eval *Evaluator) digits(n int) []ring.Poly {
	for len(eval.buffDigits) < n {
		eval.buffDigits = append(eval.buffDigits, eval.ringQ.NewPoly())
	}
	return eval.buffDigits[:n]
}

// Decompose returns the g.Digits signed digits of p in the NTT domain.
// p is given in the NTT domain and is not modified.
// The returned polynomials are buffers of the Evaluator, valid until its next call.
func (eval *Evaluator) Decompose(g Gadget, p ring.Poly) []ring.Poly {

	r := eval.ringQ
	r.INTT(p, eval.buffCoeffs[0])

	digits := eval.digits(g.Digits)

	out := make([][]uint64, len(digits))
	for i := range digits {
		out[i] = digits[i].Coeffs[0]
	}

	g.SignedDecompose(eval.buffCoeffs[0].Coeffs[0], out)

	eval.nttDigits(digits)

	return digits
}

// DecomposePair returns the 2*g.Digits interleaved signed digits of (p0, p1) in the NTT
// domain: digit k of p0 at index 2k and digit k of p1 at index 2k+1.
// p0 and p1 are given in the NTT domain and are not modified.
// The returned polynomials are buffers of the Evaluator, valid until its next call.
func (eval *Evaluator) DecomposePair(g Gadget, p0, p1 ring.Poly) []ring.Poly {

	r := eval.ringQ
	r.INTT(p0, eval.buffCoeffs[0])
	r.INTT(p1, eval.buffCoeffs[1])

	digits := eval.digits(2 * g.Digits)

	out := make([][]uint64, len(digits))
	for i := range digits {
		out[i] = digits[i].Coeffs[0]
	}

	g.SignedDecomposePair(eval.buffCoeffs[0].Coeffs[0], eval.buffCoeffs[1].Coeffs[0], out)

	eval.nttDigits(digits)

	return digits
}

func (eval Evaluator) nttDigits(digits []ring.Poly) {
	r := eval.ringQ
	concurrency.ParallelFor(len(digits), func(i int) {
		r.NTT(digits[i], digits[i])
	})
}

// DotProduct computes out0 = sum_i digits[i] * ct.Value[i][0] and out1 = sum_i digits[i] * ct.Value[i][1].
// digits are in the NTT domain and the rows of ct in the NTT and Montgomery domain.
// out0 and out1 must not alias digits.
func (eval Evaluator) DotProduct(digits []ring.Poly, ct *Ciphertext, out0, out1 ring.Poly) {

	// Sanity check, this error should never happen unless the caller
	// mixed gadgets of different sizes.
	if len(digits) != ct.Rows() {
		panic(fmt.Errorf("cannot DotProduct: %d digits but %d rows", len(digits), ct.Rows()))
	}

	r := eval.ringQ

	r.MulCoeffsMontgomery(digits[0], ct.Value[0][0], out0)
	r.MulCoeffsMontgomery(digits[0], ct.Value[0][1], out1)

	for i := 1; i < len(digits); i++ {
		r.MulCoeffsMontgomeryThenAdd(digits[i], ct.Value[i][0], out0)
		r.MulCoeffsMontgomeryThenAdd(digits[i], ct.Value[i][1], out1)
	}
}

// ExternalProduct evaluates opOut = op0 x ct, where op0 is an RLWE ciphertext in the NTT domain
// and ct a gadget ciphertext of 2*g.Digits rows. If ct encrypts m, opOut decrypts to m times
// the plaintext of op0. op0 and opOut can be the same.
func (eval *Evaluator) ExternalProduct(g Gadget, op0 *rlwe.Ciphertext, ct *Ciphertext, opOut *rlwe.Ciphertext) {
	digits := eval.DecomposePair(g, op0.Value[1], op0.Value[0])
	eval.DotProduct(digits, ct, opOut.Value[0], opOut.Value[1])
	opOut.IsNTT = true
}

// KeySwitchThenAdd adds to (out0, out1) the key switch of p, given in the NTT domain,
// under the key-switching key ksk built for the gadget g.
func (eval *Evaluator) KeySwitchThenAdd(g Gadget, p ring.Poly, ksk *Ciphertext, out0, out1 ring.Poly) {

	digits := eval.Decompose(g, p)

	// Sanity check, this error should never happen unless the caller
	// mixed gadgets of different sizes.
	if len(digits) != ksk.Rows() {
		panic(fmt.Errorf("cannot KeySwitchThenAdd: %d digits but %d rows", len(digits), ksk.Rows()))
	}

	r := eval.ringQ
	for i := range digits {
		r.MulCoeffsMontgomeryThenAdd(digits[i], ksk.Value[i][0], out0)
		r.MulCoeffsMontgomeryThenAdd(digits[i], ksk.Value[i][1], out1)
	}
}
