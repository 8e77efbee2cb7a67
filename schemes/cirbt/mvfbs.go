package cirbt

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// SpecialModSwitch returns round(v * twoN / (q * 2^bitwidth)) * 2^bitwidth mod twoN:
// v mod q switched to modulus twoN and rounded to a multiple of 2^bitwidth.
func SpecialModSwitch(v, q, twoN uint64, bitwidth int) uint64 {
	num := (v % q) * twoN
	den := q << bitwidth
	// floor(num/den + 1/2)
	r := (2*num + den) / (2 * den)
	return (r << bitwidth) % twoN
}

// BootstrapManyLUT evaluates the multi-value functional bootstrapping of ct: it returns
// the RLWE ciphertext lut * X^{-phase}, phase being the phase of ct switched to modulus 2N
// and rounded to a multiple of 2^bitwidth, so that the bitwidth low-order coefficients of
// the result hold the values of the LUT slot selected by the phase.
// lut is given in the NTT domain.
func (eval *Evaluator) BootstrapManyLUT(key blindrot.AccKey, ct *lwe.Ciphertext, lut ring.Poly, bitwidth int) (acc *rlwe.Ciphertext, err error) {

	if key == nil {
		return nil, errs.Configuration("cannot BootstrapManyLUT: bootstrapping keys have not been generated")
	}

	params := eval.params

	if ct == nil || ct.N() != params.LWE().N() {
		return nil, errs.Configuration("cannot BootstrapManyLUT: LWE ciphertext does not match the LWE dimension %d", params.LWE().N())
	}

	q := params.LWE().Q()
	twoN := params.BlindRotation().TwoN()

	bMS := SpecialModSwitch(ct.B, q, twoN, bitwidth)

	aMS := eval.buffA
	for i, ai := range ct.A {
		aMS[i] = SpecialModSwitch(ai, q, twoN, bitwidth)
	}

	r := params.RLWE().RingQ()

	acc = rlwe.NewCiphertext(params.RLWE(), 1, 0)
	acc.IsNTT = true

	// (lut * X^{-b}, 0)
	r.MulCoeffsMontgomery(lut, params.Monomial(bMS), acc.Value[0])
	acc.Value[1].Zero()

	if err = eval.acc.EvalAcc(key, acc, aMS); err != nil {
		return nil, fmt.Errorf("cannot BootstrapManyLUT: %w", err)
	}

	return
}
