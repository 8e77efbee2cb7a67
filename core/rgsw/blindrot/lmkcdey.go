package blindrot

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/utils/concurrency"
	"github.com/tuneinsight/cirbt/utils/errs"
)

const (
	// Parameter w of Algorithm 3 in https://eprint.iacr.org/2022/198
	windowSize = 10
)

// LMKCDEYEvaluator is the [LMKCDEY] accumulator.
type LMKCDEYEvaluator struct {
	*gadget.Evaluator
	params Parameters

	// galEls[i] is the Galois element of the automorphism key i.
	galEls            []uint64
	keyIndex          map[uint64]int
	automorphismIndex map[uint64][]uint64

	galoisGenDiscreteLog map[uint64]int

	buffQ [2]ring.Poly
}

// NewLMKCDEYEvaluator instantiates a new [LMKCDEYEvaluator].
func NewLMKCDEYEvaluator(params Parameters) *LMKCDEYEvaluator {

	galEls := lmkcdeyGaloisElements(params)

	keyIndex := map[uint64]int{}
	automorphismIndex := map[uint64][]uint64{}

	for i, galEl := range galEls {
		keyIndex[galEl] = i
		// Sanity check, this error should never happen since N and 2N are powers of two.
		index, err := ring.AutomorphismNTTIndex(params.RLWE.N(), params.RLWE.RingQ().NthRoot(), galEl)
		if err != nil {
			panic(err)
		}
		automorphismIndex[galEl] = index
	}

	return newLMKCDEYEvaluator(params, galEls, keyIndex, automorphismIndex,
		// galoisGenDiscreteLog: map[+/-G^{k} mod 2N] = +/-k, -1 -> 2N
		getGaloisElementInverseMap(ring.GaloisGen, params.RLWE.N()))
}

func newLMKCDEYEvaluator(params Parameters, galEls []uint64, keyIndex map[uint64]int, automorphismIndex map[uint64][]uint64, dlog map[uint64]int) *LMKCDEYEvaluator {
	r := params.RLWE.RingQ()
	return &LMKCDEYEvaluator{
		Evaluator:            gadget.NewEvaluator(r),
		params:               params,
		galEls:               galEls,
		keyIndex:             keyIndex,
		automorphismIndex:    automorphismIndex,
		galoisGenDiscreteLog: dlog,
		buffQ:                [2]ring.Poly{r.NewPoly(), r.NewPoly()},
	}
}

// Variant returns [LMKCDEY].
func (eval LMKCDEYEvaluator) Variant() Variant {
	return LMKCDEY
}

// ShallowCopy creates a shallow copy of this [LMKCDEYEvaluator] in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated.
func (eval LMKCDEYEvaluator) ShallowCopy() Accumulator {
	return newLMKCDEYEvaluator(eval.params, eval.galEls, eval.keyIndex, eval.automorphismIndex, eval.galoisGenDiscreteLog)
}

// lmkcdeyGaloisElements returns g^1, ..., g^w and -g mod 2N.
func lmkcdeyGaloisElements(params Parameters) (galEls []uint64) {
	galEls = make([]uint64, windowSize, windowSize+1)
	for i := 0; i < windowSize; i++ {
		galEls[i] = params.RLWE.GaloisElement(i + 1)
	}
	return append(galEls, params.RLWE.RingQ().NthRoot()-ring.GaloisGen)
}

// KeyGenAcc generates RGSW(X^{s[i]}) for every LWE secret position and the automorphism keys.
func (eval LMKCDEYEvaluator) KeyGenAcc(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey) (AccKey, error) {
	seed, err := gadget.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("cannot KeyGenAcc: %w", err)
	}
	return eval.KeyGenAccWithSeed(skRLWE, skLWE, seed)
}

// KeyGenAccWithSeed generates the accumulator key of skLWE under skRLWE. Each gadget ciphertext
// draws its randomness from its own PRNG derived from seed, so that the key is reproducible.
func (eval LMKCDEYEvaluator) KeyGenAccWithSeed(skRLWE *rlwe.SecretKey, skLWE *lwe.SecretKey, seed []byte) (AccKey, error) {

	if skRLWE == nil || skLWE == nil {
		return nil, errs.Configuration("cannot KeyGenAcc: secret key is nil")
	}

	if len(skLWE.Value) != eval.params.LWE.N() {
		return nil, errs.Configuration("cannot KeyGenAcc: LWE secret of dimension %d but parameters of dimension %d", len(skLWE.Value), eval.params.LWE.N())
	}

	g := eval.params.Gadget
	r := eval.params.RLWE.RingQ()
	twoN := int64(eval.params.TwoN())

	key := &LMKCDEYKey{
		BlindRotationKeys: make([]*gadget.Ciphertext, len(skLWE.Value)),
		AutomorphismKeys:  make([]*gadget.Ciphertext, len(eval.galEls)),
	}

	err := concurrency.ParallelForErr(len(skLWE.Value), func(i int) error {

		prng, err := gadget.DerivePRNG(seed, "LMKCDEY", i)
		if err != nil {
			return err
		}

		enc, err := gadget.NewEncryptor(eval.params.RLWE, skRLWE, prng)
		if err != nil {
			return err
		}

		// X^{s[i]}, s[i] taken mod 2N
		pt := r.NewMonomialXi(int(((skLWE.Value[i] % twoN) + twoN) % twoN))
		r.NTT(pt, pt)

		ct := gadget.NewCiphertext(r, 2*g.Digits)
		enc.EncryptPoly(pt, g, ct)
		key.BlindRotationKeys[i] = ct

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("cannot KeyGenAcc: %w", err)
	}

	// s in the NTT domain, outside of the Montgomery domain.
	s := r.NewPoly()
	r.IMForm(skRLWE.Value.Q, s)

	err = concurrency.ParallelForErr(len(eval.galEls), func(i int) error {

		prng, err := gadget.DerivePRNG(seed, "LMKCDEY-AUT", i)
		if err != nil {
			return err
		}

		enc, err := gadget.NewEncryptor(eval.params.RLWE, skRLWE, prng)
		if err != nil {
			return err
		}

		sAut := r.NewPoly()
		r.AutomorphismNTT(s, eval.galEls[i], sAut)

		ct := gadget.NewCiphertext(r, g.Digits)
		enc.EncryptPowers(sAut, g, ct)
		key.AutomorphismKeys[i] = ct

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("cannot KeyGenAcc: %w", err)
	}

	return key, nil
}

// EvalAcc evaluates acc <- acc * X^{<a, s>}: the automorphism sigma_{-g} is applied first, then
// Algorithm 3 of https://eprint.iacr.org/2022/198 maps acc(X) * X^{<a, s>} back
// through sigma_{-g^{-1}}.
func (eval *LMKCDEYEvaluator) EvalAcc(key AccKey, acc *rlwe.Ciphertext, a []uint64) (err error) {

	k, ok := key.(*LMKCDEYKey)
	if !ok || k == nil {
		return errs.Configuration("cannot EvalAcc: invalid accumulator key %T for the LMKCDEY accumulator", key)
	}

	if len(a) != len(k.BlindRotationKeys) {
		return errs.Configuration("cannot EvalAcc: mask of dimension %d but key of dimension %d", len(a), len(k.BlindRotationKeys))
	}

	if err = eval.automorphism(k, eval.params.RLWE.RingQ().NthRoot()-ring.GaloisGen, acc); err != nil {
		return fmt.Errorf("cannot EvalAcc: %w", err)
	}

	if err = eval.BlindRotateCore(a, acc, k); err != nil {
		return fmt.Errorf("cannot EvalAcc: %w", err)
	}

	return
}

// automorphism evaluates acc <- sigma_{galEl}(acc) in place with the automorphism key of galEl.
func (eval *LMKCDEYEvaluator) automorphism(key *LMKCDEYKey, galEl uint64, acc *rlwe.Ciphertext) error {

	i, ok := eval.keyIndex[galEl]
	if !ok || i >= len(key.AutomorphismKeys) || key.AutomorphismKeys[i] == nil {
		return errs.Configuration("automorphism key of Galois element %d is missing", galEl)
	}

	ksk := key.AutomorphismKeys[i]

	if ksk.Rows() != eval.params.Gadget.Digits {
		return errs.Configuration("automorphism key has %d rows but the gadget has %d digits", ksk.Rows(), eval.params.Gadget.Digits)
	}

	r := eval.RingQ()
	index := eval.automorphismIndex[galEl]

	c0, c1 := eval.buffQ[0], eval.buffQ[1]

	r.AutomorphismNTTWithIndex(acc.Value[0], index, c0)
	r.AutomorphismNTTWithIndex(acc.Value[1], index, c1)

	// (sigma(c0), 0) + <decomp(sigma(c1)), key>
	acc.Value[0].Copy(c0)
	acc.Value[1].Zero()

	eval.KeySwitchThenAdd(eval.params.Gadget, c1, ksk, acc.Value[0], acc.Value[1])

	return nil
}

// BlindRotateCore implements Algorithm 3 of https://eprint.iacr.org/2022/198:
// acc <- sigma_{-g^{-1}}(acc) * X^{<a, s>}. The automorphism keys must already be loaded.
func (eval *LMKCDEYEvaluator) BlindRotateCore(a []uint64, acc *rlwe.Ciphertext, key *LMKCDEYKey) (err error) {

	// GaloisElement(k) = GaloisGen^{k} mod 2N
	GaloisElement := eval.params.RLWE.GaloisElement

	// Maps a[i] to (+/-) g^{k} mod 2N
	discreteLogSets, err := eval.getDiscreteLogSets(a)
	if err != nil {
		return
	}

	Nhalf := eval.params.RLWE.N() >> 1

	// Algorithm 3 of https://eprint.iacr.org/2022/198
	var v int
	// Lines 3 to 9 (negative set of a[i] = -g^{k} mod 2N)
	for i := Nhalf - 1; i > 0; i-- {
		if v, err = eval.evaluateFromDiscreteLogSets(GaloisElement, discreteLogSets, -i, i == 1, v, acc, key); err != nil {
			return
		}
	}

	// Line 10 (-1 = -g^{0} is indexed by 2N)
	if _, err = eval.evaluateFromDiscreteLogSets(GaloisElement, discreteLogSets, eval.params.RLWE.N()<<1, false, 0, acc, key); err != nil {
		return
	}

	// Line 12
	// acc = acc(X^{-g})
	if err = eval.automorphism(key, eval.params.RLWE.RingQ().NthRoot()-ring.GaloisGen, acc); err != nil {
		return
	}

	// Lines 13 - 19 (positive set of a[i] = g^{k} mod 2N)
	for i := Nhalf - 1; i > 0; i-- {
		if v, err = eval.evaluateFromDiscreteLogSets(GaloisElement, discreteLogSets, i, i == 1, v, acc, key); err != nil {
			return
		}
	}

	// Lines 20 - 21 (1 = g^{0})
	if _, err = eval.evaluateFromDiscreteLogSets(GaloisElement, discreteLogSets, 0, false, 0, acc, key); err != nil {
		return
	}

	return
}

// evaluateFromDiscreteLogSets loops of Algorithm 3 of https://eprint.iacr.org/2022/198.
// last flushes the pending automorphisms at the end of a loop.
func (eval *LMKCDEYEvaluator) evaluateFromDiscreteLogSets(GaloisElement func(k int) (galEl uint64), sets map[int][]int, k int, last bool, v int, acc *rlwe.Ciphertext, key *LMKCDEYKey) (int, error) {

	// Checks if k is in the discrete log sets
	if set, ok := sets[k]; ok {

		// First condition of line 7 or 17
		if v != 0 {

			if err := eval.automorphism(key, GaloisElement(v), acc); err != nil {
				return v, err
			}

			v = 0
		}

		for _, j := range set {

			brk, err := key.GetBlindRotationKey(j)
			if err != nil {
				return v, err
			}

			if brk.Rows() != 2*eval.params.Gadget.Digits {
				return v, errs.Configuration("blind rotation key %d has %d rows but the gadget has %d digits", j, brk.Rows(), eval.params.Gadget.Digits)
			}

			// acc = acc * RGSW(X^{s[j]})
			eval.ExternalProduct(eval.params.Gadget, acc, brk, acc)
		}
	}

	// Lines 10 and 20 are not part of a loop.
	if k == 0 || k == eval.params.RLWE.N()<<1 {
		return v, nil
	}

	v++

	// Second and third conditions of line 7 or 17
	if v == windowSize || last {

		if err := eval.automorphism(key, GaloisElement(v), acc); err != nil {
			return v, err
		}

		v = 0
	}

	return v, nil
}

// getDiscreteLogSets returns map[+/-k] = [i...] for a[i] = (+/-) g^{k} mod 2N, -1 being indexed by 2N.
// Zero entries of a are skipped and even entries are split as (a[i] - 1) + 1.
func (eval LMKCDEYEvaluator) getDiscreteLogSets(a []uint64) (discreteLogSets map[int][]int, err error) {

	GaloisGenDiscreteLog := eval.galoisGenDiscreteLog

	mask := eval.params.TwoN() - 1

	discreteLogSets = map[int][]int{}

	add := func(ai uint64, i int) error {
		dlog, ok := GaloisGenDiscreteLog[ai]
		if !ok {
			// Sanity check, this error should not happen since odd elements are units of Z_{2N}.
			return fmt.Errorf("getDiscreteLogSets: %d is not of the form (+/- 1) * g^{k} mod 2N", ai)
		}
		discreteLogSets[dlog] = append(discreteLogSets[dlog], i)
		return nil
	}

	for i, ai := range a {

		ai &= mask

		if ai == 0 {
			continue
		}

		if ai&1 == 0 {
			if err = add(ai-1, i); err != nil {
				return
			}
			ai = 1
		}

		if err = add(ai, i); err != nil {
			return
		}
	}

	return
}
