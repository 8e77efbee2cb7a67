package cirbt

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/homtrace"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/core/schemeswitch"
	"github.com/tuneinsight/cirbt/utils/concurrency"
)

// Evaluator evaluates circuit bootstrappings. It is not safe for concurrent use, see ShallowCopy.
type Evaluator struct {
	params Parameters

	acc blindrot.Accumulator
	ht  *homtrace.Evaluator
	ss  *schemeswitch.Evaluator

	buffA []uint64
}

// NewEvaluator instantiates a new [Evaluator] with the accumulator variant v.
func NewEvaluator(params Parameters, v blindrot.Variant) (*Evaluator, error) {

	acc, err := blindrot.NewAccumulator(params.BlindRotation(), v)
	if err != nil {
		return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
	}

	ht, err := homtrace.NewEvaluator(params.RLWE(), params.GadgetHT())
	if err != nil {
		return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
	}

	ss, err := schemeswitch.NewEvaluator(params.RLWE(), params.GadgetSS())
	if err != nil {
		return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
	}

	return &Evaluator{
		params: params,
		acc:    acc,
		ht:     ht,
		ss:     ss,
		buffA:  make([]uint64, params.LWE().N()),
	}, nil
}

// ShallowCopy creates a shallow copy of this [Evaluator] in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated. The receiver and the returned
// Evaluators can be used concurrently.
func (eval Evaluator) ShallowCopy() *Evaluator {
	return &Evaluator{
		params: eval.params,
		acc:    eval.acc.ShallowCopy(),
		ht:     eval.ht.ShallowCopy(),
		ss:     eval.ss.ShallowCopy(),
		buffA:  make([]uint64, len(eval.buffA)),
	}
}

// Variant returns the variant of the accumulator of the Evaluator.
func (eval Evaluator) Variant() blindrot.Variant {
	return eval.acc.Variant()
}

type rowEvaluator struct {
	ht *homtrace.Evaluator
	ss *schemeswitch.Evaluator
}

// CircuitBootstrap converts the LWE encryption ct of a bit m into an RGSW encryption of m for the
// CC gadget: row 2i+1 has phase Powers[i]*m and row 2i has phase Powers[i]*m*s.
// The keys are checked against the parameters before any work.
func (eval *Evaluator) CircuitBootstrap(evk *EvaluationKeySet, ct *lwe.Ciphertext) (res *gadget.Ciphertext, err error) {

	if err = evk.Check(eval.params, eval.acc.Variant()); err != nil {
		return nil, fmt.Errorf("cannot CircuitBootstrap: %w", err)
	}

	params := eval.params
	r := params.RLWE().RingQ()
	numLUT := params.NumLUT()

	acc, err := eval.BootstrapManyLUT(evk.AccKey, ct, params.LUT(), params.Bitwidth())
	if err != nil {
		return nil, fmt.Errorf("cannot CircuitBootstrap: %w", err)
	}

	// acc <- acc * N^{-1} + sum_i (Powers[i]/2) * N^{-1} * X^{i}
	r.MulScalar(acc.Value[0], params.NInv(), acc.Value[0])
	r.MulScalar(acc.Value[1], params.NInv(), acc.Value[1])
	r.Add(acc.Value[0], params.offset, acc.Value[0])

	// cts[i] = acc * X^{-i}
	cts := make([]*rlwe.Ciphertext, numLUT)
	cts[0] = acc
	for i := 1; i < numLUT; i++ {
		cts[i] = rlwe.NewCiphertext(params.RLWE(), 1, 0)
		cts[i].IsNTT = true
		r.MulCoeffsMontgomery(acc.Value[0], params.Monomial(uint64(i)), cts[i].Value[0])
		r.MulCoeffsMontgomery(acc.Value[1], params.Monomial(uint64(i)), cts[i].Value[1])
	}

	res = gadget.NewCiphertext(r, 2*numLUT)

	failures := make([]error, numLUT)

	concurrency.ParallelForWithState(numLUT, func() rowEvaluator {
		return rowEvaluator{ht: eval.ht.ShallowCopy(), ss: eval.ss.ShallowCopy()}
	}, func(state rowEvaluator, i int) {

		ct := cts[i]

		if failures[i] = state.ht.EvalHT(evk.TraceKey, ct); failures[i] != nil {
			return
		}

		r.MForm(ct.Value[0], res.Value[2*i+1][0])
		r.MForm(ct.Value[1], res.Value[2*i+1][1])

		if failures[i] = state.ss.EvalSS(evk.SchemeSwitchKey, ct, ct); failures[i] != nil {
			return
		}

		r.MForm(ct.Value[0], res.Value[2*i][0])
		r.MForm(ct.Value[1], res.Value[2*i][1])
	})

	for i := range failures {
		if failures[i] != nil {
			return nil, fmt.Errorf("cannot CircuitBootstrap: %w", failures[i])
		}
	}

	return
}
