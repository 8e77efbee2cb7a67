package homtrace

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// Evaluator evaluates automorphisms and traces of RLWE ciphertexts in the NTT domain.
// It is not safe for concurrent use, see ShallowCopy.
type Evaluator struct {
	*gadget.Evaluator
	params rlwe.Parameters
	g      gadget.Gadget

	galEls            []uint64
	automorphismIndex map[uint64][]uint64

	buffQ [4]ring.Poly
}

// NewEvaluator instantiates a new [Evaluator] for the ring params and the trace gadget g.
func NewEvaluator(params rlwe.Parameters, g gadget.Gadget) (*Evaluator, error) {

	if err := checkParameters(params, g); err != nil {
		return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
	}

	galEls := GaloisElements(params.N())

	automorphismIndex := map[uint64][]uint64{}
	for _, galEl := range galEls {
		index, err := ring.AutomorphismNTTIndex(params.N(), params.RingQ().NthRoot(), galEl)
		if err != nil {
			return nil, fmt.Errorf("cannot NewEvaluator: %w", err)
		}
		automorphismIndex[galEl] = index
	}

	return newEvaluator(params, g, galEls, automorphismIndex), nil
}

func newEvaluator(params rlwe.Parameters, g gadget.Gadget, galEls []uint64, automorphismIndex map[uint64][]uint64) *Evaluator {
	r := params.RingQ()
	return &Evaluator{
		Evaluator:         gadget.NewEvaluator(r),
		params:            params,
		g:                 g,
		galEls:            galEls,
		automorphismIndex: automorphismIndex,
		buffQ:             [4]ring.Poly{r.NewPoly(), r.NewPoly(), r.NewPoly(), r.NewPoly()},
	}
}

// ShallowCopy creates a shallow copy of this [Evaluator] in which the read-only data-structures are
// shared with the receiver and the temporary buffers are reallocated. The receiver and the returned
// Evaluators can be used concurrently.
func (eval Evaluator) ShallowCopy() *Evaluator {
	return newEvaluator(eval.params, eval.g, eval.galEls, eval.automorphismIndex)
}

// Automorphism evaluates opOut = sigma(op0) for the Galois element galEl, key being the
// key-switching key from sigma(s) to s. op0 and opOut can be the same.
func (eval *Evaluator) Automorphism(op0 *rlwe.Ciphertext, galEl uint64, key *gadget.Ciphertext, opOut *rlwe.Ciphertext) (err error) {

	if key == nil {
		return errs.Configuration("cannot Automorphism: key is nil")
	}

	if key.Rows() != eval.g.Digits {
		return errs.Configuration("cannot Automorphism: key has %d rows but the gadget has %d digits", key.Rows(), eval.g.Digits)
	}

	index, ok := eval.automorphismIndex[galEl]
	if !ok {
		if index, err = ring.AutomorphismNTTIndex(eval.params.N(), eval.params.RingQ().NthRoot(), galEl); err != nil {
			return fmt.Errorf("cannot Automorphism: %w", err)
		}
	}

	r := eval.RingQ()

	c0, c1 := eval.buffQ[0], eval.buffQ[1]

	r.AutomorphismNTTWithIndex(op0.Value[0], index, c0)
	r.AutomorphismNTTWithIndex(op0.Value[1], index, c1)

	// (sigma(c0), 0) + <decomp(sigma(c1)), key>
	opOut.Value[0].Copy(c0)
	opOut.Value[1].Zero()

	eval.KeySwitchThenAdd(eval.g, c1, key, opOut.Value[0], opOut.Value[1])

	opOut.IsNTT = true

	return
}

// EvalHT evaluates ct <- Tr(ct) in place: for each Galois element (N>>i)+1, ct <- sigma_i(ct) + ct.
// If ct encrypts m, the result encrypts N * m[0] on its constant coefficient and zero elsewhere.
func (eval *Evaluator) EvalHT(evk *EvaluationKey, ct *rlwe.Ciphertext) (err error) {

	if evk == nil {
		return errs.Configuration("cannot EvalHT: trace key is nil")
	}

	if len(evk.Value) != len(eval.galEls) {
		return errs.Configuration("cannot EvalHT: trace key has %d automorphism keys but the ring requires %d", len(evk.Value), len(eval.galEls))
	}

	r := eval.RingQ()

	// buffQ[0] and buffQ[1] are used by Automorphism.
	ct0, ct1 := eval.buffQ[2], eval.buffQ[3]

	for i, galEl := range eval.galEls {

		ct0.Copy(ct.Value[0])
		ct1.Copy(ct.Value[1])

		if err = eval.Automorphism(ct, galEl, evk.Value[i], ct); err != nil {
			return fmt.Errorf("cannot EvalHT: %w", err)
		}

		r.Add(ct.Value[0], ct0, ct.Value[0])
		r.Add(ct.Value[1], ct1, ct.Value[1])
	}

	return
}
