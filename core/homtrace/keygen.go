package homtrace

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/utils/concurrency"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// KeyGenerator generates trace keys.
type KeyGenerator struct {
	params rlwe.Parameters
	g      gadget.Gadget
}

// NewKeyGenerator instantiates a new [KeyGenerator] for the ring params and the trace gadget g.
func NewKeyGenerator(params rlwe.Parameters, g gadget.Gadget) (*KeyGenerator, error) {
	if err := checkParameters(params, g); err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}
	return &KeyGenerator{params: params, g: g}, nil
}

// GenEvaluationKeyNew generates the trace key of sk.
func (kgen KeyGenerator) GenEvaluationKeyNew(sk *rlwe.SecretKey) (*EvaluationKey, error) {
	seed, err := gadget.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeyNew: %w", err)
	}
	return kgen.GenEvaluationKeyWithSeedNew(sk, seed)
}

// GenEvaluationKeyWithSeedNew generates the trace key of sk, the automorphism keys
// being generated in parallel, each from its own PRNG derived from seed.
func (kgen KeyGenerator) GenEvaluationKeyWithSeedNew(sk *rlwe.SecretKey, seed []byte) (*EvaluationKey, error) {

	if sk == nil {
		return nil, errs.Configuration("cannot GenEvaluationKeyNew: secret key is nil")
	}

	r := kgen.params.RingQ()

	// s in the NTT domain, outside of the Montgomery domain.
	s := r.NewPoly()
	r.IMForm(sk.Value.Q, s)

	galEls := GaloisElements(kgen.params.N())

	evk := &EvaluationKey{Value: make([]*gadget.Ciphertext, len(galEls))}

	err := concurrency.ParallelForErr(len(galEls), func(i int) error {

		prng, err := gadget.DerivePRNG(seed, "HT", i)
		if err != nil {
			return err
		}

		enc, err := gadget.NewEncryptor(kgen.params, sk, prng)
		if err != nil {
			return err
		}

		sAut := r.NewPoly()
		r.AutomorphismNTT(s, galEls[i], sAut)

		ct := gadget.NewCiphertext(r, kgen.g.Digits)
		enc.EncryptPowers(sAut, kgen.g, ct)
		evk.Value[i] = ct

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeyNew: %w", err)
	}

	return evk, nil
}
