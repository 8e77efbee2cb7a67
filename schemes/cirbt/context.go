// Package cirbt implements the circuit bootstrapping of LWE ciphertexts: an LWE encryption
// of a bit m is turned into an RGSW encryption of m, usable as the selector of homomorphic
// multiplexers.
//
// The bootstrapping evaluates a multi-value functional bootstrapping (blind rotation of a
// multi-value LUT) extracting one RLWE ciphertext per digit of the output gadget, collapses
// each of them to its constant coefficient with a homomorphic trace, and completes each
// gadget row pair with a scheme switch from s^2 to s.
package cirbt

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/core/ske"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// DefaultPlaintextModulus is the plaintext modulus of Encrypt and Decrypt when p is zero.
const DefaultPlaintextModulus = 2

// Context bundles parameters, an evaluator and the evaluation keys.
// It is not safe for concurrent use: concurrent bootstrappings must use
// one Evaluator per goroutine, see Evaluator.ShallowCopy.
type Context struct {
	params  Parameters
	variant blindrot.Variant
	eval    *Evaluator
	keys    *EvaluationKeySet
}

// GenerateContext returns a [Context] for the predefined parameter set.
func GenerateContext(set ParameterSet, v blindrot.Variant) (*Context, error) {

	pl, err := set.Literal()
	if err != nil {
		return nil, fmt.Errorf("cannot GenerateContext: %w", err)
	}

	params, err := NewParametersFromLiteral(pl)
	if err != nil {
		return nil, fmt.Errorf("cannot GenerateContext: %w", err)
	}

	return NewContext(params, v)
}

// NewContext returns a [Context] for the parameters.
func NewContext(params Parameters, v blindrot.Variant) (*Context, error) {

	eval, err := NewEvaluator(params, v)
	if err != nil {
		return nil, fmt.Errorf("cannot NewContext: %w", err)
	}

	return &Context{params: params, variant: v, eval: eval}, nil
}

// Params returns the parameters of the Context.
func (ctx Context) Params() Parameters {
	return ctx.params
}

// Variant returns the accumulator variant of the Context.
func (ctx Context) Variant() blindrot.Variant {
	return ctx.variant
}

// Evaluator returns the evaluator of the Context.
func (ctx Context) Evaluator() *Evaluator {
	return ctx.eval
}

// KeyGen generates an LWE secret key.
func (ctx Context) KeyGen() (*lwe.SecretKey, error) {
	return lwe.NewKeyGenerator(ctx.params.LWE()).GenSecretKeyNew()
}

// RLWEKeyGen generates an RLWE secret key.
func (ctx Context) RLWEKeyGen() (*rlwe.SecretKey, error) {
	return ske.NewKeyGenerator(ctx.params.RLWE()).GenSecretKeyNew(ctx.params.literal.RLWEKeyDist)
}

// Encrypt encrypts m mod p under sk. A zero p is replaced by [DefaultPlaintextModulus].
func (ctx Context) Encrypt(sk *lwe.SecretKey, m, p uint64) (*lwe.Ciphertext, error) {
	if p == 0 {
		p = DefaultPlaintextModulus
	}
	return lwe.NewEncryptor(ctx.params.LWE(), sk).EncryptNew(m, p)
}

// Decrypt decrypts ct mod p under sk. A zero p is replaced by [DefaultPlaintextModulus].
func (ctx Context) Decrypt(sk *lwe.SecretKey, ct *lwe.Ciphertext, p uint64) (uint64, error) {
	if p == 0 {
		p = DefaultPlaintextModulus
	}
	return lwe.NewDecryptor(ctx.params.LWE(), sk).Decrypt(ct, p)
}

// CirBTKeyGen generates the evaluation keys of the circuit bootstrapping and sets them on the Context.
// The keys of the Context are left untouched if the generation fails.
func (ctx *Context) CirBTKeyGen(skLWE *lwe.SecretKey, skRLWE *rlwe.SecretKey) error {
	seed, err := gadget.NewSeed()
	if err != nil {
		return fmt.Errorf("cannot CirBTKeyGen: %w", err)
	}
	return ctx.CirBTKeyGenWithSeed(skLWE, skRLWE, seed)
}

// CirBTKeyGenWithSeed is as CirBTKeyGen, the randomness of the keys being derived from seed.
func (ctx *Context) CirBTKeyGenWithSeed(skLWE *lwe.SecretKey, skRLWE *rlwe.SecretKey, seed []byte) error {

	kgen, err := NewKeyGenerator(ctx.params, ctx.variant)
	if err != nil {
		return fmt.Errorf("cannot CirBTKeyGen: %w", err)
	}

	keys, err := kgen.GenEvaluationKeySetWithSeedNew(skLWE, skRLWE, seed)
	if err != nil {
		return fmt.Errorf("cannot CirBTKeyGen: %w", err)
	}

	ctx.keys = keys

	return nil
}

// Keys returns the evaluation keys of the Context, nil if they have not been generated.
func (ctx Context) Keys() *EvaluationKeySet {
	return ctx.keys
}

// SetKeys sets the evaluation keys of the Context after checking them against its parameters.
func (ctx *Context) SetKeys(keys *EvaluationKeySet) error {
	if err := keys.Check(ctx.params, ctx.variant); err != nil {
		return fmt.Errorf("cannot SetKeys: %w", err)
	}
	ctx.keys = keys
	return nil
}

// ClearKeys removes the evaluation keys of the Context.
func (ctx *Context) ClearKeys() {
	ctx.keys = nil
}

// CircuitBootstrapping returns an RGSW encryption, for the CC gadget, of the bit encrypted by ct.
func (ctx Context) CircuitBootstrapping(ct *lwe.Ciphertext) (*gadget.Ciphertext, error) {

	if ctx.keys == nil {
		return nil, errs.Configuration("cannot CircuitBootstrapping: bootstrapping keys have not been generated, call CirBTKeyGen first")
	}

	return ctx.eval.CircuitBootstrap(ctx.keys, ct)
}
