package cirbt

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"golang.org/x/crypto/blake2b"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/homtrace"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/core/schemeswitch"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// EvaluationKeySet is the set of keys of the circuit bootstrapping: the accumulator
// key of the blind rotation, the trace key and the scheme-switching key.
// It is read-only once generated and safe for concurrent use.
type EvaluationKeySet struct {
	// ParametersDigest is the digest of the parameters the keys were generated for.
	ParametersDigest [blake2b.Size256]byte

	AccKey          blindrot.AccKey
	TraceKey        *homtrace.EvaluationKey
	SchemeSwitchKey *schemeswitch.EvaluationKey
}

// Variant returns the variant of the accumulator key.
func (evk EvaluationKeySet) Variant() blindrot.Variant {
	if evk.AccKey == nil {
		return blindrot.Variant(-1)
	}
	return evk.AccKey.Variant()
}

// Check returns an error wrapping [errs.ErrConfiguration] if a key is missing, if the
// keys were generated for other parameters or another accumulator, or if one of them
// does not have the shape the parameters require.
func (evk *EvaluationKeySet) Check(params Parameters, v blindrot.Variant) error {

	if evk == nil {
		return errs.Configuration("evaluation keys have not been generated")
	}

	if err := evk.complete(); err != nil {
		return err
	}

	if evk.ParametersDigest != params.Digest() {
		return errs.Configuration("evaluation keys were generated for other parameters")
	}

	if evk.AccKey.Variant() != v {
		return errs.Configuration("evaluation keys were generated for the %s accumulator, not %s", evk.AccKey.Variant(), v)
	}

	if err := evk.AccKey.Check(params.BlindRotation()); err != nil {
		return fmt.Errorf("invalid accumulator key: %w", err)
	}

	if err := evk.TraceKey.Check(params.RLWE(), params.GadgetHT()); err != nil {
		return fmt.Errorf("invalid trace key: %w", err)
	}

	if err := evk.SchemeSwitchKey.Check(params.RLWE(), params.GadgetSS()); err != nil {
		return fmt.Errorf("invalid scheme-switching key: %w", err)
	}

	return nil
}

func (evk EvaluationKeySet) complete() error {
	if evk.AccKey == nil || evk.TraceKey == nil || evk.SchemeSwitchKey == nil {
		return errs.Configuration("evaluation keys have not been generated")
	}
	return nil
}

// Equal performs a deep equal.
func (evk EvaluationKeySet) Equal(other *EvaluationKeySet) bool {

	if other == nil || evk.ParametersDigest != other.ParametersDigest {
		return false
	}

	if evk.AccKey == nil || evk.TraceKey == nil || evk.SchemeSwitchKey == nil {
		return other.AccKey == nil && other.TraceKey == nil && other.SchemeSwitchKey == nil
	}

	if other.AccKey == nil || other.TraceKey == nil || other.SchemeSwitchKey == nil || evk.AccKey.Variant() != other.AccKey.Variant() {
		return false
	}

	var accEqual bool
	switch k := evk.AccKey.(type) {
	case *blindrot.CGGIKey:
		accEqual = k.Equal(other.AccKey.(*blindrot.CGGIKey))
	case *blindrot.LMKCDEYKey:
		accEqual = k.Equal(other.AccKey.(*blindrot.LMKCDEYKey))
	}

	return accEqual && evk.TraceKey.Equal(other.TraceKey) && evk.SchemeSwitchKey.Equal(other.SchemeSwitchKey)
}

// BinarySize returns the serialized size of the object in bytes, 0 if a key is missing.
func (evk EvaluationKeySet) BinarySize() int {
	if evk.complete() != nil {
		return 0
	}
	return blake2b.Size256 + 8 + evk.AccKey.BinarySize() + evk.TraceKey.BinarySize() + evk.SchemeSwitchKey.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (evk EvaluationKeySet) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		if err = evk.complete(); err != nil {
			return 0, fmt.Errorf("cannot WriteTo: %w", err)
		}

		var inc int64

		var m int
		if m, err = w.Write(evk.ParametersDigest[:]); err != nil {
			return n + int64(m), fmt.Errorf("buffer.Writer.Write: %w", err)
		}
		n += int64(m)

		if inc, err = buffer.WriteAsUint64(w, evk.AccKey.Variant()); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[blindrot.Variant]: %w", err)
		}
		n += inc

		for _, obj := range []io.WriterTo{evk.AccKey, evk.TraceKey, evk.SchemeSwitchKey} {
			if inc, err = obj.WriteTo(w); err != nil {
				return n + inc, fmt.Errorf("%T.WriteTo: %w", obj, err)
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return evk.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the io.ReaderFrom interface.
func (evk *EvaluationKeySet) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		var m int
		if m, err = io.ReadFull(r, evk.ParametersDigest[:]); err != nil {
			return n + int64(m), fmt.Errorf("io.ReadFull: %w", err)
		}
		n += int64(m)

		var v blindrot.Variant
		if inc, err = buffer.ReadAsUint64(r, &v); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[blindrot.Variant]: %w", err)
		}
		n += inc

		if evk.AccKey, err = blindrot.NewAccKey(v); err != nil {
			return n, err
		}

		evk.TraceKey = &homtrace.EvaluationKey{}
		evk.SchemeSwitchKey = &schemeswitch.EvaluationKey{}

		for _, obj := range []io.ReaderFrom{evk.AccKey, evk.TraceKey, evk.SchemeSwitchKey} {
			if inc, err = obj.ReadFrom(r); err != nil {
				return n + inc, fmt.Errorf("%T.ReadFrom: %w", obj, err)
			}
			n += inc
		}

		return n, nil

	default:
		return evk.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (evk EvaluationKeySet) MarshalBinary() (p []byte, err error) {
	if err = evk.complete(); err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	buf := buffer.NewBufferSize(evk.BinarySize())
	_, err = evk.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (evk *EvaluationKeySet) UnmarshalBinary(p []byte) (err error) {
	_, err = evk.ReadFrom(buffer.NewBuffer(p))
	return
}

// KeyGenerator generates the [EvaluationKeySet] of the circuit bootstrapping.
type KeyGenerator struct {
	params Parameters
	acc    blindrot.Accumulator
	ht     *homtrace.KeyGenerator
	ss     *schemeswitch.KeyGenerator
}

// NewKeyGenerator instantiates a new [KeyGenerator] for the accumulator variant v.
func NewKeyGenerator(params Parameters, v blindrot.Variant) (*KeyGenerator, error) {

	acc, err := blindrot.NewAccumulator(params.BlindRotation(), v)
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}

	ht, err := homtrace.NewKeyGenerator(params.RLWE(), params.GadgetHT())
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}

	ss, err := schemeswitch.NewKeyGenerator(params.RLWE(), params.GadgetSS())
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}

	return &KeyGenerator{params: params, acc: acc, ht: ht, ss: ss}, nil
}

// GenEvaluationKeySetNew generates the evaluation keys of the LWE secret skLWE under the RLWE secret skRLWE.
func (kgen KeyGenerator) GenEvaluationKeySetNew(skLWE *lwe.SecretKey, skRLWE *rlwe.SecretKey) (*EvaluationKeySet, error) {
	seed, err := gadget.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeySetNew: %w", err)
	}
	return kgen.GenEvaluationKeySetWithSeedNew(skLWE, skRLWE, seed)
}

// GenEvaluationKeySetWithSeedNew generates the evaluation keys with all the randomness of the
// gadget ciphertexts derived from seed.
func (kgen KeyGenerator) GenEvaluationKeySetWithSeedNew(skLWE *lwe.SecretKey, skRLWE *rlwe.SecretKey, seed []byte) (evk *EvaluationKeySet, err error) {

	if skLWE == nil || skRLWE == nil {
		return nil, errs.Configuration("cannot GenEvaluationKeySetNew: secret key is nil")
	}

	evk = &EvaluationKeySet{ParametersDigest: kgen.params.Digest()}

	if evk.AccKey, err = kgen.acc.KeyGenAccWithSeed(skRLWE, skLWE, seed); err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeySetNew: %w", err)
	}

	if evk.TraceKey, err = kgen.ht.GenEvaluationKeyWithSeedNew(skRLWE, seed); err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeySetNew: %w", err)
	}

	if evk.SchemeSwitchKey, err = kgen.ss.GenEvaluationKeyWithSeedNew(skRLWE, seed); err != nil {
		return nil, fmt.Errorf("cannot GenEvaluationKeySetNew: %w", err)
	}

	return
}
