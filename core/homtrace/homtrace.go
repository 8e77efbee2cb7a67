// Package homtrace implements the homomorphic field trace Tr_{K/Q} over Z_Q[X]/(X^N+1):
// log2(N) automorphisms X -> X^{(N>>i)+1}, each followed by an addition, collapse an RLWE
// ciphertext of m to an encryption of N times the constant coefficient of m.
//
// Automorphism keys are gadget key-switching keys from sigma(s) to s, built for an
// approximate gadget that is independent from the one of the ring parameters.
package homtrace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/lattigo/v6/utils/structs"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// GaloisElements returns the Galois elements (N>>i)+1, i in [0, log2(N)), of the trace.
func GaloisElements(N int) (galEls []uint64) {
	for n := N; n > 1; n >>= 1 {
		galEls = append(galEls, uint64(n)+1)
	}
	return
}

// EvaluationKey is the trace key: Value[i] switches sigma_i(s) to s, sigma_i being
// the automorphism of Galois element (N>>i)+1.
type EvaluationKey struct {
	Value []*gadget.Ciphertext
}

// Equal performs a deep equal.
func (evk EvaluationKey) Equal(other *EvaluationKey) bool {
	if other == nil || len(evk.Value) != len(other.Value) {
		return false
	}
	for i := range evk.Value {
		if !evk.Value[i].Equal(other.Value[i]) {
			return false
		}
	}
	return true
}

// Check returns an error wrapping [errs.ErrConfiguration] if the key does not hold one
// key-switching key of g.Digits rows per Galois element of the trace over params.
func (evk *EvaluationKey) Check(params rlwe.Parameters, g gadget.Gadget) error {

	if evk == nil {
		return errs.Configuration("trace key is nil")
	}

	if len(evk.Value) != params.LogN() {
		return errs.Configuration("trace key has %d automorphism keys but the ring requires %d", len(evk.Value), params.LogN())
	}

	for i, ksk := range evk.Value {
		if err := ksk.Check(params.RingQ(), g.Digits); err != nil {
			return fmt.Errorf("trace key %d: %w", i, err)
		}
	}

	return nil
}

func (evk EvaluationKey) vector() structs.Vector[gadget.Ciphertext] {
	v := make(structs.Vector[gadget.Ciphertext], len(evk.Value))
	for i := range evk.Value {
		if evk.Value[i] != nil {
			v[i] = *evk.Value[i]
		}
	}
	return v
}

// BinarySize returns the serialized size of the object in bytes.
func (evk EvaluationKey) BinarySize() int {
	return evk.vector().BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (evk EvaluationKey) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		v := evk.vector()
		if n, err = v.WriteTo(w); err != nil {
			return n, fmt.Errorf("structs.Vector[gadget.Ciphertext].WriteTo: %w", err)
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
		var v structs.Vector[gadget.Ciphertext]
		if n, err = v.ReadFrom(r); err != nil {
			return n, fmt.Errorf("structs.Vector[gadget.Ciphertext].ReadFrom: %w", err)
		}
		evk.Value = make([]*gadget.Ciphertext, len(v))
		for i := range v {
			evk.Value[i] = &v[i]
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
		return errs.Configuration("invalid trace parameters: the gadget modulus %d must be the single ring modulus", g.Q)
	}

	if !params.NTTFlag() {
		return errs.Configuration("invalid trace parameters: ciphertexts must be in the NTT domain")
	}

	return nil
}
