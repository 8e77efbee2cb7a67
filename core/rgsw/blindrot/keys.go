package blindrot

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/lattigo/v6/utils/structs"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// CGGIKey is the key of the [CGGI] accumulator: for each LWE secret position i,
// a gadget encryption of s[i] in {0, 1}.
type CGGIKey struct {
	Value []*gadget.Ciphertext
}

// Variant returns [CGGI].
func (CGGIKey) Variant() Variant {
	return CGGI
}

// vector writes nil entries as empty ciphertexts, which Check rejects once read back.
func (key CGGIKey) vector() structs.Vector[gadget.Ciphertext] {
	v := make(structs.Vector[gadget.Ciphertext], len(key.Value))
	for i := range key.Value {
		if key.Value[i] != nil {
			v[i] = *key.Value[i]
		}
	}
	return v
}

// Check returns an error wrapping [errs.ErrConfiguration] if the key does not have the
// shape of a [CGGI] key for params.
func (key *CGGIKey) Check(params Parameters) error {
	if key == nil {
		return errs.Configuration("CGGI key is nil")
	}
	return checkRGSWKeys(key.Value, params)
}

// Equal performs a deep equal.
func (key CGGIKey) Equal(other *CGGIKey) bool {
	if other == nil || len(key.Value) != len(other.Value) {
		return false
	}
	for i := range key.Value {
		if !key.Value[i].Equal(other.Value[i]) {
			return false
		}
	}
	return true
}

// BinarySize returns the serialized size of the object in bytes.
func (key CGGIKey) BinarySize() int {
	return key.vector().BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (key CGGIKey) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		v := key.vector()
		if n, err = v.WriteTo(w); err != nil {
			return n, fmt.Errorf("structs.Vector[gadget.Ciphertext].WriteTo: %w", err)
		}
		return n, w.Flush()
	default:
		return key.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the io.ReaderFrom interface.
func (key *CGGIKey) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:
		var v structs.Vector[gadget.Ciphertext]
		if n, err = v.ReadFrom(r); err != nil {
			return n, fmt.Errorf("structs.Vector[gadget.Ciphertext].ReadFrom: %w", err)
		}
		key.Value = make([]*gadget.Ciphertext, len(v))
		for i := range v {
			key.Value[i] = &v[i]
		}
		return n, nil
	default:
		return key.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (key CGGIKey) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(key.BinarySize())
	_, err = key.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (key *CGGIKey) UnmarshalBinary(p []byte) (err error) {
	_, err = key.ReadFrom(buffer.NewBuffer(p))
	return
}

// LMKCDEYKey is the key of the [LMKCDEY] accumulator: RGSW(X^{s[i]}) for each LWE secret
// position i and the key-switching keys of the automorphisms g^1, ..., g^w and -g.
type LMKCDEYKey struct {
	BlindRotationKeys []*gadget.Ciphertext
	AutomorphismKeys  []*gadget.Ciphertext
}

// Variant returns [LMKCDEY].
func (LMKCDEYKey) Variant() Variant {
	return LMKCDEY
}

// Check returns an error wrapping [errs.ErrConfiguration] if the key does not have the
// shape of an [LMKCDEY] key for params.
func (key *LMKCDEYKey) Check(params Parameters) error {

	if key == nil {
		return errs.Configuration("LMKCDEY key is nil")
	}

	if err := checkRGSWKeys(key.BlindRotationKeys, params); err != nil {
		return err
	}

	if len(key.AutomorphismKeys) != windowSize+1 {
		return errs.Configuration("LMKCDEY key has %d automorphism keys but %d are expected", len(key.AutomorphismKeys), windowSize+1)
	}

	r := params.RLWE.RingQ()
	for i, ksk := range key.AutomorphismKeys {
		if err := ksk.Check(r, params.Gadget.Digits); err != nil {
			return fmt.Errorf("automorphism key %d: %w", i, err)
		}
	}

	return nil
}

// GetBlindRotationKey returns RGSW(X^{s[i]}).
func (key LMKCDEYKey) GetBlindRotationKey(i int) (*gadget.Ciphertext, error) {
	if i < 0 || i >= len(key.BlindRotationKeys) || key.BlindRotationKeys[i] == nil {
		return nil, fmt.Errorf("blind rotation key %d is missing", i)
	}
	return key.BlindRotationKeys[i], nil
}

func (key LMKCDEYKey) vector() structs.Vector[gadget.Ciphertext] {
	v := make(structs.Vector[gadget.Ciphertext], len(key.BlindRotationKeys)+len(key.AutomorphismKeys))
	for i := range key.BlindRotationKeys {
		if key.BlindRotationKeys[i] != nil {
			v[i] = *key.BlindRotationKeys[i]
		}
	}
	for i := range key.AutomorphismKeys {
		if key.AutomorphismKeys[i] != nil {
			v[len(key.BlindRotationKeys)+i] = *key.AutomorphismKeys[i]
		}
	}
	return v
}

// Equal performs a deep equal.
func (key LMKCDEYKey) Equal(other *LMKCDEYKey) bool {
	if other == nil || len(key.BlindRotationKeys) != len(other.BlindRotationKeys) || len(key.AutomorphismKeys) != len(other.AutomorphismKeys) {
		return false
	}
	for i := range key.BlindRotationKeys {
		if !key.BlindRotationKeys[i].Equal(other.BlindRotationKeys[i]) {
			return false
		}
	}
	for i := range key.AutomorphismKeys {
		if !key.AutomorphismKeys[i].Equal(other.AutomorphismKeys[i]) {
			return false
		}
	}
	return true
}

// BinarySize returns the serialized size of the object in bytes.
func (key LMKCDEYKey) BinarySize() int {
	return 8 + key.vector().BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (key LMKCDEYKey) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64(w, len(key.BlindRotationKeys)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		v := key.vector()
		if inc, err = v.WriteTo(w); err != nil {
			return n + inc, fmt.Errorf("structs.Vector[gadget.Ciphertext].WriteTo: %w", err)
		}
		n += inc

		return n, w.Flush()
	default:
		return key.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the io.ReaderFrom interface.
func (key *LMKCDEYKey) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		var brk int
		if inc, err = buffer.ReadAsUint64(r, &brk); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		var v structs.Vector[gadget.Ciphertext]
		if inc, err = v.ReadFrom(r); err != nil {
			return n + inc, fmt.Errorf("structs.Vector[gadget.Ciphertext].ReadFrom: %w", err)
		}
		n += inc

		if brk < 0 || brk > len(v) {
			return n, fmt.Errorf("invalid LMKCDEY key encoding: %d blind rotation keys out of %d ciphertexts", brk, len(v))
		}

		key.BlindRotationKeys = make([]*gadget.Ciphertext, brk)
		for i := range key.BlindRotationKeys {
			key.BlindRotationKeys[i] = &v[i]
		}

		key.AutomorphismKeys = make([]*gadget.Ciphertext, len(v)-brk)
		for i := range key.AutomorphismKeys {
			key.AutomorphismKeys[i] = &v[brk+i]
		}

		return n, nil
	default:
		return key.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (key LMKCDEYKey) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(key.BinarySize())
	_, err = key.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (key *LMKCDEYKey) UnmarshalBinary(p []byte) (err error) {
	_, err = key.ReadFrom(buffer.NewBuffer(p))
	return
}

// checkRGSWKeys checks that keys holds one RGSW ciphertext of 2*Digits rows per LWE secret position.
func checkRGSWKeys(keys []*gadget.Ciphertext, params Parameters) error {

	if len(keys) != params.LWE.N() {
		return errs.Configuration("accumulator key has %d blind rotation keys but the LWE dimension is %d", len(keys), params.LWE.N())
	}

	r := params.RLWE.RingQ()
	for i, ct := range keys {
		if err := ct.Check(r, 2*params.Gadget.Digits); err != nil {
			return fmt.Errorf("blind rotation key %d: %w", i, err)
		}
	}

	return nil
}
