package gadget

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/lattigo/v6/utils/structs"

	"github.com/tuneinsight/cirbt/utils/errs"
)

// Ciphertext is a gadget ciphertext: a matrix of rows, each row being an RLWE pair
// (c0, c1) stored in the NTT and Montgomery domain.
//
// When used as an RGSW ciphertext it has 2*Digits rows: row 2k is multiplied by digit k
// of the mask (c1) and row 2k+1 by digit k of the body (c0) of the RLWE operand.
// When used as a key-switching key it has Digits rows, row k being multiplied by digit k
// of the switched polynomial.
type Ciphertext struct {
	Value [][2]ring.Poly
}

// NewCiphertext allocates a zero gadget ciphertext with the given number of rows.
func NewCiphertext(r *ring.Ring, rows int) (ct *Ciphertext) {
	ct = &Ciphertext{Value: make([][2]ring.Poly, rows)}
	for i := range ct.Value {
		ct.Value[i] = [2]ring.Poly{r.NewPoly(), r.NewPoly()}
	}
	return
}

// Rows returns the number of rows of the ciphertext.
func (ct Ciphertext) Rows() int {
	return len(ct.Value)
}

// Check returns an error wrapping [errs.ErrConfiguration] if the ciphertext does not have
// the given number of rows or if one of its polynomials is not an element of r.
func (ct *Ciphertext) Check(r *ring.Ring, rows int) error {

	if ct == nil {
		return errs.Configuration("gadget ciphertext is nil")
	}

	if len(ct.Value) != rows {
		return errs.Configuration("gadget ciphertext has %d rows but %d are expected", len(ct.Value), rows)
	}

	for i := range ct.Value {
		for j := range ct.Value[i] {
			if p := ct.Value[i][j]; p.Level() != r.Level() || p.N() != r.N() {
				return errs.Configuration("gadget ciphertext row %d is not an element of the ring of degree %d", i, r.N())
			}
		}
	}

	return nil
}

// CopyNew returns a deep copy of the ciphertext.
func (ct Ciphertext) CopyNew() *Ciphertext {
	cpy := &Ciphertext{Value: make([][2]ring.Poly, len(ct.Value))}
	for i := range ct.Value {
		cpy.Value[i] = [2]ring.Poly{*ct.Value[i][0].CopyNew(), *ct.Value[i][1].CopyNew()}
	}
	return cpy
}

// Equal performs a deep equal.
func (ct Ciphertext) Equal(other *Ciphertext) bool {

	if other == nil || len(ct.Value) != len(other.Value) {
		return false
	}

	for i := range ct.Value {
		if !ct.Value[i][0].Equal(&other.Value[i][0]) || !ct.Value[i][1].Equal(&other.Value[i][1]) {
			return false
		}
	}

	return true
}

func (ct Ciphertext) flatten() structs.Vector[ring.Poly] {
	v := make(structs.Vector[ring.Poly], 2*len(ct.Value))
	for i := range ct.Value {
		v[2*i] = ct.Value[i][0]
		v[2*i+1] = ct.Value[i][1]
	}
	return v
}

// BinarySize returns the serialized size of the object in bytes.
func (ct Ciphertext) BinarySize() int {
	return ct.flatten().BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
func (ct Ciphertext) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		if n, err = ct.flatten().WriteTo(w); err != nil {
			return n, fmt.Errorf("structs.Vector[ring.Poly].WriteTo: %w", err)
		}
		return n, w.Flush()
	default:
		return ct.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the io.ReaderFrom interface.
func (ct *Ciphertext) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var v structs.Vector[ring.Poly]
		if n, err = v.ReadFrom(r); err != nil {
			return n, fmt.Errorf("structs.Vector[ring.Poly].ReadFrom: %w", err)
		}

		if len(v)&1 != 0 {
			return n, fmt.Errorf("invalid gadget ciphertext encoding: odd number of polynomials (%d)", len(v))
		}

		ct.Value = make([][2]ring.Poly, len(v)>>1)
		for i := range ct.Value {
			ct.Value[i] = [2]ring.Poly{v[2*i], v[2*i+1]}
		}

		return n, nil

	default:
		return ct.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (ct Ciphertext) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(ct.BinarySize())
	_, err = ct.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or WriteTo on the object.
func (ct *Ciphertext) UnmarshalBinary(p []byte) (err error) {
	_, err = ct.ReadFrom(buffer.NewBuffer(p))
	return
}
