package lwe

// Ciphertext is an LWE ciphertext (A, B) mod q.
type Ciphertext struct {
	A []uint64
	B uint64
}

// NewCiphertext allocates a zero [Ciphertext] of the dimension of params.
func NewCiphertext(params Parameters) *Ciphertext {
	return &Ciphertext{A: make([]uint64, params.N())}
}

// N returns the dimension of the ciphertext.
func (ct Ciphertext) N() int {
	return len(ct.A)
}

// CopyNew returns a deep copy of the ciphertext.
func (ct Ciphertext) CopyNew() *Ciphertext {
	return &Ciphertext{A: append([]uint64(nil), ct.A...), B: ct.B}
}

// Equal performs a deep equal.
func (ct Ciphertext) Equal(other *Ciphertext) bool {
	if other == nil || ct.B != other.B || len(ct.A) != len(other.A) {
		return false
	}
	for i := range ct.A {
		if ct.A[i] != other.A[i] {
			return false
		}
	}
	return true
}

// Add evaluates opOut = op0 + op1 mod q.
func (p Parameters) Add(op0, op1, opOut *Ciphertext) {
	q := p.q
	for i := range opOut.A {
		opOut.A[i] = (op0.A[i] + op1.A[i]) % q
	}
	opOut.B = (op0.B + op1.B) % q
}

// Sub evaluates opOut = op0 - op1 mod q.
func (p Parameters) Sub(op0, op1, opOut *Ciphertext) {
	q := p.q
	for i := range opOut.A {
		opOut.A[i] = (op0.A[i] + q - op1.A[i]) % q
	}
	opOut.B = (op0.B + q - op1.B) % q
}
