// Package gadget implements power-of-two gadgets with signed approximate decomposition,
// gadget (RGSW-like) ciphertexts and the external product between RLWE and gadget ciphertexts.
//
// All gadgets of this package are defined over a single word-size prime Q.
// A gadget (base = 2^LogBase, Digits) ignores the IgnoreBits() = LogQ - Digits*LogBase
// low-order bits of a value centered in [-Q/2, Q/2) and decomposes the remaining bits
// into Digits signed digits in [-base/2, base/2).
package gadget

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/cirbt/utils/errs"
)

// MaxLogQ is the maximum bit length of the modulus supported by the decomposition.
const MaxLogQ = 61

// Gadget stores a power-of-two gadget and its power tables.
type Gadget struct {
	Q       uint64
	LogQ    int
	LogBase int
	Digits  int

	// ExactPowers[i] = base^i mod Q for i in [0, ceil(LogQ/LogBase)).
	ExactPowers []uint64

	// Powers[i] = ceil(Q/base^Digits) * base^i mod Q for i in [0, Digits).
	// It is the approximate gadget vector used by key generation.
	Powers []uint64
}

// NewGadget returns the gadget of base 2^logBase with the given number of digits over Z_Q.
func NewGadget(Q uint64, logBase, digits int) (g Gadget, err error) {

	if Q < 3 || Q&1 == 0 {
		return g, errs.Configuration("invalid gadget modulus %d: must be an odd integer greater than 2", Q)
	}

	logQ := bits.Len64(Q)

	if logQ > MaxLogQ {
		return g, errs.Configuration("invalid gadget modulus: bit length %d exceeds the maximum of %d", logQ, MaxLogQ)
	}

	if logBase < 1 || logBase > logQ {
		return g, errs.Configuration("invalid gadget base 2^%d: log2(base) must be in [1, %d]", logBase, logQ)
	}

	if digits < 1 {
		return g, errs.Configuration("invalid gadget digits %d: must be at least 1", digits)
	}

	if digits*logBase > logQ {
		return g, errs.Configuration("invalid gadget (2^%d, %d): digits*log2(base) exceeds the modulus bit length %d", logBase, digits, logQ)
	}

	g = Gadget{
		Q:       Q,
		LogQ:    logQ,
		LogBase: logBase,
		Digits:  digits,
	}

	base := uint64(1) << logBase

	exactDigits := (logQ + logBase - 1) / logBase
	g.ExactPowers = make([]uint64, exactDigits)
	g.ExactPowers[0] = 1
	for i := 1; i < exactDigits; i++ {
		g.ExactPowers[i] = mulMod(g.ExactPowers[i-1], base, Q)
	}

	// ceil(Q / base^digits)
	shift := uint(digits * logBase)
	p0 := Q >> shift
	if Q&((uint64(1)<<shift)-1) != 0 {
		p0++
	}

	g.Powers = make([]uint64, digits)
	g.Powers[0] = p0 % Q
	for i := 1; i < digits; i++ {
		g.Powers[i] = mulMod(g.Powers[i-1], base, Q)
	}

	return
}

// Base returns 2^LogBase.
func (g Gadget) Base() uint64 {
	return uint64(1) << g.LogBase
}

// IgnoreBits returns the number of low-order bits discarded by the approximate decomposition.
func (g Gadget) IgnoreBits() int {
	return g.LogQ - g.Digits*g.LogBase
}

// ExactDigits returns the number of digits of the exact decomposition, ceil(LogQ/LogBase).
func (g Gadget) ExactDigits() int {
	return len(g.ExactPowers)
}

// Equal returns true if both gadgets are identical.
func (g Gadget) Equal(other Gadget) bool {
	return g.Q == other.Q && g.LogBase == other.LogBase && g.Digits == other.Digits
}

func (g Gadget) String() string {
	return fmt.Sprintf("Base=2^%d/Digits=%d", g.LogBase, g.Digits)
}

func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, q)
}

// LastPrime returns the largest prime of logQ bits congruent to 1 mod nthRoot.
func LastPrime(logQ int, nthRoot uint64) (uint64, error) {

	if logQ < 2 || logQ > MaxLogQ {
		return 0, errs.Configuration("invalid prime bit length %d: must be in [2, %d]", logQ, MaxLogQ)
	}

	if nthRoot == 0 || bits.Len64(nthRoot) >= logQ {
		return 0, errs.Configuration("invalid cyclotomic order %d for a %d-bit prime", nthRoot, logQ)
	}

	lower := uint64(1) << (logQ - 1)

	// Largest q = 1 mod nthRoot with q < 2^logQ.
	q := ((uint64(1)<<logQ)-2)/nthRoot*nthRoot + 1

	for ; q > lower; q -= nthRoot {
		if ring.IsPrime(q) {
			return q, nil
		}
	}

	return 0, errs.Configuration("no %d-bit prime congruent to 1 mod %d", logQ, nthRoot)
}
