package cirbt

import (
	"math/bits"
)

func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a%q, b%q)
	_, r := bits.Div64(hi, lo, q)
	return r
}

func signedMod(x int64, q uint64) uint64 {
	if x < 0 {
		return (q - uint64(-x)%q) % q
	}
	return uint64(x) % q
}
