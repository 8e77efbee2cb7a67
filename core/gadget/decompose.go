package gadget

// SignedDecompose decomposes each coefficient of in (in [0, Q)) into g.Digits signed digits,
// digit k of in[j] being written, reduced mod Q, on out[k][j].
//
// The value is first centered in [-Q/2, Q/2), then its IgnoreBits() low-order bits are
// rounded away and the remaining bits are split into digits in [-base/2, base/2) by
// sign-extended bit extraction.
func (g Gadget) SignedDecompose(in []uint64, out [][]uint64) {
	d := g.decomposer()
	for j, x := range in {
		v := d.center(x)
		for k := 0; k < g.Digits; k++ {
			var r int64
			r, v = d.next(v)
			out[k][j] = d.reduce(r)
		}
	}
}

// SignedDecomposePair decomposes in0 and in1 and interleaves their digits:
// out[2k] receives digit k of in0 and out[2k+1] digit k of in1.
func (g Gadget) SignedDecomposePair(in0, in1 []uint64, out [][]uint64) {
	d := g.decomposer()
	for j := range in0 {
		v0 := d.center(in0[j])
		v1 := d.center(in1[j])
		for k := 0; k < g.Digits; k++ {
			var r0, r1 int64
			r0, v0 = d.next(v0)
			r1, v1 = d.next(v1)
			out[2*k][j] = d.reduce(r0)
			out[2*k+1][j] = d.reduce(r1)
		}
	}
}

// Recompose evaluates sum_k digits[k][j] * Powers[k] mod Q on out[j].
func (g Gadget) Recompose(digits [][]uint64, out []uint64) {
	for j := range out {
		var acc uint64
		for k := 0; k < g.Digits; k++ {
			acc += mulMod(digits[k][j], g.Powers[k], g.Q)
			if acc >= g.Q {
				acc -= g.Q
			}
		}
		out[j] = acc
	}
}

type decomposer struct {
	q         int64
	qHalf     uint64
	ignore    uint
	logBase   uint
	lowIgnore uint
	lowBase   uint
}

func (g Gadget) decomposer() decomposer {
	ignore := uint(g.IgnoreBits())
	logBase := uint(g.LogBase)
	return decomposer{
		q:         int64(g.Q),
		qHalf:     g.Q >> 1,
		ignore:    ignore,
		logBase:   logBase,
		lowIgnore: 64 - ignore,
		lowBase:   64 - logBase,
	}
}

// center maps x to [-Q/2, Q/2) and drops the ignored bits with signed rounding.
func (d decomposer) center(x uint64) (v int64) {
	v = int64(x)
	if x >= d.qHalf {
		v -= d.q
	}
	r := (v << d.lowIgnore) >> d.lowIgnore
	return (v - r) >> d.ignore
}

// next extracts the lowest signed digit of v and returns it with the remaining value.
func (d decomposer) next(v int64) (r, rest int64) {
	r = (v << d.lowBase) >> d.lowBase
	return r, (v - r) >> d.logBase
}

func (d decomposer) reduce(r int64) uint64 {
	if r < 0 {
		r += d.q
	}
	return uint64(r)
}
