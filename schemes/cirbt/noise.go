package cirbt

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/ske"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// NoiseStats are statistics, in log2, of the centered errors of the coefficients of a ciphertext.
type NoiseStats struct {
	Std float64
	Max float64
}

func (n NoiseStats) String() string {
	return fmt.Sprintf("log2(std)=%.2f log2(max)=%.2f", n.Std, n.Max)
}

func newNoiseStats(e stats.Float64Data) (n NoiseStats, err error) {

	std, err := e.StandardDeviation()
	if err != nil {
		return n, err
	}

	abs := make(stats.Float64Data, len(e))
	for i := range e {
		abs[i] = math.Abs(e[i])
	}

	max, err := abs.Max()
	if err != nil {
		return n, err
	}

	return NoiseStats{Std: math.Log2(std), Max: math.Log2(max)}, nil
}

// MeasureNoise returns the noise of each row of the RGSW encryption ct of m for the CC gadget,
// and of all rows together: row 2k+1 is compared to Powers[k]*m and row 2k to Powers[k]*m*s.
func MeasureNoise(params Parameters, sk *rlwe.SecretKey, ct *gadget.Ciphertext, m uint64) (rows []NoiseStats, total NoiseStats, err error) {

	g := params.GadgetCC()

	if ct == nil || ct.Rows() != 2*g.Digits {
		return nil, total, errs.Configuration("cannot MeasureNoise: ciphertext does not have %d rows", 2*g.Digits)
	}

	if sk == nil {
		return nil, total, errs.Configuration("cannot MeasureNoise: secret key is nil")
	}

	r := params.RLWE().RingQ()
	Q := params.Q()
	N := params.N()

	s := ske.SecretCoefficients(params.RLWE(), sk)

	c0, c1 := r.NewPoly(), r.NewPoly()

	all := make(stats.Float64Data, 0, ct.Rows()*N)
	rows = make([]NoiseStats, ct.Rows())

	for i := range ct.Value {

		r.IMForm(ct.Value[i][0], c0)
		r.IMForm(ct.Value[i][1], c1)
		r.MulCoeffsMontgomeryThenAdd(c1, sk.Value.Q, c0)
		r.INTT(c0, c0)

		gm := mulMod(g.Powers[i>>1], m, Q)

		e := make(stats.Float64Data, N)
		for j, c := range c0.Coeffs[0] {

			var want uint64
			if i&1 == 1 {
				if j == 0 {
					want = gm
				}
			} else {
				want = mulMod(gm, signedMod(s[j], Q), Q)
			}

			d := int64((c + Q - want) % Q)
			if uint64(d) > Q>>1 {
				d -= int64(Q)
			}

			e[j] = float64(d)
		}

		if rows[i], err = newNoiseStats(e); err != nil {
			return nil, total, fmt.Errorf("cannot MeasureNoise: %w", err)
		}

		all = append(all, e...)
	}

	if total, err = newNoiseStats(all); err != nil {
		return nil, total, fmt.Errorf("cannot MeasureNoise: %w", err)
	}

	return
}
