package cirbt

import (
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/utils/estimator"
)

// Estimator returns the inputs of the analytic noise estimation of the circuit
// bootstrapping with the accumulator variant v.
func (p Parameters) Estimator(v blindrot.Variant) estimator.Parameters {

	pl := p.literal

	method := estimator.CMUX
	if v == blindrot.LMKCDEY {
		method = estimator.Automorphism
	}

	decomposition := func(g GadgetLiteral) estimator.Decomposition {
		return estimator.Decomposition{LogBase: g.LogBase, Digits: g.Digits}
	}

	return estimator.Parameters{
		Method:   method,
		N:        p.N(),
		LWEN:     pl.LWEN,
		LWEQ:     float64(pl.LWEQ),
		LogQ:     float64(pl.LogQ),
		SigmaKey: pl.Sigma,
		EP:       decomposition(pl.EP),
		// The automorphism keys share the gadget of the blind-rotation keys.
		Auto: decomposition(pl.EP),
		HT:   decomposition(pl.HT),
		SS:   decomposition(pl.SS),
		CC:   decomposition(pl.CC),
	}
}

// Estimate returns the analytic noise estimation of the circuit bootstrapping with
// the accumulator variant v.
func (p Parameters) Estimate(v blindrot.Variant) estimator.Estimate {
	return p.Estimator(v).Estimate()
}
