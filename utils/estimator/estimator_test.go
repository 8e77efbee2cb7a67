package estimator

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testString(p Parameters, opname string) string {
	return fmt.Sprintf("%s/N=%d/n=%d/EP=(2^%d,%d)", opname, p.N, p.LWEN, p.EP.LogBase, p.EP.Digits)
}

func defaultParameters() Parameters {
	return Parameters{
		Method: CMUX,
		N:      2048,
		LWEN:   571,
		LWEQ:   1024,
		LogQ:   54,
		EP:     Decomposition{LogBase: 13, Digits: 3},
		HT:     Decomposition{LogBase: 17, Digits: 2},
		SS:     Decomposition{LogBase: 28, Digits: 1},
		CC:     Decomposition{LogBase: 2, Digits: 8},
	}
}

func TestLog2Erfc(t *testing.T) {

	for _, x := range []float64{0.5, 1, 2, 2.9} {
		require.InDelta(t, math.Log2(math.Erfc(x)), Log2Erfc(x), 1e-12)
	}

	// Continued fraction against double precision where erfc does not underflow.
	for _, x := range []float64{3, 4.5, 10, 20} {
		require.InDelta(t, math.Log2(math.Erfc(x)), Log2Erfc(x), 1e-6, "x=%f", x)
	}

	// erfc(40) underflows in double precision.
	require.Equal(t, 0.0, math.Erfc(40))
	have := Log2Erfc(40)
	want := -1600/math.Ln2 - math.Log2(40*math.Sqrt(math.Pi))
	require.InDelta(t, want, have, 1e-3)
}

func TestEstimate(t *testing.T) {

	p := defaultParameters()

	t.Run(testString(p, "ModSwitch"), func(t *testing.T) {
		v, f := p.ModSwitch()
		require.InDelta(t, 4*2048*2048*1600/(1024*1024.0), v, 1e-9)
		require.Less(t, f, -20.0)
	})

	t.Run(testString(p, "Estimate"), func(t *testing.T) {
		e := p.Estimate()
		require.Greater(t, e.MaxDepth, 1.0)
		require.Less(t, e.NoiseSum, 2*p.LogQ)
		require.Greater(t, e.SchemeSwitch, e.Trace)
	})

	t.Run(testString(p, "Monotonicity"), func(t *testing.T) {

		// A coarser decomposition adds more noise.
		coarse := defaultParameters()
		coarse.EP = Decomposition{LogBase: 34, Digits: 1}
		require.Greater(t, coarse.BlindRotation(), p.BlindRotation())

		// Ignoring more bits adds more noise.
		approx := defaultParameters()
		approx.HT = Decomposition{LogBase: 17, Digits: 1}
		require.Greater(t, approx.Trace(), p.Trace())
		require.Less(t, approx.MaxDepth(), p.MaxDepth())

		// A larger LWE dimension adds more noise.
		wide := defaultParameters()
		wide.LWEN = 1024
		require.Greater(t, wide.BlindRotation(), p.BlindRotation())
	})

	t.Run(testString(p, "Automorphism"), func(t *testing.T) {
		auto := defaultParameters()
		auto.Method = Automorphism
		auto.Auto = Decomposition{LogBase: 7, Digits: 7}
		require.Greater(t, auto.BlindRotation(), 0.0)
		require.NotEqual(t, auto.BlindRotation(), p.BlindRotation())
	})
}
