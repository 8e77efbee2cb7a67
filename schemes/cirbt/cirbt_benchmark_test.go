package cirbt

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
)

func BenchmarkCircuitBootstrapping(b *testing.B) {

	literals := []ParametersLiteral{TestParametersLiteral}

	if !testing.Short() {
		pl, err := STD128_CMUX_3.Literal()
		require.NoError(b, err)
		literals = append(literals, pl)
	}

	if *flagParamString != "" {
		var pl ParametersLiteral
		require.NoError(b, json.Unmarshal([]byte(*flagParamString), &pl))
		literals = []ParametersLiteral{pl}
	}

	for _, pl := range literals {

		params, err := NewParametersFromLiteral(pl)
		require.NoError(b, err)

		for _, v := range []blindrot.Variant{blindrot.CGGI, blindrot.LMKCDEY} {

			tc := newTestContext(b, params, v)

			for _, testSet := range []func(tc *testContext, v blindrot.Variant, b *testing.B){
				benchKeyGen,
				benchBootstrap,
			} {
				testSet(tc, v, b)
				runtime.GC()
			}
		}
	}
}

func benchKeyGen(tc *testContext, v blindrot.Variant, b *testing.B) {

	params := tc.params

	kgen, err := NewKeyGenerator(params, v)
	require.NoError(b, err)

	b.Run(testString(params, v, "KeyGen"), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := kgen.GenEvaluationKeySetNew(tc.skLWE, tc.skRLWE); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchBootstrap(tc *testContext, v blindrot.Variant, b *testing.B) {

	params := tc.params
	ctx := tc.ctx

	ct, err := ctx.Encrypt(tc.skLWE, 1, 2)
	require.NoError(b, err)

	eval := ctx.Evaluator()
	keys := ctx.Keys()

	b.Run(testString(params, v, "BootstrapManyLUT"), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := eval.BootstrapManyLUT(keys.AccKey, ct, params.LUT(), params.Bitwidth()); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(testString(params, v, "CircuitBootstrap"), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := eval.CircuitBootstrap(keys, ct); err != nil {
				b.Fatal(err)
			}
		}
	})
}
