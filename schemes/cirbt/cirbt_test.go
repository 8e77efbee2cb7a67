package cirbt

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/bits"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/tuneinsight/cirbt/core/gadget"
	"github.com/tuneinsight/cirbt/core/lwe"
	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/core/ske"
	"github.com/tuneinsight/cirbt/utils/errs"
)

var flagParamString = flag.String("params", "", "specify the test cryptographic parameters as a JSON string. Overrides -short.")
var flagPrintNoise = flag.Bool("print-noise", false, "print the residual noise")

// TestParametersLiteral is an insecure parameter set for fast tests.
// <<<<!Insecure parameters!>>>>
var TestParametersLiteral = ParametersLiteral{
	LogN:        10,
	LogQ:        54,
	LWEN:        64,
	LWEQ:        1024,
	LWEKeyDist:  lwe.Binary,
	RLWEKeyDist: lwe.Binary,
	EP:          GadgetLiteral{LogBase: 7, Digits: 7},
	HT:          GadgetLiteral{LogBase: 17, Digits: 2},
	SS:          GadgetLiteral{LogBase: 28, Digits: 1},
	CC:          GadgetLiteral{LogBase: 2, Digits: 8},
}

func testString(params Parameters, v blindrot.Variant, opname string) string {
	pl := params.ParametersLiteral()
	return fmt.Sprintf("%s/%s/LogN=%d/n=%d/EP=%v/HT=%v/SS=%v/CC=%v",
		opname,
		v,
		pl.LogN,
		pl.LWEN,
		pl.EP,
		pl.HT,
		pl.SS,
		pl.CC)
}

type testContext struct {
	params Parameters
	ctx    *Context
	skLWE  *lwe.SecretKey
	skRLWE *rlwe.SecretKey
	prng   sampling.PRNG
}

func newTestContext(t testing.TB, params Parameters, v blindrot.Variant) *testContext {

	ctx, err := NewContext(params, v)
	require.NoError(t, err)

	skLWE, err := ctx.KeyGen()
	require.NoError(t, err)

	skRLWE, err := ctx.RLWEKeyGen()
	require.NoError(t, err)

	require.NoError(t, ctx.CirBTKeyGen(skLWE, skRLWE))

	prng, err := sampling.NewPRNG()
	require.NoError(t, err)

	return &testContext{
		params: params,
		ctx:    ctx,
		skLWE:  skLWE,
		skRLWE: skRLWE,
		prng:   prng,
	}
}

func testParametersLiterals(t *testing.T) (literals []ParametersLiteral) {

	if *flagParamString != "" {
		var pl ParametersLiteral
		require.NoError(t, json.Unmarshal([]byte(*flagParamString), &pl))
		return []ParametersLiteral{pl}
	}

	literals = []ParametersLiteral{TestParametersLiteral}

	if !testing.Short() {
		for _, set := range []ParameterSet{STD128_CMUX_1, STD128_CMUX_4} {
			pl, err := set.Literal()
			require.NoError(t, err)
			literals = append(literals, pl)
		}
	}

	return
}

// requireRGSW checks that ct encrypts m by evaluating its external product with
// a fresh encryption of a random binary polynomial.
func (tc *testContext) requireRGSW(t *testing.T, ct *gadget.Ciphertext, m uint64) {

	params := tc.params

	in := make([]uint64, params.N())
	for i := range in {
		in[i] = ring.RandUniform(tc.prng, 2, 1)
	}

	ctRLWE, err := ske.NewEncryptor(params.RLWE(), tc.skRLWE).EncryptNew(in, 2)
	require.NoError(t, err)

	gadget.NewEvaluator(params.RLWE().RingQ()).ExternalProduct(params.GadgetCC(), ctRLWE, ct, ctRLWE)

	have, err := ske.NewDecryptor(params.RLWE(), tc.skRLWE).Decrypt(ctRLWE, 2)
	require.NoError(t, err)

	want := make([]uint64, params.N())
	for i := range want {
		want[i] = in[i] * m
	}

	require.Equal(t, want, have)
}

func TestCircuitBootstrapping(t *testing.T) {

	for _, pl := range testParametersLiterals(t) {

		params, err := NewParametersFromLiteral(pl)
		require.NoError(t, err)

		for _, v := range []blindrot.Variant{blindrot.CGGI, blindrot.LMKCDEY} {

			tc := newTestContext(t, params, v)

			for _, testSet := range []func(tc *testContext, v blindrot.Variant, t *testing.T){
				testCircuitBootstrap,
				testBootstrapManyLUT,
				testMeasureNoise,
				testEvaluationKeySet,
				testContextKeys,
			} {
				testSet(tc, v, t)
				runtime.GC()
			}
		}
	}
}

func testCircuitBootstrap(tc *testContext, v blindrot.Variant, t *testing.T) {

	params := tc.params
	ctx := tc.ctx

	t.Run(testString(params, v, "CircuitBootstrap/ExternalProduct"), func(t *testing.T) {

		trials := 100
		if testing.Short() {
			trials = 4
		}

		for i := 0; i < trials; i++ {

			m := uint64(i & 1)

			ct, err := ctx.Encrypt(tc.skLWE, m, 2)
			require.NoError(t, err)

			res, err := ctx.CircuitBootstrapping(ct)
			require.NoError(t, err)
			require.Equal(t, 2*params.NumLUT(), res.Rows())

			tc.requireRGSW(t, res, m)
		}
	})

	t.Run(testString(params, v, "CircuitBootstrap/LastRow"), func(t *testing.T) {

		ct, err := ctx.Encrypt(tc.skLWE, 1, 2)
		require.NoError(t, err)

		res, err := ctx.CircuitBootstrapping(ct)
		require.NoError(t, err)

		r := params.RLWE().RingQ()
		Q := params.Q()
		numLUT := params.NumLUT()
		gLast := params.GadgetCC().Powers[numLUT-1]

		row := rlwe.NewCiphertext(params.RLWE(), 1, 0)
		r.IMForm(res.Value[2*numLUT-1][0], row.Value[0])
		r.IMForm(res.Value[2*numLUT-1][1], row.Value[1])
		row.IsNTT = true

		phase := ske.NewDecryptor(params.RLWE(), tc.skRLWE).Phase(row)

		for j, c := range phase {

			var want uint64
			if j == 0 {
				want = gLast
			}

			d := (c + Q - want) % Q
			if d > Q>>1 {
				d = Q - d
			}

			require.Less(t, d, gLast>>1, "coefficient %d", j)
		}
	})

	t.Run(testString(params, v, "CircuitBootstrap/ShallowCopy"), func(t *testing.T) {

		eval := ctx.Evaluator().ShallowCopy()
		require.Equal(t, v, eval.Variant())

		ct, err := ctx.Encrypt(tc.skLWE, 1, 2)
		require.NoError(t, err)

		res, err := eval.CircuitBootstrap(ctx.Keys(), ct)
		require.NoError(t, err)

		tc.requireRGSW(t, res, 1)
	})

	t.Run(testString(params, v, "CircuitBootstrap/Errors"), func(t *testing.T) {

		eval := ctx.Evaluator()

		ct := lwe.NewCiphertext(params.LWE())

		_, err := eval.CircuitBootstrap(nil, ct)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		missing := *ctx.Keys()
		missing.SchemeSwitchKey = nil
		_, err = eval.CircuitBootstrap(&missing, ct)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		wrong, err := lwe.NewParametersFromLiteral(lwe.ParametersLiteral{N: params.LWE().N() + 1, Q: params.LWE().Q()})
		require.NoError(t, err)

		_, err = eval.CircuitBootstrap(ctx.Keys(), lwe.NewCiphertext(wrong))
		require.True(t, errors.Is(err, errs.ErrConfiguration))
	})
}

func testBootstrapManyLUT(tc *testContext, v blindrot.Variant, t *testing.T) {

	params := tc.params
	ctx := tc.ctx

	t.Run(testString(params, v, "BootstrapManyLUT"), func(t *testing.T) {

		Q := params.Q()
		bitwidth := params.Bitwidth()
		g := params.GadgetCC()

		dec := ske.NewDecryptor(params.RLWE(), tc.skRLWE)

		for _, m := range []uint64{0, 1} {

			ct, err := ctx.Encrypt(tc.skLWE, m, 2)
			require.NoError(t, err)

			acc, err := ctx.Evaluator().BootstrapManyLUT(ctx.Keys().AccKey, ct, params.LUT(), bitwidth)
			require.NoError(t, err)

			phase := dec.Phase(acc)

			// The low-order coefficients are -Powers[j]/2 for m = 0 and Powers[j]/2 for m = 1.
			for j := 0; j < params.NumLUT(); j++ {

				want := g.Powers[j] >> 1
				if m == 0 {
					want = Q - want
				}

				d := (phase[j] + Q - want) % Q
				if d > Q>>1 {
					d = Q - d
				}

				require.Less(t, d, g.Powers[0]>>2, "m=%d coefficient %d", m, j)
			}
		}

		_, err := ctx.Evaluator().BootstrapManyLUT(nil, lwe.NewCiphertext(params.LWE()), params.LUT(), bitwidth)
		require.True(t, errors.Is(err, errs.ErrConfiguration))
	})
}

func testMeasureNoise(tc *testContext, v blindrot.Variant, t *testing.T) {

	params := tc.params
	ctx := tc.ctx

	t.Run(testString(params, v, "MeasureNoise"), func(t *testing.T) {

		ct, err := ctx.Encrypt(tc.skLWE, 1, 2)
		require.NoError(t, err)

		res, err := ctx.CircuitBootstrapping(ct)
		require.NoError(t, err)

		rows, total, err := MeasureNoise(params, tc.skRLWE, res, 1)
		require.NoError(t, err)
		require.Len(t, rows, res.Rows())

		logQ := float64(params.ParametersLiteral().LogQ)

		for i := range rows {
			require.Less(t, rows[i].Max, logQ-4, "row %d", i)
			require.LessOrEqual(t, rows[i].Std, rows[i].Max)
		}

		require.Less(t, total.Max, logQ-4)

		if *flagPrintNoise {
			e := params.Estimate(v)
			t.Logf("measured: %s, estimated: log2(std)=%.2f", total, e.SchemeSwitch/2)
		}

		_, _, err = MeasureNoise(params, tc.skRLWE, nil, 1)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		_, _, err = MeasureNoise(params, nil, res, 1)
		require.True(t, errors.Is(err, errs.ErrConfiguration))
	})
}

func testEvaluationKeySet(tc *testContext, v blindrot.Variant, t *testing.T) {

	params := tc.params
	keys := tc.ctx.Keys()

	t.Run(testString(params, v, "EvaluationKeySet/Check"), func(t *testing.T) {

		require.NoError(t, keys.Check(params, v))
		require.Equal(t, v, keys.Variant())

		var nilKeys *EvaluationKeySet
		require.True(t, errors.Is(nilKeys.Check(params, v), errs.ErrConfiguration))

		missing := *keys
		missing.TraceKey = nil
		require.True(t, errors.Is(missing.Check(params, v), errs.ErrConfiguration))

		other := *keys
		other.ParametersDigest[0] ^= 1
		require.True(t, errors.Is(other.Check(params, v), errs.ErrConfiguration))
		require.False(t, keys.Equal(&other))

		require.True(t, errors.Is(keys.Check(params, 1-v), errs.ErrConfiguration))
	})

	t.Run(testString(params, v, "EvaluationKeySet/WriteAndRead"), func(t *testing.T) {
		buffer.RequireSerializerCorrect(t, keys)
	})

	t.Run(testString(params, v, "EvaluationKeySet/Malformed"), func(t *testing.T) {

		ct, err := tc.ctx.Encrypt(tc.skLWE, 1, 2)
		require.NoError(t, err)

		eval, err := NewEvaluator(params, v)
		require.NoError(t, err)

		// Each case corrupts a deserialized copy of the keys.
		for name, corrupt := range map[string]func(evk *EvaluationKeySet){
			"AccKey/TruncatedRows": func(evk *EvaluationKeySet) {
				switch k := evk.AccKey.(type) {
				case *blindrot.CGGIKey:
					k.Value[0].Value = k.Value[0].Value[:1]
				case *blindrot.LMKCDEYKey:
					k.BlindRotationKeys[0].Value = k.BlindRotationKeys[0].Value[:1]
				}
			},
			"AccKey/MissingPosition": func(evk *EvaluationKeySet) {
				switch k := evk.AccKey.(type) {
				case *blindrot.CGGIKey:
					k.Value = k.Value[1:]
				case *blindrot.LMKCDEYKey:
					k.BlindRotationKeys = k.BlindRotationKeys[1:]
				}
			},
			"TraceKey/MissingKey": func(evk *EvaluationKeySet) {
				evk.TraceKey.Value = evk.TraceKey.Value[1:]
			},
			"TraceKey/TruncatedRows": func(evk *EvaluationKeySet) {
				evk.TraceKey.Value[0].Value = evk.TraceKey.Value[0].Value[:1]
			},
			"SchemeSwitchKey/ExtraRow": func(evk *EvaluationKeySet) {
				evk.SchemeSwitchKey.Value.Value = append(evk.SchemeSwitchKey.Value.Value, evk.SchemeSwitchKey.Value.Value[0])
			},
		} {

			data, err := keys.MarshalBinary()
			require.NoError(t, err)

			evk := &EvaluationKeySet{}
			require.NoError(t, evk.UnmarshalBinary(data))
			require.NoError(t, evk.Check(params, v))

			corrupt(evk)

			require.True(t, errors.Is(evk.Check(params, v), errs.ErrConfiguration), name)

			_, err = eval.CircuitBootstrap(evk, ct)
			require.True(t, errors.Is(err, errs.ErrConfiguration), name)
		}
	})

	t.Run(testString(params, v, "EvaluationKeySet/Incomplete"), func(t *testing.T) {

		for _, evk := range []EvaluationKeySet{
			{},
			{AccKey: keys.AccKey},
			{AccKey: keys.AccKey, TraceKey: keys.TraceKey},
		} {
			require.Zero(t, evk.BinarySize())

			_, err := evk.MarshalBinary()
			require.True(t, errors.Is(err, errs.ErrConfiguration))

			_, err = evk.WriteTo(buffer.NewBufferSize(0))
			require.True(t, errors.Is(err, errs.ErrConfiguration))
		}
	})

	t.Run(testString(params, v, "EvaluationKeySet/KeyGenWithSeed"), func(t *testing.T) {

		kgen, err := NewKeyGenerator(params, v)
		require.NoError(t, err)

		seed := []byte("circuit-bootstrapping-test-seed!")

		k0, err := kgen.GenEvaluationKeySetWithSeedNew(tc.skLWE, tc.skRLWE, seed)
		require.NoError(t, err)
		require.NoError(t, k0.Check(params, v))

		k1, err := kgen.GenEvaluationKeySetWithSeedNew(tc.skLWE, tc.skRLWE, seed)
		require.NoError(t, err)

		require.True(t, k0.Equal(k1))

		k2, err := kgen.GenEvaluationKeySetWithSeedNew(tc.skLWE, tc.skRLWE, []byte("another seed"))
		require.NoError(t, err)
		require.False(t, k0.Equal(k2))

		_, err = kgen.GenEvaluationKeySetWithSeedNew(nil, tc.skRLWE, seed)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		_, err = kgen.GenEvaluationKeySetWithSeedNew(tc.skLWE, nil, seed)
		require.True(t, errors.Is(err, errs.ErrConfiguration))
	})
}

func testContextKeys(tc *testContext, v blindrot.Variant, t *testing.T) {

	params := tc.params

	t.Run(testString(params, v, "Context/EncryptDecrypt"), func(t *testing.T) {

		ctx := tc.ctx

		for _, p := range []uint64{0, 2, 4, 8} {
			n := p
			if n == 0 {
				n = DefaultPlaintextModulus
			}
			for m := uint64(0); m < n; m++ {
				ct, err := ctx.Encrypt(tc.skLWE, m, p)
				require.NoError(t, err)
				have, err := ctx.Decrypt(tc.skLWE, ct, p)
				require.NoError(t, err)
				require.Equal(t, m, have)
			}
		}

		_, err := ctx.Encrypt(tc.skLWE, 1, 3)
		require.True(t, errors.Is(err, errs.ErrUnsupportedOperation))
	})

	t.Run(testString(params, v, "Context/Keys"), func(t *testing.T) {

		ctx, err := NewContext(params, v)
		require.NoError(t, err)
		require.Equal(t, v, ctx.Variant())
		require.True(t, ctx.Params().Equal(&params))
		require.Nil(t, ctx.Keys())

		ct, err := ctx.Encrypt(tc.skLWE, 1, 2)
		require.NoError(t, err)

		_, err = ctx.CircuitBootstrapping(ct)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		require.NoError(t, ctx.SetKeys(tc.ctx.Keys()))

		res, err := ctx.CircuitBootstrapping(ct)
		require.NoError(t, err)
		tc.requireRGSW(t, res, 1)

		// A failed key generation leaves the keys of the Context untouched.
		require.Error(t, ctx.CirBTKeyGen(nil, tc.skRLWE))
		require.True(t, ctx.Keys() == tc.ctx.Keys())

		ctx.ClearKeys()
		require.Nil(t, ctx.Keys())

		_, err = ctx.CircuitBootstrapping(ct)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		require.True(t, errors.Is(ctx.SetKeys(nil), errs.ErrConfiguration))

		// Keys of another accumulator.
		other, err := NewContext(params, 1-v)
		require.NoError(t, err)
		require.True(t, errors.Is(other.SetKeys(tc.ctx.Keys()), errs.ErrConfiguration))

		// Keys of other parameters.
		pl := params.ParametersLiteral()
		pl.CC = GadgetLiteral{LogBase: pl.CC.LogBase, Digits: pl.CC.Digits - 1}
		paramsOther, err := NewParametersFromLiteral(pl)
		require.NoError(t, err)

		other, err = NewContext(paramsOther, v)
		require.NoError(t, err)
		require.True(t, errors.Is(other.SetKeys(tc.ctx.Keys()), errs.ErrConfiguration))
	})
}

func TestParameterSets(t *testing.T) {

	sets := []ParameterSet{STD128_CMUX_1}
	variants := []blindrot.Variant{blindrot.CGGI}

	if !testing.Short() {
		sets = append(sets, STD128_CMUX_2, STD128_CMUX_3, STD128_CMUX_4)
		variants = append(variants, blindrot.LMKCDEY)
	}

	for _, set := range sets {

		pl, err := set.Literal()
		require.NoError(t, err)

		params, err := NewParametersFromLiteral(pl)
		require.NoError(t, err)

		for _, v := range variants {

			tc := newTestContext(t, params, v)

			t.Run(fmt.Sprintf("%s/%s/CircuitBootstrap", set, v), func(t *testing.T) {
				for _, m := range []uint64{0, 1} {
					ct, err := tc.ctx.Encrypt(tc.skLWE, m, 2)
					require.NoError(t, err)

					res, err := tc.ctx.CircuitBootstrapping(ct)
					require.NoError(t, err)

					tc.requireRGSW(t, res, m)
				}
			})

			runtime.GC()
		}
	}
}

func TestParameters(t *testing.T) {

	t.Run("ParameterSets", func(t *testing.T) {

		for _, set := range []ParameterSet{STD128_CMUX_1, STD128_CMUX_2, STD128_CMUX_3, STD128_CMUX_4} {

			pl, err := set.Literal()
			require.NoError(t, err)

			params, err := NewParametersFromLiteral(pl)
			require.NoError(t, err, set.String())

			require.Equal(t, 2048, params.N())
			require.Equal(t, 54, bits.Len64(params.Q()))
			require.Equal(t, uint64(1), params.Q()%4096)
			require.True(t, ring.IsPrime(params.Q()))
			require.Equal(t, 571, params.LWE().N())
			require.Equal(t, uint64(1024), params.LWE().Q())
			require.Equal(t, pl.CC.Digits, params.NumLUT())

			// The largest 54-bit prime congruent to 1 mod 4096.
			for c := params.Q() + 4096; c < 1<<54; c += 4096 {
				require.False(t, ring.IsPrime(c))
			}

			e := params.Estimate(blindrot.CGGI)
			require.Greater(t, e.MaxDepth, 0.0, set.String())
			require.Less(t, e.ModSwitchLog2Failure, -20.0, set.String())
		}

		_, err := ParameterSet(0).Literal()
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		_, err = GenerateContext(ParameterSet(5), blindrot.CGGI)
		require.True(t, errors.Is(err, errs.ErrConfiguration))

		require.Equal(t, "STD128_CMUX_3", STD128_CMUX_3.String())
	})

	params, err := NewParametersFromLiteral(TestParametersLiteral)
	require.NoError(t, err)

	t.Run("Errors", func(t *testing.T) {

		for _, f := range []func(pl *ParametersLiteral){
			func(pl *ParametersLiteral) { pl.LogN = 1 },
			func(pl *ParametersLiteral) { pl.LogN = 17 },
			func(pl *ParametersLiteral) { pl.LogQ = 62 },
			func(pl *ParametersLiteral) { pl.Q = 1 << 40 },
			func(pl *ParametersLiteral) { pl.LWEN = 0 },
			func(pl *ParametersLiteral) { pl.LWEQ = 1 },
			func(pl *ParametersLiteral) { pl.Sigma = -1 },
			func(pl *ParametersLiteral) { pl.LWEKeyDist = lwe.KeyDistribution(7) },
			func(pl *ParametersLiteral) { pl.RLWEKeyDist = lwe.KeyDistribution(7) },
			func(pl *ParametersLiteral) { pl.EP = GadgetLiteral{LogBase: 0, Digits: 7} },
			func(pl *ParametersLiteral) { pl.HT = GadgetLiteral{LogBase: 17, Digits: 0} },
			func(pl *ParametersLiteral) { pl.SS = GadgetLiteral{LogBase: 55, Digits: 1} },
			func(pl *ParametersLiteral) { pl.CC = GadgetLiteral{LogBase: 7, Digits: 8} },
		} {
			pl := TestParametersLiteral
			f(&pl)
			_, err := NewParametersFromLiteral(pl)
			require.True(t, errors.Is(err, errs.ErrConfiguration), fmt.Sprintf("%+v: %v", pl, err))
		}
	})

	t.Run("LUT", func(t *testing.T) {

		r := params.RLWE().RingQ()
		N := params.N()
		Q := params.Q()
		g := params.GadgetCC()
		bitwidth := params.Bitwidth()

		require.Equal(t, 3, bitwidth)

		lut := r.NewPoly()
		r.INTT(params.LUT(), lut)

		for i := 0; i < N>>(bitwidth+1); i++ {
			for j := 0; j < 1<<bitwidth; j++ {

				var lo, hi uint64
				if j < g.Digits {
					lo, hi = (Q-g.Powers[j]>>1)%Q, g.Powers[j]>>1
				}

				require.Equal(t, lo, lut.Coeffs[0][(i<<bitwidth)+j])
				require.Equal(t, hi, lut.Coeffs[0][N>>1+(i<<bitwidth)+j])
			}
		}

		require.Equal(t, uint64(1), mulMod(params.NInv(), uint64(N), Q))
	})

	t.Run("Digest", func(t *testing.T) {

		other, err := NewParametersFromLiteral(TestParametersLiteral)
		require.NoError(t, err)
		require.Equal(t, params.Digest(), other.Digest())
		require.True(t, params.Equal(&other))

		// Precomputed tables are rebuilt identically.
		lut := other.LUT()
		require.True(t, params.LUT().Equal(&lut))

		monomials := params.BlindRotation().Monomials
		require.Len(t, other.BlindRotation().Monomials, len(monomials))
		for i := range monomials {
			require.True(t, monomials[i].Equal(&other.BlindRotation().Monomials[i]), "X^%d", i)
		}

		pl := TestParametersLiteral
		pl.HT = GadgetLiteral{LogBase: 13, Digits: 3}
		other, err = NewParametersFromLiteral(pl)
		require.NoError(t, err)
		require.NotEqual(t, params.Digest(), other.Digest())
		require.False(t, params.Equal(&other))
	})

	t.Run("JSON", func(t *testing.T) {

		data, err := json.Marshal(params)
		require.NoError(t, err)

		var other Parameters
		require.NoError(t, json.Unmarshal(data, &other))

		require.True(t, params.Equal(&other))
		require.Equal(t, params.Digest(), other.Digest())
		require.True(t, cmp.Equal(params.ParametersLiteral(), other.ParametersLiteral()))

		// Q is resolved.
		require.NotZero(t, other.ParametersLiteral().Q)
	})
}

func TestSpecialModSwitch(t *testing.T) {

	require.Equal(t, uint64(0), SpecialModSwitch(0, 1024, 2048, 3))
	require.Equal(t, uint64(1024), SpecialModSwitch(512, 1024, 2048, 3))
	require.Equal(t, uint64(0), SpecialModSwitch(1023, 1024, 2048, 3))
	require.Equal(t, uint64(16), SpecialModSwitch(3, 1024, 4096, 3))
	require.Equal(t, uint64(4), SpecialModSwitch(1, 1024, 4096, 1))

	prng, err := sampling.NewKeyedPRNG([]byte{'m', 's'})
	require.NoError(t, err)

	for _, q := range []uint64{1024, 1 << 14, 12289} {
		for _, bitwidth := range []int{0, 1, 3} {

			t.Run(fmt.Sprintf("q=%d/bitwidth=%d", q, bitwidth), func(t *testing.T) {

				const twoN = 4096
				step := uint64(1) << bitwidth

				for i := 0; i < 256; i++ {

					v := ring.RandUniform(prng, q, (1<<bits.Len64(q))-1)

					have := SpecialModSwitch(v, q, twoN, bitwidth)
					require.Zero(t, have%step)
					require.Less(t, have, uint64(twoN))

					// |have - v*2N/q| <= 2^(bitwidth-1), circularly.
					d := float64(have) - float64(v)*twoN/float64(q)
					if d > twoN/2 {
						d -= twoN
					} else if d < -twoN/2 {
						d += twoN
					}

					require.LessOrEqual(t, d, float64(step)/2)
					require.GreaterOrEqual(t, d, -float64(step)/2)
				}
			})
		}
	}
}

func TestUtils(t *testing.T) {

	const q = 0x3fffffffffc001

	require.Equal(t, uint64(0), signedMod(0, q))
	require.Equal(t, uint64(q-1), signedMod(-1, q))
	require.Equal(t, uint64(0), signedMod(-q, q))
	require.Equal(t, uint64(5), signedMod(5, q))

	require.Equal(t, uint64(1), mulMod(q-1, q-1, q))
	require.Equal(t, uint64(0), mulMod(q, 7, q))
}
