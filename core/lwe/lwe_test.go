package lwe

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/tuneinsight/cirbt/utils/errs"
)

func testString(params Parameters, opname string) string {
	return fmt.Sprintf("%s/n=%d/q=%d/KeyDist=%s", opname, params.N(), params.Q(), params.KeyDist())
}

func TestParameters(t *testing.T) {

	for _, pl := range []ParametersLiteral{
		{N: 0, Q: 1024},
		{N: 571, Q: 1},
		{N: 571, Q: 1 << 33},
		{N: 571, Q: 1024, Sigma: -1},
		{N: 571, Q: 1024, KeyDist: KeyDistribution(7)},
	} {
		_, err := NewParametersFromLiteral(pl)
		require.True(t, errors.Is(err, errs.ErrConfiguration), fmt.Sprintf("%v", pl))
	}

	params, err := NewParametersFromLiteral(ParametersLiteral{N: 571, Q: 1024})
	require.NoError(t, err)
	require.Equal(t, DefaultSigma, params.Sigma())

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var have Parameters
	require.NoError(t, json.Unmarshal(data, &have))
	require.True(t, params.Equal(&have))
}

func TestLWE(t *testing.T) {

	for _, dist := range []KeyDistribution{Binary, Ternary, Gaussian} {

		params, err := NewParametersFromLiteral(ParametersLiteral{N: 571, Q: 1024, KeyDist: dist})
		require.NoError(t, err)

		sk, err := NewKeyGenerator(params).GenSecretKeyNew()
		require.NoError(t, err)

		t.Run(testString(params, "KeyGen"), func(t *testing.T) {

			require.Len(t, sk.Value, params.N())

			bound := int64(math.Floor(DefaultBoundFactor * params.Sigma()))

			var nonZero int
			for _, si := range sk.Value {
				switch dist {
				case Binary:
					require.True(t, si == 0 || si == 1)
				case Ternary:
					require.True(t, si >= -1 && si <= 1)
				case Gaussian:
					require.LessOrEqual(t, si, bound)
					require.GreaterOrEqual(t, si, -bound)
				}
				if si != 0 {
					nonZero++
				}
			}

			require.Greater(t, nonZero, 0)
			require.Equal(t, dist == Binary, sk.IsBinary())
		})

		enc := NewEncryptor(params, sk)
		dec := NewDecryptor(params, sk)

		for _, p := range []uint64{2, 4, 8} {

			t.Run(testString(params, fmt.Sprintf("EncryptDecrypt/p=%d", p)), func(t *testing.T) {
				for m := uint64(0); m < 2*p; m++ {
					ct, err := enc.EncryptNew(m, p)
					require.NoError(t, err)

					have, err := dec.Decrypt(ct, p)
					require.NoError(t, err)
					require.Equal(t, m%p, have)
				}
			})
		}

		t.Run(testString(params, "Add"), func(t *testing.T) {
			ct0, err := enc.EncryptNew(1, 4)
			require.NoError(t, err)
			ct1, err := enc.EncryptNew(3, 4)
			require.NoError(t, err)

			sum := NewCiphertext(params)
			params.Add(ct0, ct1, sum)
			have, err := dec.Decrypt(sum, 4)
			require.NoError(t, err)
			require.Equal(t, uint64(0), have)

			params.Sub(ct0, ct1, sum)
			have, err = dec.Decrypt(sum, 4)
			require.NoError(t, err)
			require.Equal(t, uint64(2), have)
		})

		t.Run(testString(params, "Errors"), func(t *testing.T) {

			_, err := enc.EncryptNew(1, 3)
			require.True(t, errors.Is(err, errs.ErrUnsupportedOperation))

			ct, err := enc.EncryptNew(1, 2)
			require.NoError(t, err)

			_, err = dec.Decrypt(ct, 6)
			require.True(t, errors.Is(err, errs.ErrUnsupportedOperation))

			_, err = dec.Decrypt(ct, 1)
			require.True(t, errors.Is(err, errs.ErrConfiguration))
		})
	}
}

func TestKeyGeneratorWithPRNG(t *testing.T) {

	params, err := NewParametersFromLiteral(ParametersLiteral{N: 571, Q: 1024, KeyDist: Ternary})
	require.NoError(t, err)

	gen := func() *SecretKey {
		prng, err := sampling.NewKeyedPRNG([]byte{0x42})
		require.NoError(t, err)
		sk, err := NewKeyGenerator(params).WithPRNG(prng).GenSecretKeyNew()
		require.NoError(t, err)
		return sk
	}

	sk0, sk1 := gen(), gen()
	require.True(t, sk0.Equal(sk1))
	require.True(t, sk0.Equal(sk0.CopyNew()))

	ct := NewCiphertext(params)
	require.True(t, ct.Equal(ct.CopyNew()))
	require.Equal(t, params.N(), ct.N())
}
