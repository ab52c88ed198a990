package crypto

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisign/certsign/curve"
)

const scenarioPayload = `{"holderName":"A","eventName":"B","issueDate":"2026-01-01","signerName":"C","signerPosition":"D","timestamp":"2026-01-01T00:00:00.000Z"}`

// sequenceSource replays fixed draws and counts how many were taken.
type sequenceSource struct {
	values []int64
	calls  int
}

func (s *sequenceSource) Int(max *big.Int) (*big.Int, error) {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return big.NewInt(v), nil
}

// nonce returns a source whose next draw yields k.
func nonce(k ...int64) *sequenceSource {
	draws := make([]int64, len(k))
	for i, v := range k {
		draws[i] = v - 1
	}
	return &sequenceSource{values: draws}
}

type failingSource struct{}

func (failingSource) Int(*big.Int) (*big.Int, error) {
	return nil, errors.New("entropy exhausted")
}

// Fixed test key d = 7, Q = (24, 22)
func getTestKey(t *testing.T) *PrivateKey {
	t.Helper()
	priv, err := NewPrivateKey(curve.Certificate(), big.NewInt(7))
	require.NoError(t, err)
	return priv
}

func TestGenerateKey(t *testing.T) {
	c := curve.Certificate()

	t.Run("deterministic source", func(t *testing.T) {
		priv, err := GenerateKey(c, nonce(7))
		require.NoError(t, err)
		assert.Equal(t, int64(7), priv.D.Int64())
		assert.True(t, priv.Point.Equal(curve.NewPoint(24, 22)))
	})

	t.Run("random keys are valid", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			priv, err := GenerateKey(c, DefaultRandom)
			require.NoError(t, err)
			assert.True(t, priv.D.Sign() > 0 && priv.D.Cmp(c.N()) < 0)
			assert.True(t, c.IsOnCurve(priv.Point))
			assert.True(t, c.ScalarBaseMult(priv.D).Equal(priv.Point))
		}
	})

	t.Run("source error", func(t *testing.T) {
		_, err := GenerateKey(c, failingSource{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entropy exhausted")
	})

	t.Run("source out of range", func(t *testing.T) {
		_, err := GenerateKey(c, &sequenceSource{values: []int64{36}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside")
	})
}

func TestNewPrivateKey(t *testing.T) {
	c := curve.Certificate()
	for _, d := range []int64{0, -1, 37, 100} {
		_, err := NewPrivateKey(c, big.NewInt(d))
		assert.ErrorIs(t, err, ErrMalformedKey, "d = %d", d)
	}
	_, err := NewPrivateKey(c, nil)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestHashToScalar(t *testing.T) {
	n := curve.Certificate().N()
	tampered := strings.Replace(scenarioPayload, `{"holderName"`, `{"HolderName"`, 1)
	renamed := strings.Replace(scenarioPayload, `"A"`, `"X"`, 1)

	tests := []struct {
		name string
		msg  string
		want map[Algorithm]int64
	}{
		{"canonical payload", scenarioPayload, map[Algorithm]int64{
			ECDSANoHash: 36, ECDSASHA128: 24, ECDSABlake2b: 11, ECDSASHA128Blake2b: 6,
		}},
		{"renamed holder", renamed, map[Algorithm]int64{
			ECDSANoHash: 36, ECDSASHA128: 20, ECDSABlake2b: 0, ECDSASHA128Blake2b: 6,
		}},
		{"changed first key", tampered, map[Algorithm]int64{
			ECDSANoHash: 5, ECDSASHA128: 23, ECDSABlake2b: 10, ECDSASHA128Blake2b: 14,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for alg, want := range tt.want {
				e, err := HashToScalar(alg, []byte(tt.msg), n)
				require.NoError(t, err)
				assert.Equal(t, want, e.Int64(), alg.String())
			}
		})
	}

	t.Run("no hash edge cases", func(t *testing.T) {
		e, err := HashToScalar(ECDSANoHash, nil, n)
		require.NoError(t, err)
		assert.Equal(t, int64(1), e.Int64(), "empty message maps to 1")

		e, err = HashToScalar(ECDSANoHash, []byte("%"), n)
		require.NoError(t, err)
		assert.Equal(t, int64(1), e.Int64(), "37 mod 37 maps to 1")

		e, err = HashToScalar(ECDSANoHash, []byte("A"), n)
		require.NoError(t, err)
		assert.Equal(t, int64(28), e.Int64())

		a, _ := HashToScalar(ECDSANoHash, []byte("12345678"), n)
		b, _ := HashToScalar(ECDSANoHash, []byte("12345678 and anything after"), n)
		assert.Equal(t, a, b, "only the first eight bytes count")
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := HashToScalar(Algorithm(0), []byte("x"), n)
		assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	})
}

func TestSignKnownNonce(t *testing.T) {
	priv := getTestKey(t)
	msg := []byte(scenarioPayload)

	tests := []struct {
		alg  Algorithm
		k    int64
		r, s int64
	}{
		{ECDSANoHash, 3, 20, 34},
		{ECDSANoHash, 11, 10, 13},
		{ECDSASHA128, 3, 20, 30},
		{ECDSASHA128, 5, 6, 28},
		{ECDSASHA128, 11, 10, 22},
		{ECDSABlake2b, 3, 20, 1},
		{ECDSABlake2b, 11, 10, 4},
		{ECDSASHA128Blake2b, 5, 6, 17},
		{ECDSASHA128Blake2b, 11, 10, 17},
	}

	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			res, err := Sign(nonce(tt.k), priv, msg, tt.alg)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Attempts)
			assert.Equal(t, tt.r, res.Signature.R.Int64(), "r for k=%d", tt.k)
			assert.Equal(t, tt.s, res.Signature.S.Int64(), "s for k=%d", tt.k)
			assert.True(t, Verify(&priv.PublicKey, msg, res.Signature, tt.alg))
		})
	}
}

func TestSignRetries(t *testing.T) {
	priv := getTestKey(t)
	msg := []byte(scenarioPayload)

	t.Run("r = 0 draws again", func(t *testing.T) {
		// 16·G = (0, 22)
		src := nonce(16, 11)
		res, err := Sign(src, priv, msg, ECDSASHA128)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, 2, src.calls)
		assert.Equal(t, "{\"r\":\"10\",\"s\":\"22\"}", res.Signature.String())
	})

	t.Run("exhausted after bounded attempts", func(t *testing.T) {
		// k = 1 gives r = 1, and d = n - e forces s = 0 on every attempt.
		exhausting, err := NewPrivateKey(curve.Certificate(), big.NewInt(37-24))
		require.NoError(t, err)

		src := nonce(1)
		_, err = Sign(src, exhausting, msg, ECDSASHA128)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSigningExhausted)
		assert.Equal(t, MaxSignAttempts, src.calls)
	})

	t.Run("source error", func(t *testing.T) {
		_, err := Sign(failingSource{}, priv, msg, ECDSASHA128)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to draw nonce")
	})
}

func TestSignInvalidInput(t *testing.T) {
	priv := getTestKey(t)

	_, err := Sign(DefaultRandom, nil, []byte("x"), ECDSASHA128)
	assert.ErrorIs(t, err, ErrMalformedKey)

	bad := *priv
	bad.D = big.NewInt(40)
	_, err = Sign(DefaultRandom, &bad, []byte("x"), ECDSASHA128)
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, err = Sign(DefaultRandom, priv, []byte("x"), Algorithm(9))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestVerify(t *testing.T) {
	priv := getTestKey(t)
	pub := &priv.PublicKey
	msg := []byte(scenarioPayload)
	tampered := map[string][]byte{
		"first key":       []byte(strings.Replace(scenarioPayload, `{"holderName"`, `{"HolderName"`, 1)),
		"timestamp":       []byte(strings.Replace(scenarioPayload, "2026-01-01T", "2026-01-02T", 1)),
		"signer position": []byte(strings.Replace(scenarioPayload, `"D"`, `"E"`, 1)),
	}

	signatures := map[Algorithm]*Signature{}
	for _, alg := range Algorithms() {
		res, err := Sign(nonce(11), priv, msg, alg)
		require.NoError(t, err)
		signatures[alg] = res.Signature
	}

	t.Run("valid", func(t *testing.T) {
		for alg, sig := range signatures {
			assert.True(t, Verify(pub, msg, sig, alg), alg.String())
			assert.NoError(t, CheckSignature(pub, msg, sig, alg))
		}
	})

	t.Run("signature bound to its algorithm", func(t *testing.T) {
		for alg, sig := range signatures {
			for _, other := range Algorithms() {
				if other == alg {
					continue
				}
				assert.False(t, Verify(pub, msg, sig, other), "%s signature under %s", alg, other)
			}
		}
	})

	t.Run("changed first key fails everywhere", func(t *testing.T) {
		for alg, sig := range signatures {
			err := CheckSignature(pub, tampered["first key"], sig, alg)
			assert.ErrorIs(t, err, ErrInvalidSignature, alg.String())
		}
	})

	t.Run("hashed variants detect later changes", func(t *testing.T) {
		for _, alg := range []Algorithm{ECDSASHA128, ECDSABlake2b, ECDSASHA128Blake2b} {
			for name, m := range tampered {
				assert.False(t, Verify(pub, m, signatures[alg], alg), "%s with changed %s", alg, name)
			}
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewPrivateKey(curve.Certificate(), big.NewInt(9))
		require.NoError(t, err)
		for alg, sig := range signatures {
			assert.False(t, Verify(&other.PublicKey, msg, sig, alg), alg.String())
		}
	})

	t.Run("malformed input returns false", func(t *testing.T) {
		sig := signatures[ECDSASHA128]
		c := curve.Certificate()

		cases := []struct {
			name string
			pub  *PublicKey
			sig  *Signature
			want error
		}{
			{"nil key", nil, sig, ErrMalformedKey},
			{"nil signature", pub, nil, ErrMalformedSignature},
			{"r = 0", pub, &Signature{R: big.NewInt(0), S: sig.S}, ErrMalformedSignature},
			{"s = n", pub, &Signature{R: sig.R, S: big.NewInt(37)}, ErrMalformedSignature},
			{"negative r", pub, &Signature{R: big.NewInt(-10), S: sig.S}, ErrMalformedSignature},
			{"key off curve", &PublicKey{Curve: c, Point: curve.NewPoint(24, 23)}, sig, ErrMalformedKey},
			{"key at infinity", &PublicKey{Curve: c, Point: curve.Infinity}, sig, ErrMalformedKey},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.NotPanics(t, func() {
					assert.False(t, Verify(tc.pub, msg, tc.sig, ECDSASHA128))
				})
				assert.ErrorIs(t, CheckSignature(tc.pub, msg, tc.sig, ECDSASHA128), tc.want)
			})
		}

		assert.False(t, Verify(pub, msg, sig, Algorithm(0)))
	})
}

func TestSignAndVerifyIntegration(t *testing.T) {
	c := curve.Certificate()

	for _, alg := range Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			for i := 0; i < 20; i++ {
				priv, err := GenerateKey(c, DefaultRandom)
				require.NoError(t, err)

				msg := []byte(strings.Repeat("payload ", i+1))
				res, err := Sign(DefaultRandom, priv, msg, alg)
				if errors.Is(err, ErrSigningExhausted) {
					continue
				}
				require.NoError(t, err)
				assert.LessOrEqual(t, res.Attempts, MaxSignAttempts)
				assert.True(t, Verify(&priv.PublicKey, msg, res.Signature, alg))
			}
		})
	}
}
