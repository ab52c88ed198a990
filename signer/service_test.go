package signer

import (
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/qr"
)

const browserURL = "https://digisign.example/verify?data=eyJkIjp7Im8iOiJQdXRyaSBTdWNpIFJlbml0YSIsImUiOiJXb3Jrc2hvcCBLZWFtYW5hbiBTaWJlciAyMDI2IiwicyI6IkFkbWluIERpc2Rpa3BvcmEiLCJwIjoiS2VwYWxhIEJpZGFuZyBJVCIsInQiOiIyMDI2LTAxLTAxIiwidHMiOiIyMDI2LTAxLTAxVDAwOjAwOjAwLjAwMFoifSwiYSI6ImVjZHNhX3NoYTEyOF9ibGFrZTJiIiwic2lnIjoie1wiclwiOlwiMTBcIixcInNcIjpcIjEzXCJ9IiwicGsiOiJ7XCJ4XCI6XCIyNFwiLFwieVwiOlwiMjJcIn0ifQ=="

const scenarioPayload = `{"holderName":"A","eventName":"B","issueDate":"2026-01-01","signerName":"C","signerPosition":"D","timestamp":"2026-01-01T00:00:00.000Z"}`

var testKeyPair = KeyPair{PrivateKey: "7", PublicKey: `{"x":"24","y":"22"}`}

// fixedSource always draws v, so every nonce is v+1.
type fixedSource struct {
	mu    sync.Mutex
	v     int64
	calls int
}

func (f *fixedSource) Int(*big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return big.NewInt(f.v), nil
}

func sampleMetadata() payload.Metadata {
	return payload.Metadata{
		HolderName:     "Putri Suci Renita",
		EventName:      "Workshop Keamanan Siber 2026",
		IssueDate:      "2026-01-01",
		SignerName:     "Admin Disdikpora",
		SignerPosition: "Kepala Bidang IT",
		Timestamp:      "2026-01-01T00:00:00.000Z",
	}
}

func newTestService(t *testing.T, cfg Config) (*Service, *observer.ObservedLogs, *prometheus.Registry) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	return New(cfg, zap.New(core), NewMetrics(reg)), logs, reg
}

func TestNew(t *testing.T) {
	svc := New(Config{}, nil, nil)
	require.NotNil(t, svc)

	cfg := svc.Config()
	assert.Equal(t, crypto.ECDSASHA128, cfg.DefaultAlgorithm)
	assert.Equal(t, DefaultOrigin, cfg.Origin)
	assert.NotNil(t, cfg.Curve)
	assert.NotNil(t, cfg.Random)
	assert.NotNil(t, cfg.Clock)
}

func TestResolveAlgorithm(t *testing.T) {
	t.Run("known identifiers", func(t *testing.T) {
		svc, logs, _ := newTestService(t, Config{})
		for _, alg := range crypto.Algorithms() {
			got, err := svc.ResolveAlgorithm(alg.String())
			require.NoError(t, err)
			assert.Equal(t, alg, got)
		}
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("fallback with warning", func(t *testing.T) {
		svc, logs, _ := newTestService(t, Config{})
		got, err := svc.ResolveAlgorithm("rsa_pss")
		require.NoError(t, err)
		assert.Equal(t, crypto.ECDSASHA128, got)

		entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
		require.Len(t, entries, 1)
		assert.Equal(t, "rsa_pss", entries[0].ContextMap()["requested"])
		assert.Equal(t, "ecdsa_sha128", entries[0].ContextMap()["algorithm"])
	})

	t.Run("configured default", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{DefaultAlgorithm: crypto.ECDSABlake2b})
		got, err := svc.ResolveAlgorithm("")
		require.NoError(t, err)
		assert.Equal(t, crypto.ECDSABlake2b, got)
	})

	t.Run("strict", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{StrictAlgorithms: true})
		_, err := svc.ResolveAlgorithm("rsa_pss")
		assert.ErrorIs(t, err, crypto.ErrUnknownAlgorithm)
	})
}

func TestGenerateKeyPair(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{Random: &fixedSource{v: 6}})
		kp, err := svc.GenerateKeyPair("ecdsa_sha128")
		require.NoError(t, err)
		assert.Equal(t, testKeyPair, kp)
	})

	t.Run("random keys sign and verify", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{})
		for _, alg := range crypto.Algorithms() {
			kp, err := svc.GenerateKeyPair(alg.String())
			require.NoError(t, err)

			sig, err := svc.SignData("hello", kp.PrivateKey, alg.String())
			require.NoError(t, err)
			assert.True(t, svc.VerifySignature("hello", sig, kp.PublicKey, alg.String()))
		}
	})

	t.Run("strict rejects unknown algorithm", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{StrictAlgorithms: true})
		_, err := svc.GenerateKeyPair("nope")
		assert.ErrorIs(t, err, crypto.ErrUnknownAlgorithm)
	})
}

func TestCreateSignableData(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc, _, _ := newTestService(t, Config{Clock: mock})

	got, err := svc.CreateSignableData(payload.Metadata{
		HolderName: "A", EventName: "B", IssueDate: "2026-01-01", SignerName: "C", SignerPosition: "D",
	})
	require.NoError(t, err)
	assert.Equal(t, scenarioPayload, got)
}

func TestSignData(t *testing.T) {
	expected := map[string]string{
		"ecdsa_no_hash":        `{"r":"10","s":"13"}`,
		"ecdsa_sha128":         `{"r":"10","s":"22"}`,
		"ecdsa_blake2b":        `{"r":"10","s":"4"}`,
		"ecdsa_sha128_blake2b": `{"r":"10","s":"17"}`,
	}

	svc, _, reg := newTestService(t, Config{Random: &fixedSource{v: 10}})

	for id, want := range expected {
		t.Run(id, func(t *testing.T) {
			sig, err := svc.SignData(scenarioPayload, "7", id)
			require.NoError(t, err)
			assert.Equal(t, want, sig)
			assert.True(t, svc.VerifySignature(scenarioPayload, sig, testKeyPair.PublicKey, id))

			tampered := strings.Replace(scenarioPayload, `{"holderName"`, `{"HolderName"`, 1)
			assert.False(t, svc.VerifySignature(tampered, sig, testKeyPair.PublicKey, id))
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.signatures.WithLabelValues("ecdsa_sha128")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.verifications.WithLabelValues("ecdsa_blake2b", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.verifications.WithLabelValues("ecdsa_blake2b", "invalid")))
	assert.Equal(t, 4, testutil.CollectAndCount(svc.metrics.signatures))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.NotZero(t, count)

	t.Run("malformed private key", func(t *testing.T) {
		for _, key := range []string{"", "abc", "0", "37"} {
			_, err := svc.SignData(scenarioPayload, key, "ecdsa_sha128")
			assert.ErrorIs(t, err, crypto.ErrMalformedKey, "%q", key)
		}
		assert.Equal(t, 4.0, testutil.ToFloat64(svc.metrics.signFailures.WithLabelValues("ecdsa_sha128", "key")))
	})
}

func TestSignDataExhausted(t *testing.T) {
	// k = 1 and d = n - e leave s = 0 on every attempt
	src := &fixedSource{v: 0}
	svc, logs, _ := newTestService(t, Config{Random: src})

	_, err := svc.SignData(scenarioPayload, "13", "ecdsa_sha128")
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrSigningExhausted)
	assert.Equal(t, crypto.MaxSignAttempts, src.calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.signFailures.WithLabelValues("ecdsa_sha128", "exhausted")))
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, "signing failed", logs.FilterLevelExact(zapcore.ErrorLevel).All()[0].Message)
}

func TestVerifySignatureMalformed(t *testing.T) {
	sig := `{"r":"10","s":"22"}`

	tests := []struct {
		name      string
		signature string
		publicKey string
		algorithm string
	}{
		{"signature not json", "garbage", testKeyPair.PublicKey, "ecdsa_sha128"},
		{"signature missing s", `{"r":"10"}`, testKeyPair.PublicKey, "ecdsa_sha128"},
		{"signature out of range", `{"r":"10","s":"37"}`, testKeyPair.PublicKey, "ecdsa_sha128"},
		{"public key not json", sig, "garbage", "ecdsa_sha128"},
		{"public key off curve", sig, `{"x":"24","y":"23"}`, "ecdsa_sha128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, logs, _ := newTestService(t, Config{})
			assert.False(t, svc.VerifySignature(scenarioPayload, tt.signature, tt.publicKey, tt.algorithm))

			warnings := logs.FilterMessage("rejected malformed verification input").All()
			require.Len(t, warnings, 1)
			assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
			assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.verifications.WithLabelValues("ecdsa_sha128", "malformed")))
		})
	}

	t.Run("numeric json accepted", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{})
		assert.True(t, svc.VerifySignature(scenarioPayload, `{"r":10,"s":22}`, `{"x":24,"y":22}`, "ecdsa_sha128"))
	})

	t.Run("unknown algorithm falls back", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{})
		assert.True(t, svc.VerifySignature(scenarioPayload, sig, testKeyPair.PublicKey, "whatever"))
	})

	t.Run("strict unknown algorithm", func(t *testing.T) {
		svc, logs, _ := newTestService(t, Config{StrictAlgorithms: true})
		assert.False(t, svc.VerifySignature(scenarioPayload, sig, testKeyPair.PublicKey, "whatever"))
		assert.Equal(t, 1, logs.FilterMessage("rejected malformed verification input").Len())
	})
}

func TestGenerateQRValue(t *testing.T) {
	svc, _, _ := newTestService(t, Config{Random: &fixedSource{v: 10}})

	got, err := svc.GenerateQRValue(sampleMetadata(), testKeyPair, "ecdsa_sha128_blake2b", "https://digisign.example")
	require.NoError(t, err)
	assert.Equal(t, browserURL, got)

	t.Run("default origin", func(t *testing.T) {
		svc, _, _ := newTestService(t, Config{Random: &fixedSource{v: 10}, Origin: "https://certs.example.org/"})
		got, err := svc.GenerateQRValue(sampleMetadata(), testKeyPair, "ecdsa_sha128_blake2b", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "https://certs.example.org/verify?data="))
	})

	t.Run("timestamp filled from clock", func(t *testing.T) {
		mock := clock.NewMock()
		mock.Set(time.Date(2026, 2, 3, 4, 5, 6, 7_000_000, time.UTC))
		svc, _, _ := newTestService(t, Config{Clock: mock})

		m := sampleMetadata()
		m.Timestamp = ""
		value, err := svc.GenerateQRValue(m, testKeyPair, "ecdsa_blake2b", "")
		require.NoError(t, err)

		env, err := qr.Parse(value)
		require.NoError(t, err)
		assert.Equal(t, "2026-02-03T04:05:06.007Z", env.Data.Timestamp)

		data, err := svc.CreateSignableData(env.Data.Metadata())
		require.NoError(t, err)
		assert.True(t, svc.VerifySignature(data, env.Signature, env.PublicKey, env.Algorithm))
	})

	t.Run("unknown algorithm recorded as resolved", func(t *testing.T) {
		value, err := svc.GenerateQRValue(sampleMetadata(), testKeyPair, "mystery", "")
		require.NoError(t, err)
		env, err := qr.Parse(value)
		require.NoError(t, err)
		assert.Equal(t, "ecdsa_sha128", env.Algorithm)
	})

	t.Run("mismatched key pair", func(t *testing.T) {
		_, err := svc.GenerateQRValue(sampleMetadata(), KeyPair{PrivateKey: "8", PublicKey: testKeyPair.PublicKey}, "ecdsa_sha128", "")
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("malformed keys", func(t *testing.T) {
		_, err := svc.GenerateQRValue(sampleMetadata(), KeyPair{PrivateKey: "x", PublicKey: testKeyPair.PublicKey}, "ecdsa_sha128", "")
		assert.ErrorIs(t, err, crypto.ErrMalformedKey)

		_, err = svc.GenerateQRValue(sampleMetadata(), KeyPair{PrivateKey: "7", PublicKey: "{}"}, "ecdsa_sha128", "")
		assert.ErrorIs(t, err, crypto.ErrMalformedKey)
	})
}

func TestNilMetrics(t *testing.T) {
	svc := New(Config{Random: &fixedSource{v: 10}}, nil, nil)
	sig, err := svc.SignData(scenarioPayload, "7", "ecdsa_sha128")
	require.NoError(t, err)
	assert.True(t, svc.VerifySignature(scenarioPayload, sig, testKeyPair.PublicKey, "ecdsa_sha128"))
	assert.False(t, svc.VerifySignature(scenarioPayload, "bad", testKeyPair.PublicKey, "ecdsa_sha128"))
}

func TestConcurrentUse(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kp, err := svc.GenerateKeyPair("ecdsa_blake2b")
			if !assert.NoError(t, err) {
				return
			}
			value, err := svc.GenerateQRValue(sampleMetadata(), kp, "ecdsa_blake2b", "")
			if !assert.NoError(t, err) {
				return
			}
			env, err := qr.Parse(value)
			if !assert.NoError(t, err) {
				return
			}
			data, err := svc.CreateSignableData(env.Data.Metadata())
			if assert.NoError(t, err) {
				assert.True(t, svc.VerifySignature(data, env.Signature, env.PublicKey, env.Algorithm))
			}
		}()
	}
	wg.Wait()
}
