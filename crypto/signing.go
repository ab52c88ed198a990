// Package crypto provides ECDSA key generation, signing and verification on
// the certificate curve.
//
// This package provides:
//   - Four message-to-scalar strategies selected by Algorithm
//   - Key generation, signing with a bounded retry loop, and verification
//   - Text, JSON and DER encodings of keys and signatures
//
// # Signing
//
// Sign a canonical payload:
//
//	priv, err := crypto.GenerateKey(curve.Certificate(), crypto.DefaultRandom)
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := crypto.Sign(crypto.DefaultRandom, priv, payload, crypto.ECDSASHA128)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Verification
//
// Verify never fails loudly; malformed input reports false:
//
//	valid := crypto.Verify(&priv.PublicKey, payload, res.Signature, crypto.ECDSASHA128)
//
// Use CheckSignature to learn why a signature was rejected.
package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/digisign/certsign/curve"
)

// MaxSignAttempts bounds the number of nonces drawn by Sign.
const MaxSignAttempts = 100

var (
	// ErrSigningExhausted is returned when every nonce attempt produced r = 0 or s = 0.
	ErrSigningExhausted = errors.New("failed to generate valid signature")
	// ErrInvalidSignature is returned by CheckSignature for a well-formed
	// signature that does not match the message and key.
	ErrInvalidSignature = errors.New("signature does not match")
)

var one = big.NewInt(1)

// PublicKey is a point Q = d·G.
type PublicKey struct {
	Curve *curve.Curve
	Point *curve.Point
}

// PrivateKey is a scalar d in [1, n-1] with its public key.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// Signature is an ECDSA signature with r, s in [1, n-1].
type Signature struct {
	R, S *big.Int
}

// SignResult is a signature together with the number of nonces drawn.
type SignResult struct {
	Signature *Signature
	Attempts  int
}

// GenerateKey draws d uniformly from [1, n-1] and computes Q = d·G.
func GenerateKey(c *curve.Curve, rand RandomSource) (*PrivateKey, error) {
	d, err := randomScalar(rand, c.N())
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return NewPrivateKey(c, d)
}

// NewPrivateKey derives the key pair for scalar d.
func NewPrivateKey(c *curve.Curve, d *big.Int) (*PrivateKey, error) {
	if d == nil || d.Sign() <= 0 || d.Cmp(c.N()) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range [1, %s]", ErrMalformedKey, new(big.Int).Sub(c.N(), one))
	}

	q := c.ScalarBaseMult(d)
	if curve.IsInfinity(q) {
		return nil, fmt.Errorf("%w: public key is the point at infinity", ErrMalformedKey)
	}

	return &PrivateKey{
		PublicKey: PublicKey{Curve: c, Point: q},
		D:         new(big.Int).Set(d),
	}, nil
}

// Sign signs msg with priv using the nonce source rand.
//
// Each attempt draws k from [1, n-1]. Attempts yielding r = 0 or s = 0 are
// discarded; after MaxSignAttempts the error is ErrSigningExhausted.
func Sign(rand RandomSource, priv *PrivateKey, msg []byte, alg Algorithm) (*SignResult, error) {
	if priv == nil || priv.Curve == nil || priv.D == nil {
		return nil, fmt.Errorf("%w: missing private key", ErrMalformedKey)
	}

	c := priv.Curve
	n := c.N()
	if priv.D.Sign() <= 0 || priv.D.Cmp(n) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrMalformedKey)
	}

	e, err := HashToScalar(alg, msg, n)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxSignAttempts; attempt++ {
		k, err := randomScalar(rand, n)
		if err != nil {
			return nil, fmt.Errorf("failed to draw nonce: %w", err)
		}

		// r = x(k·G) mod n
		R := c.ScalarBaseMult(k)
		if curve.IsInfinity(R) {
			continue
		}
		r := curve.Mod(R.X, n)
		if r.Sign() == 0 {
			continue
		}

		// s = k^-1 (e + d·r) mod n
		kInv, err := curve.ModInverse(k, n)
		if err != nil {
			return nil, err
		}
		s := new(big.Int).Mul(priv.D, r)
		s.Add(s, e)
		s.Mul(s, kInv)
		s = curve.Mod(s, n)
		if s.Sign() == 0 {
			continue
		}

		return &SignResult{
			Signature: &Signature{R: r, S: s},
			Attempts:  attempt,
		}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrSigningExhausted, MaxSignAttempts)
}

// Verify reports whether sig is a valid signature of msg by pub. Malformed
// keys or signatures report false.
func Verify(pub *PublicKey, msg []byte, sig *Signature, alg Algorithm) bool {
	return CheckSignature(pub, msg, sig, alg) == nil
}

// CheckSignature verifies sig and returns the reason for rejection, or nil.
// A well-formed signature that does not match yields ErrInvalidSignature.
func CheckSignature(pub *PublicKey, msg []byte, sig *Signature, alg Algorithm) error {
	if pub == nil || pub.Curve == nil {
		return fmt.Errorf("%w: missing public key", ErrMalformedKey)
	}
	if sig == nil || sig.R == nil || sig.S == nil {
		return fmt.Errorf("%w: missing component", ErrMalformedSignature)
	}

	c := pub.Curve
	n := c.N()
	if !inRange(sig.R, n) || !inRange(sig.S, n) {
		return fmt.Errorf("%w: r and s must be in [1, %s]", ErrMalformedSignature, new(big.Int).Sub(n, one))
	}
	if !c.IsOnCurve(pub.Point) {
		return fmt.Errorf("%w: public key is not on curve %s", ErrMalformedKey, c.Name())
	}

	e, err := HashToScalar(alg, msg, n)
	if err != nil {
		return err
	}

	w, err := curve.ModInverse(sig.S, n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	// X = u1·G + u2·Q
	u1 := curve.Mod(new(big.Int).Mul(e, w), n)
	u2 := curve.Mod(new(big.Int).Mul(sig.R, w), n)
	x := c.Add(c.ScalarBaseMult(u1), c.ScalarMult(u2, pub.Point))
	if curve.IsInfinity(x) {
		return ErrInvalidSignature
	}

	if curve.Mod(x.X, n).Cmp(sig.R) != 0 {
		return ErrInvalidSignature
	}
	return nil
}

func inRange(v, n *big.Int) bool {
	return v.Sign() > 0 && v.Cmp(n) < 0
}
