// Package signer exposes the certificate signing operations used by the CLI
// and the browser build: key generation, canonical payloads, signing,
// verification and QR values.
//
// Algorithms are passed by wire identifier. Unknown identifiers fall back to
// Config.DefaultAlgorithm with a warning unless Config.StrictAlgorithms is
// set.
package signer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/qr"
)

// ErrKeyMismatch is returned when a key pair's public key does not belong to
// its private key.
var ErrKeyMismatch = errors.New("public key does not match private key")

// KeyPair is the text form of a key pair: a decimal private scalar and a
// {"x":"..","y":".."} public key.
type KeyPair struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// Certificate is a signed certificate.
type Certificate struct {
	Metadata  payload.Metadata `json:"metadata"`
	Algorithm string           `json:"algorithm"`
	Payload   string           `json:"payload"`
	Signature string           `json:"signature"`
	PublicKey string           `json:"publicKey"`
}

// Envelope returns the QR document for c.
func (c *Certificate) Envelope() qr.Envelope {
	return qr.Envelope{
		Data:      qr.CompactFromMetadata(c.Metadata),
		Algorithm: c.Algorithm,
		Signature: c.Signature,
		PublicKey: c.PublicKey,
	}
}

// Service implements the signing operations. It is safe for concurrent use.
type Service struct {
	cfg      Config
	payloads *payload.Builder
	logger   *zap.Logger
	metrics  *Metrics
}

// New creates a Service. A nil logger discards logs and nil metrics record
// nothing.
func New(cfg Config, logger *zap.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	return &Service{
		cfg:      cfg,
		payloads: payload.NewBuilder(cfg.Clock),
		logger:   logger,
		metrics:  metrics,
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// ResolveAlgorithm maps an identifier to an algorithm, applying the fallback
// policy.
func (s *Service) ResolveAlgorithm(id string) (crypto.Algorithm, error) {
	alg, err := crypto.ParseAlgorithm(id)
	if err == nil {
		return alg, nil
	}
	if s.cfg.StrictAlgorithms {
		return 0, err
	}

	s.logger.Warn("unknown algorithm, using default",
		zap.String("requested", id),
		zap.Stringer("algorithm", s.cfg.DefaultAlgorithm))
	return s.cfg.DefaultAlgorithm, nil
}

// GenerateKeyPair creates a new random key pair. The algorithm does not
// change the key format and is only checked against the fallback policy.
func (s *Service) GenerateKeyPair(algorithm string) (KeyPair, error) {
	if _, err := s.ResolveAlgorithm(algorithm); err != nil {
		return KeyPair{}, err
	}

	priv, err := crypto.GenerateKey(s.cfg.Curve, s.cfg.Random)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{
		PrivateKey: crypto.FormatPrivateKey(priv),
		PublicKey:  crypto.FormatPublicKey(&priv.PublicKey),
	}, nil
}

// CreateSignableData returns the canonical payload for m, filling a missing
// timestamp from the configured clock.
func (s *Service) CreateSignableData(m payload.Metadata) (string, error) {
	return s.payloads.CreateSignableData(m)
}

// SignData signs data with a decimal private key and returns the signature as
// {"r":"..","s":".."}.
func (s *Service) SignData(data, privateKey, algorithm string) (string, error) {
	alg, err := s.ResolveAlgorithm(algorithm)
	if err != nil {
		s.metrics.signFailed("unknown", "algorithm")
		return "", err
	}

	priv, err := crypto.ParsePrivateKey(s.cfg.Curve, privateKey)
	if err != nil {
		s.metrics.signFailed(alg.String(), "key")
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	res, err := crypto.Sign(s.cfg.Random, priv, []byte(data), alg)
	if err != nil {
		reason := "random"
		if errors.Is(err, crypto.ErrSigningExhausted) {
			reason = "exhausted"
		}
		s.metrics.signFailed(alg.String(), reason)
		s.logger.Error("signing failed",
			zap.Stringer("algorithm", alg),
			zap.String("result", reason),
			zap.Error(err))
		return "", err
	}

	s.metrics.signed(alg.String(), res.Attempts)
	s.logger.Debug("signed payload",
		zap.Stringer("algorithm", alg),
		zap.Int("attempts", res.Attempts))
	return res.Signature.String(), nil
}

// VerifySignature reports whether signature is valid for data under
// publicKey. Malformed input is logged and reported as false.
func (s *Service) VerifySignature(data, signature, publicKey, algorithm string) bool {
	alg, err := s.ResolveAlgorithm(algorithm)
	if err != nil {
		s.rejected("unknown", err)
		return false
	}

	pub, err := crypto.ParsePublicKey(s.cfg.Curve, publicKey)
	if err != nil {
		s.rejected(alg.String(), err)
		return false
	}

	sig, err := crypto.ParseSignature(signature)
	if err != nil {
		s.rejected(alg.String(), err)
		return false
	}

	err = crypto.CheckSignature(pub, []byte(data), sig, alg)
	switch {
	case err == nil:
		s.metrics.verified(alg.String(), "valid")
		return true
	case errors.Is(err, crypto.ErrInvalidSignature):
		s.metrics.verified(alg.String(), "invalid")
		s.logger.Debug("signature does not match", zap.Stringer("algorithm", alg))
		return false
	default:
		s.rejected(alg.String(), err)
		return false
	}
}

func (s *Service) rejected(alg string, err error) {
	s.metrics.verified(alg, "malformed")
	s.logger.Warn("rejected malformed verification input",
		zap.String("algorithm", alg),
		zap.Error(err))
}

// SignCertificate signs m with kp. A missing timestamp is filled from the
// clock before signing.
func (s *Service) SignCertificate(m payload.Metadata, kp KeyPair, algorithm string) (*Certificate, error) {
	alg, err := s.ResolveAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}

	if err := s.checkKeyPair(kp); err != nil {
		return nil, err
	}

	if m.Timestamp == "" {
		m.Timestamp = s.payloads.Now()
	}
	data, err := payload.Canonical(m)
	if err != nil {
		return nil, err
	}

	sig, err := s.SignData(data, kp.PrivateKey, alg.String())
	if err != nil {
		return nil, err
	}

	return &Certificate{
		Metadata:  m,
		Algorithm: alg.String(),
		Payload:   data,
		Signature: sig,
		PublicKey: kp.PublicKey,
	}, nil
}

func (s *Service) checkKeyPair(kp KeyPair) error {
	priv, err := crypto.ParsePrivateKey(s.cfg.Curve, kp.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	pub, err := crypto.ParsePublicKey(s.cfg.Curve, kp.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}
	if !pub.Point.Equal(priv.Point) {
		return ErrKeyMismatch
	}
	return nil
}

// GenerateQRValue signs m and returns the verification URL
// origin + "/verify?data=" + base64(envelope). An empty origin uses
// Config.Origin.
func (s *Service) GenerateQRValue(m payload.Metadata, kp KeyPair, algorithm, origin string) (string, error) {
	cert, err := s.SignCertificate(m, kp, algorithm)
	if err != nil {
		return "", err
	}
	if origin == "" {
		origin = s.cfg.Origin
	}
	return qr.URL(origin, cert.Envelope())
}
