package verify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/digisign/certsign/bundle"
	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/qr"
)

// SignatureVerifier checks a signature over a canonical payload.
type SignatureVerifier interface {
	VerifySignature(data, signature, publicKey, algorithm string) bool
}

// Service handles verification logic
type Service struct {
	verifier SignatureVerifier
	logger   *zap.Logger
}

// NewService creates a new verification service
func NewService(verifier SignatureVerifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		verifier: verifier,
		logger:   logger,
	}
}

// Verify decodes a scanned QR value and checks its signature.
func (s *Service) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.QRValue == "" {
		return nil, errors.New("QR value is required")
	}

	// Step 1: Decode the envelope
	env, err := qr.Parse(req.QRValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse QR value: %w", err)
	}

	// Step 2: Rebuild the payload and verify
	return s.check(env.Data.Metadata(), env.Algorithm, env.Signature, env.PublicKey)
}

// VerifyQR is shorthand for Verify with only a QR value.
func (s *Service) VerifyQR(ctx context.Context, value string) (*VerifyResult, error) {
	return s.Verify(ctx, &VerifyRequest{QRValue: value})
}

// VerifyBundle checks the certificate stored in b.
func (s *Service) VerifyBundle(ctx context.Context, b *bundle.Bundle) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("bundle is required")
	}

	data, err := bundle.Encode(b)
	if err != nil {
		return nil, err
	}

	result, err := s.check(b.Metadata(), b.Algorithm, b.Signature, b.PublicKey)
	if err != nil {
		return nil, err
	}
	result.BundleID = b.UUID().String()
	result.Fingerprint = bundle.ComputeHash(data)
	return result, nil
}

func (s *Service) check(m payload.Metadata, algorithm, signature, publicKey string) (*VerifyResult, error) {
	data, err := payload.Canonical(m)
	if err != nil {
		return nil, fmt.Errorf("failed to build signable payload: %w", err)
	}

	result := &VerifyResult{
		Algorithm:       algorithm,
		Metadata:        m,
		SignablePayload: data,
		Signature:       signature,
		PublicKey:       publicKey,
	}
	if alg, err := crypto.ParseAlgorithm(algorithm); err == nil {
		result.AlgorithmName = alg.DisplayName()
	}

	result.Valid = s.verifier.VerifySignature(data, signature, publicKey, algorithm)

	s.logger.Info("verified certificate",
		zap.String("holder", m.HolderName),
		zap.String("algorithm", algorithm),
		zap.Bool("valid", result.Valid))
	return result, nil
}
