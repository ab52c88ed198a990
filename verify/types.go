// Package verify provides end-to-end verification of scanned certificates.
//
// The verification process:
//   - decodes the QR value (URL, compact URL or raw JSON envelope)
//   - rebuilds the canonical payload from the compact metadata
//   - checks the ECDSA signature with the algorithm named in the envelope
//
// # Verification Flow
//
// Call Verify with the scanned value:
//
//	result, err := verifyService.Verify(ctx, &verify.VerifyRequest{
//		QRValue: "https://digisign.example/verify?data=eyJkIjp7...",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !result.Valid {
//		log.Printf("certificate for %s is not authentic", result.Metadata.HolderName)
//	}
//
// A value that cannot be decoded is an error. A decoded certificate whose
// signature does not match is a result with Valid set to false.
//
// # Bundles
//
// VerifyBundle checks a certificate archived with the bundle package and
// additionally reports the bundle identifier and fingerprint.
package verify

import (
	"github.com/digisign/certsign/payload"
)

// VerifyRequest represents the parameters for verification
type VerifyRequest struct {
	QRValue string
}

// VerifyResult represents the result of verification
type VerifyResult struct {
	Valid           bool             `json:"valid"`
	Algorithm       string           `json:"algorithm"`
	AlgorithmName   string           `json:"algorithmName,omitempty"`
	Metadata        payload.Metadata `json:"metadata"`
	SignablePayload string           `json:"signablePayload"`
	Signature       string           `json:"signature"`
	PublicKey       string           `json:"publicKey"`
	BundleID        string           `json:"bundleId,omitempty"`
	Fingerprint     string           `json:"fingerprint,omitempty"`
}
