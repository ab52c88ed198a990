// Package testdata provides embedded test fixtures for use across all test packages.
package testdata

import _ "embed"

// MetadataJSON is the certificate metadata of the reference certificate.
//
//go:embed metadata.json
var MetadataJSON []byte

// QRValue is the verification URL of the reference certificate, signed with
// ecdsa_sha128_blake2b by the key with public point (24, 22).
//
//go:embed qr_value.txt
var QRValue string

// Reference key pair and signature for the certificate above.
const (
	PrivateKey = "7"
	PublicKey  = `{"x":"24","y":"22"}`
	Signature  = `{"r":"10","s":"13"}`
	Algorithm  = "ecdsa_sha128_blake2b"
)
