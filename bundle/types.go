// Package bundle provides the binary archive format for signed certificates.
//
// A bundle is a Borsh-encoded record holding the certificate metadata, the
// algorithm identifier, the signature and the signer's public key, tagged
// with a UUID and a creation time. Bundles let an issuer store or transfer
// certificates without the QR URL wrapping.
//
// # Encoding
//
//	b := bundle.FromCertificate(cert, uuid.New(), time.Now())
//	data, err := bundle.Encode(b)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Fingerprints
//
// ComputeHash returns the hex 32-byte BLAKE2b digest of the encoded bytes,
// which identifies a bundle independently of its file name:
//
//	fingerprint := bundle.ComputeHash(data)
package bundle

import (
	"time"

	"github.com/google/uuid"

	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/signer"
)

// Version is the current bundle format version.
const Version uint8 = 1

// Record is the certificate metadata in field order of the canonical payload.
type Record struct {
	HolderName     string `borsh:"holder_name"`
	EventName      string `borsh:"event_name"`
	IssueDate      string `borsh:"issue_date"`
	SignerName     string `borsh:"signer_name"`
	SignerPosition string `borsh:"signer_position"`
	Timestamp      string `borsh:"timestamp"`
}

// Bundle is a signed certificate archive.
type Bundle struct {
	Version   uint8    `borsh:"version"`
	ID        [16]byte `borsh:"id"`
	Algorithm string   `borsh:"algorithm"`
	Record    Record   `borsh:"record"`
	Signature string   `borsh:"signature"`
	PublicKey string   `borsh:"public_key"`
	CreatedAt int64    `borsh:"created_at"` // unix milliseconds
}

// FromCertificate wraps cert in a bundle.
func FromCertificate(cert *signer.Certificate, id uuid.UUID, createdAt time.Time) *Bundle {
	m := cert.Metadata
	return &Bundle{
		Version:   Version,
		ID:        id,
		Algorithm: cert.Algorithm,
		Record: Record{
			HolderName:     m.HolderName,
			EventName:      m.EventName,
			IssueDate:      m.IssueDate,
			SignerName:     m.SignerName,
			SignerPosition: m.SignerPosition,
			Timestamp:      m.Timestamp,
		},
		Signature: cert.Signature,
		PublicKey: cert.PublicKey,
		CreatedAt: createdAt.UnixMilli(),
	}
}

// UUID returns the bundle identifier.
func (b *Bundle) UUID() uuid.UUID {
	return uuid.UUID(b.ID)
}

// Created returns the creation time in UTC.
func (b *Bundle) Created() time.Time {
	return time.UnixMilli(b.CreatedAt).UTC()
}

// Metadata returns the certificate metadata.
func (b *Bundle) Metadata() payload.Metadata {
	return payload.Metadata{
		HolderName:     b.Record.HolderName,
		EventName:      b.Record.EventName,
		IssueDate:      b.Record.IssueDate,
		SignerName:     b.Record.SignerName,
		SignerPosition: b.Record.SignerPosition,
		Timestamp:      b.Record.Timestamp,
	}
}

// Certificate rebuilds the signed certificate, including its canonical
// payload.
func (b *Bundle) Certificate() (*signer.Certificate, error) {
	m := b.Metadata()
	data, err := payload.Canonical(m)
	if err != nil {
		return nil, err
	}
	return &signer.Certificate{
		Metadata:  m,
		Algorithm: b.Algorithm,
		Payload:   data,
		Signature: b.Signature,
		PublicKey: b.PublicKey,
	}, nil
}
