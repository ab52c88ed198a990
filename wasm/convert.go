// Package wasm adapts the signing service to JavaScript callers. Values cross
// the boundary as strings: metadata and key pairs as JSON documents, results
// as JSON text.
package wasm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/signer"
)

// DecodeMetadata parses the metadata object passed by the page.
func DecodeMetadata(s string) (payload.Metadata, error) {
	var m payload.Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return m, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return m, nil
}

// DecodeKeyPair parses a {"privateKey":..,"publicKey":..} object.
func DecodeKeyPair(s string) (signer.KeyPair, error) {
	var kp signer.KeyPair
	if err := json.Unmarshal([]byte(s), &kp); err != nil {
		return kp, fmt.Errorf("failed to parse key pair: %w", err)
	}
	if kp.PrivateKey == "" || kp.PublicKey == "" {
		return kp, errors.New("key pair requires privateKey and publicKey")
	}
	return kp, nil
}

// EncodeResult returns v as JSON text.
func EncodeResult(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(out), nil
}
