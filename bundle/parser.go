package bundle

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/near/borsh-go"

	"github.com/digisign/certsign/digest"
)

// Encode serializes b with Borsh.
func Encode(b *Bundle) ([]byte, error) {
	data, err := borsh.Serialize(*b)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bundle: %w", err)
	}
	return data, nil
}

// Decode deserializes a Borsh-encoded bundle and checks its version.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := borsh.Deserialize(&b, data); err != nil {
		return nil, fmt.Errorf("failed to deserialize bundle: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("unsupported bundle version %d, expected %d", b.Version, Version)
	}
	return &b, nil
}

// DecodeFromBase64 decodes a base64-encoded bundle and returns it with its
// raw bytes.
func DecodeFromBase64(bundleB64 string) (*Bundle, []byte, error) {
	data, err := base64.StdEncoding.DecodeString(bundleB64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	b, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return b, data, nil
}

// DecodeFromFile reads and decodes a bundle file and returns it with its raw
// bytes.
func DecodeFromFile(filePath string) (*Bundle, []byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	b, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return b, data, nil
}

// WriteFile encodes b to filePath and returns the encoded bytes.
func WriteFile(filePath string, b *Bundle) ([]byte, error) {
	data, err := Encode(b)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write bundle: %w", err)
	}
	return data, nil
}

// ComputeHash returns the hex BLAKE2b-256 fingerprint of encoded bundle bytes.
func ComputeHash(data []byte) string {
	sum := digest.Blake2b256(data)
	return fmt.Sprintf("%x", sum[:])
}
