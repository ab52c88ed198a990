package crypto

import (
	"errors"
	"fmt"
)

// ErrUnknownAlgorithm is returned for an unrecognized algorithm identifier.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Algorithm selects how a message is reduced to the scalar e before ECDSA.
type Algorithm uint8

const (
	// ECDSABlake2b sums the bytes of the 32-byte BLAKE2b digest.
	ECDSABlake2b Algorithm = iota + 1
	// ECDSANoHash folds the first eight message bytes directly.
	ECDSANoHash
	// ECDSASHA128Blake2b sums the bytes of BLAKE2b(SHA128(m)).
	ECDSASHA128Blake2b
	// ECDSASHA128 sums the bytes of the SHA128 digest.
	ECDSASHA128
)

var algorithmIDs = map[Algorithm]string{
	ECDSABlake2b:       "ecdsa_blake2b",
	ECDSANoHash:        "ecdsa_no_hash",
	ECDSASHA128Blake2b: "ecdsa_sha128_blake2b",
	ECDSASHA128:        "ecdsa_sha128",
}

var algorithmNames = map[Algorithm]string{
	ECDSABlake2b:       "ECDSA-BLAKE2B",
	ECDSANoHash:        "ECDSA-NO-HASH",
	ECDSASHA128Blake2b: "ECDSA-SHA128-BLAKE2B",
	ECDSASHA128:        "ECDSA-SHA128",
}

// Algorithms returns every supported algorithm in display order.
func Algorithms() []Algorithm {
	return []Algorithm{ECDSABlake2b, ECDSANoHash, ECDSASHA128Blake2b, ECDSASHA128}
}

// ParseAlgorithm returns the algorithm for a wire identifier such as
// "ecdsa_sha128".
func ParseAlgorithm(id string) (Algorithm, error) {
	for alg, s := range algorithmIDs {
		if s == id {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, id)
}

// String returns the wire identifier.
func (a Algorithm) String() string {
	if s, ok := algorithmIDs[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", uint8(a))
}

// DisplayName returns the human readable label, e.g. "ECDSA-SHA128".
func (a Algorithm) DisplayName() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return a.String()
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algorithmIDs[a]
	return ok
}
