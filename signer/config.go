package signer

import (
	"github.com/benbjohnson/clock"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/curve"
)

// DefaultOrigin is used for verification URLs when no origin is given.
const DefaultOrigin = "https://digisign.example"

// Config holds the Service settings.
type Config struct {
	// DefaultAlgorithm replaces unknown algorithm identifiers unless
	// StrictAlgorithms is set.
	DefaultAlgorithm crypto.Algorithm
	// StrictAlgorithms rejects unknown identifiers with
	// crypto.ErrUnknownAlgorithm.
	StrictAlgorithms bool
	// Origin prefixes verification URLs.
	Origin string

	Curve  *curve.Curve
	Random crypto.RandomSource
	Clock  clock.Clock
}

// DefaultConfig returns the settings matching the browser application.
func DefaultConfig() Config {
	return Config{
		DefaultAlgorithm: crypto.ECDSASHA128,
		Origin:           DefaultOrigin,
		Curve:            curve.Certificate(),
		Random:           crypto.DefaultRandom,
		Clock:            clock.New(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if !c.DefaultAlgorithm.Valid() {
		c.DefaultAlgorithm = def.DefaultAlgorithm
	}
	if c.Origin == "" {
		c.Origin = def.Origin
	}
	if c.Curve == nil {
		c.Curve = def.Curve
	}
	if c.Random == nil {
		c.Random = def.Random
	}
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	return c
}
