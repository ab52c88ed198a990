package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// RandomSource draws uniformly distributed integers.
type RandomSource interface {
	// Int returns a value in [0, max).
	Int(max *big.Int) (*big.Int, error)
}

type readerSource struct {
	r io.Reader
}

// Reader returns a RandomSource drawing from r.
func Reader(r io.Reader) RandomSource {
	return readerSource{r: r}
}

func (s readerSource) Int(max *big.Int) (*big.Int, error) {
	return rand.Int(s.r, max)
}

// DefaultRandom draws from crypto/rand.
var DefaultRandom = Reader(rand.Reader)

// randomScalar returns a value in [1, n-1].
func randomScalar(src RandomSource, n *big.Int) (*big.Int, error) {
	bound := new(big.Int).Sub(n, one)
	v, err := src.Int(bound)
	if err != nil {
		return nil, fmt.Errorf("failed to draw random scalar: %w", err)
	}
	if v.Sign() < 0 || v.Cmp(bound) >= 0 {
		return nil, fmt.Errorf("random source returned %s outside [0, %s)", v, bound)
	}
	return new(big.Int).Add(v, one), nil
}
