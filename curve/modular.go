package curve

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrNoInverse is returned when a value has no multiplicative inverse modulo m.
var ErrNoInverse = errors.New("modular inverse does not exist")

var one = big.NewInt(1)

// Mod returns v mod m normalized into [0, |m|).
func Mod(v, m *big.Int) *big.Int {
	abs := new(big.Int).Abs(m)
	r := new(big.Int).Rem(v, abs)
	if r.Sign() < 0 {
		r.Add(r, abs)
	}
	return r
}

// ModInverse returns x in [0, m) such that v*x = 1 (mod m).
//
// The inverse is computed with the extended Euclidean algorithm. When
// gcd(v, m) != 1 the error wraps ErrNoInverse.
func ModInverse(v, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus %s is not positive", ErrNoInverse, m)
	}

	oldR, r := Mod(v, m), new(big.Int).Set(m)
	oldS, s := big.NewInt(1), big.NewInt(0)

	for r.Sign() != 0 {
		q := new(big.Int).Quo(oldR, r)
		oldR, r = r, new(big.Int).Sub(oldR, new(big.Int).Mul(q, r))
		oldS, s = s, new(big.Int).Sub(oldS, new(big.Int).Mul(q, s))
	}

	if oldR.Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: gcd(%s, %s) = %s", ErrNoInverse, v, m, oldR)
	}

	return Mod(oldS, m), nil
}
