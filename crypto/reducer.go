package crypto

import (
	"fmt"
	"math/big"

	"github.com/digisign/certsign/curve"
	"github.com/digisign/certsign/digest"
)

// noHashPrefix is the number of leading message bytes folded by ECDSANoHash.
const noHashPrefix = 8

// HashToScalar reduces msg to the scalar e in [0, n) for alg.
func HashToScalar(alg Algorithm, msg []byte, n *big.Int) (*big.Int, error) {
	switch alg {
	case ECDSANoHash:
		return foldPrefix(msg, n), nil
	case ECDSASHA128:
		sum := digest.SHA128Sum(msg)
		return sumBytes(sum[:], n), nil
	case ECDSABlake2b:
		sum := digest.Blake2b256(msg)
		return sumBytes(sum[:], n), nil
	case ECDSASHA128Blake2b:
		inner := digest.SHA128Sum(msg)
		sum := digest.Blake2b256(inner[:])
		return sumBytes(sum[:], n), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
}

// sumBytes adds the digest bytes as unsigned integers and reduces mod n.
func sumBytes(sum []byte, n *big.Int) *big.Int {
	var total uint64
	for _, b := range sum {
		total += uint64(b)
	}
	return curve.Mod(new(big.Int).SetUint64(total), n)
}

// foldPrefix treats the first eight bytes of msg as base-256 digits reduced
// mod n after each step. A zero result is replaced with 1.
func foldPrefix(msg []byte, n *big.Int) *big.Int {
	e := new(big.Int)
	base := big.NewInt(256)

	for i := 0; i < len(msg) && i < noHashPrefix; i++ {
		e.Mul(e, base)
		e.Add(e, big.NewInt(int64(msg[i])))
		e = curve.Mod(e, n)
	}

	if e.Sign() == 0 {
		e.SetInt64(1)
	}
	return e
}
