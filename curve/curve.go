// Package curve implements affine arithmetic on short Weierstrass curves
// y^2 = x^3 + ax + b over a prime field.
//
// The package is built for small, explicit parameter sets such as the
// certificate curve returned by Certificate. Arithmetic uses math/big and is
// not constant time.
//
// # Points
//
// A *Point holds affine coordinates. The point at infinity, the group
// identity, is the nil *Point:
//
//	c := curve.Certificate()
//	q := c.ScalarBaseMult(big.NewInt(7)) // (24, 22)
//	if curve.IsInfinity(q) {
//		log.Fatal("unexpected identity")
//	}
package curve

import (
	"errors"
	"fmt"
	"math/big"
)

// Infinity is the point at infinity.
var Infinity *Point

// Point is an affine curve point. A nil *Point is the point at infinity.
type Point struct {
	X, Y *big.Int
}

// NewPoint returns the affine point (x, y).
func NewPoint(x, y int64) *Point {
	return &Point{X: big.NewInt(x), Y: big.NewInt(y)}
}

// IsInfinity reports whether p is the point at infinity.
func IsInfinity(p *Point) bool {
	return p == nil
}

// Equal reports whether p and q are the same point.
func (p *Point) Equal(q *Point) bool {
	if p == nil || q == nil {
		return p == nil && q == nil
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

func (p *Point) String() string {
	if p == nil {
		return "infinity"
	}
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

func (p *Point) clone() *Point {
	if p == nil {
		return nil
	}
	return &Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Set(p.Y)}
}

// Params are the domain parameters of a curve.
type Params struct {
	Name string
	P    *big.Int // field prime q
	A, B *big.Int // curve coefficients
	Gx   *big.Int
	Gy   *big.Int
	N    *big.Int // order of G
}

// Curve is a validated, immutable curve.
type Curve struct {
	params Params
	g      *Point
}

// New validates params and returns a Curve.
//
// P and N must be prime, the curve must be non-singular, G must lie on it
// and N·G must be the point at infinity.
func New(params Params) (*Curve, error) {
	if params.P == nil || params.A == nil || params.B == nil ||
		params.Gx == nil || params.Gy == nil || params.N == nil {
		return nil, errors.New("incomplete curve parameters")
	}
	if params.P.Cmp(big.NewInt(3)) <= 0 || !params.P.ProbablyPrime(20) {
		return nil, fmt.Errorf("field modulus %s is not an odd prime", params.P)
	}
	if params.N.Cmp(one) <= 0 || !params.N.ProbablyPrime(20) {
		return nil, fmt.Errorf("group order %s is not prime", params.N)
	}

	c := &Curve{params: copyParams(params)}
	c.g = &Point{X: new(big.Int).Set(params.Gx), Y: new(big.Int).Set(params.Gy)}

	// 4a^3 + 27b^2 != 0 (mod p)
	a3 := new(big.Int).Exp(c.params.A, big.NewInt(3), nil)
	a3.Mul(a3, big.NewInt(4))
	b2 := new(big.Int).Mul(c.params.B, c.params.B)
	b2.Mul(b2, big.NewInt(27))
	if Mod(a3.Add(a3, b2), c.params.P).Sign() == 0 {
		return nil, errors.New("curve is singular")
	}

	if !c.IsOnCurve(c.g) {
		return nil, fmt.Errorf("generator %s is not on the curve", c.g)
	}
	if !IsInfinity(c.ScalarMult(c.params.N, c.g)) {
		return nil, fmt.Errorf("generator order is not %s", c.params.N)
	}

	return c, nil
}

func copyParams(p Params) Params {
	return Params{
		Name: p.Name,
		P:    new(big.Int).Set(p.P),
		A:    new(big.Int).Set(p.A),
		B:    new(big.Int).Set(p.B),
		Gx:   new(big.Int).Set(p.Gx),
		Gy:   new(big.Int).Set(p.Gy),
		N:    new(big.Int).Set(p.N),
	}
}

// Params returns a copy of the curve parameters.
func (c *Curve) Params() Params {
	return copyParams(c.params)
}

// Name returns the curve name.
func (c *Curve) Name() string {
	return c.params.Name
}

// N returns a copy of the order of the generator.
func (c *Curve) N() *big.Int {
	return new(big.Int).Set(c.params.N)
}

// Generator returns a copy of the base point G.
func (c *Curve) Generator() *Point {
	return c.g.clone()
}

// IsOnCurve reports whether p is an affine point of the curve with both
// coordinates in [0, P). The point at infinity reports false.
func (c *Curve) IsOnCurve(p *Point) bool {
	if p == nil || p.X == nil || p.Y == nil {
		return false
	}
	if p.X.Sign() < 0 || p.X.Cmp(c.params.P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(c.params.P) >= 0 {
		return false
	}

	lhs := new(big.Int).Mul(p.Y, p.Y)
	rhs := new(big.Int).Exp(p.X, big.NewInt(3), nil)
	rhs.Add(rhs, new(big.Int).Mul(c.params.A, p.X))
	rhs.Add(rhs, c.params.B)

	return Mod(lhs, c.params.P).Cmp(Mod(rhs, c.params.P)) == 0
}

// Add returns p1 + p2.
func (c *Curve) Add(p1, p2 *Point) *Point {
	if p1 == nil {
		return p2.clone()
	}
	if p2 == nil {
		return p1.clone()
	}

	q := c.params.P
	x1, y1 := Mod(p1.X, q), Mod(p1.Y, q)
	x2, y2 := Mod(p2.X, q), Mod(p2.Y, q)

	var lambda *big.Int
	if x1.Cmp(x2) == 0 {
		// P + (-P), including doubling a point with y = 0
		if Mod(new(big.Int).Add(y1, y2), q).Sign() == 0 {
			return nil
		}

		// tangent slope (3x^2 + a) / 2y
		num := new(big.Int).Mul(x1, x1)
		num.Mul(num, big.NewInt(3))
		num.Add(num, c.params.A)
		den := new(big.Int).Lsh(y1, 1)
		lambda = num.Mul(num, c.inverse(den))
	} else {
		num := new(big.Int).Sub(y2, y1)
		den := new(big.Int).Sub(x2, x1)
		lambda = num.Mul(num, c.inverse(den))
	}
	lambda = Mod(lambda, q)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, x1)
	x3.Sub(x3, x2)
	x3 = Mod(x3, q)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, y1)

	return &Point{X: x3, Y: Mod(y3, q)}
}

// inverse is only called with values that are nonzero modulo the prime P,
// which New guarantees always have an inverse.
func (c *Curve) inverse(v *big.Int) *big.Int {
	inv, err := ModInverse(v, c.params.P)
	if err != nil {
		panic(fmt.Sprintf("curve %s: %v", c.params.Name, err))
	}
	return inv
}

// Double returns 2·p.
func (c *Curve) Double(p *Point) *Point {
	return c.Add(p, p)
}

// ScalarMult returns k·p using double-and-add over the binary expansion of k,
// least significant bit first. A zero or negative k yields infinity.
func (c *Curve) ScalarMult(k *big.Int, p *Point) *Point {
	var result *Point
	if k.Sign() <= 0 {
		return result
	}

	addend := p.clone()
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			result = c.Add(result, addend)
		}
		addend = c.Double(addend)
	}

	return result
}

// ScalarBaseMult returns k·G.
func (c *Curve) ScalarBaseMult(k *big.Int) *Point {
	return c.ScalarMult(k, c.g)
}

var certificate = mustNew(Params{
	Name: "certsign-29",
	P:    big.NewInt(29),
	A:    big.NewInt(4),
	B:    big.NewInt(20),
	Gx:   big.NewInt(1),
	Gy:   big.NewInt(5),
	N:    big.NewInt(37),
})

func mustNew(p Params) *Curve {
	c, err := New(p)
	if err != nil {
		panic(err)
	}
	return c
}

// Certificate returns the curve used for certificate signatures:
// y^2 = x^3 + 4x + 20 over F_29 with G = (1, 5) of order 37.
func Certificate() *Curve {
	return certificate
}
