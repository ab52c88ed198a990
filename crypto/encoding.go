package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/digisign/certsign/curve"
)

var (
	// ErrMalformedKey is returned for keys that cannot be parsed or lie
	// outside the valid range.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMalformedSignature is returned for signatures that cannot be parsed.
	ErrMalformedSignature = errors.New("malformed signature")
)

// pointText is the wire form of a public key: {"x":"24","y":"22"}.
type pointText struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// signatureText is the wire form of a signature: {"r":"10","s":"13"}.
type signatureText struct {
	R string `json:"r"`
	S string `json:"s"`
}

// The decoders accept both JSON strings and JSON numbers.
type pointInput struct {
	X json.Number `json:"x"`
	Y json.Number `json:"y"`
}

type signatureInput struct {
	R json.Number `json:"r"`
	S json.Number `json:"s"`
}

// FormatPrivateKey returns the decimal representation of d.
func FormatPrivateKey(priv *PrivateKey) string {
	return priv.D.String()
}

// ParsePrivateKey parses a decimal scalar and derives its public key.
func ParsePrivateKey(c *curve.Curve, s string) (*PrivateKey, error) {
	d, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not a decimal integer", ErrMalformedKey)
	}
	return NewPrivateKey(c, d)
}

// FormatPublicKey returns the JSON object {"x":"..","y":".."} with decimal
// string coordinates.
func FormatPublicKey(pub *PublicKey) string {
	out, _ := json.Marshal(pointText{X: pub.Point.X.String(), Y: pub.Point.Y.String()})
	return string(out)
}

// ParsePublicKey parses the JSON form produced by FormatPublicKey.
// Coordinates are reduced mod q, then the point must lie on c.
func ParsePublicKey(c *curve.Curve, s string) (*PublicKey, error) {
	var in pointInput
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	x, err := parseInteger("x", in.X)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	y, err := parseInteger("y", in.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	q := c.Params().P
	p := &curve.Point{X: curve.Mod(x, q), Y: curve.Mod(y, q)}
	if !c.IsOnCurve(p) {
		return nil, fmt.Errorf("%w: point %s is not on curve %s", ErrMalformedKey, p, c.Name())
	}

	return &PublicKey{Curve: c, Point: p}, nil
}

// String returns the JSON object {"r":"..","s":".."}.
func (sig *Signature) String() string {
	out, _ := json.Marshal(signatureText{R: sig.R.String(), S: sig.S.String()})
	return string(out)
}

// ParseSignature parses the JSON form produced by Signature.String. Range
// checks are left to verification.
func ParseSignature(s string) (*Signature, error) {
	var in signatureInput
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	r, err := parseInteger("r", in.R)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	sv, err := parseInteger("s", in.S)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	return &Signature{R: r, S: sv}, nil
}

func parseInteger(name string, n json.Number) (*big.Int, error) {
	if n == "" {
		return nil, fmt.Errorf("missing %q", name)
	}
	v, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer: %s", name, n)
	}
	return v, nil
}

// MarshalASN1 encodes the signature as a DER SEQUENCE of two INTEGERs.
func (sig *Signature) MarshalASN1() ([]byte, error) {
	if sig.R == nil || sig.S == nil || sig.R.Sign() < 0 || sig.S.Sign() < 0 {
		return nil, fmt.Errorf("%w: r and s must be non-negative", ErrMalformedSignature)
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(sig.R)
		b.AddASN1BigInt(sig.S)
	})
	return b.Bytes()
}

// ParseSignatureASN1 decodes a DER signature produced by MarshalASN1.
func ParseSignatureASN1(der []byte) (*Signature, error) {
	r, s := new(big.Int), new(big.Int)

	var inner cryptobyte.String
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: invalid ASN.1", ErrMalformedSignature)
	}

	return &Signature{R: r, S: s}, nil
}
