// Package qr encodes signed certificates into the value carried by a QR code
// and parses scanned values back.
//
// The value is a verification URL:
//
//	<origin>/verify?data=<base64(JSON)>
//
// where the JSON document is
//
//	{"d":{"o":..,"e":..,"s":..,"p":..,"t":..,"ts":..},"a":..,"sig":..,"pk":..}
//
// with the keys in exactly that order. The base64 is standard alphabet with
// padding over the UTF-8 bytes of the JSON and is not percent-encoded.
//
// A denser form for small codes, EncodeCompact, carries the same envelope as
// deterministic CBOR in unpadded base64url under the "c" query parameter.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/digisign/certsign/payload"
)

const (
	// VerifyPath is the path of the verification page.
	VerifyPath = "/verify"
	// DataParam carries the base64 JSON envelope.
	DataParam = "data"
	// CompactParam carries the base64url CBOR envelope.
	CompactParam = "c"
)

// ErrInvalidValue is returned for scanned values that cannot be decoded.
var ErrInvalidValue = errors.New("invalid QR value")

// Compact is the abbreviated certificate metadata carried in a QR value.
type Compact struct {
	Owner     string `json:"o"`
	Event     string `json:"e"`
	Signer    string `json:"s"`
	Position  string `json:"p"`
	IssueDate string `json:"t"`
	Timestamp string `json:"ts"`
}

// Envelope is the full QR document.
type Envelope struct {
	Data      Compact `json:"d"`
	Algorithm string  `json:"a"`
	Signature string  `json:"sig"`
	PublicKey string  `json:"pk"`
}

// CompactFromMetadata abbreviates m.
func CompactFromMetadata(m payload.Metadata) Compact {
	return Compact{
		Owner:     m.HolderName,
		Event:     m.EventName,
		Signer:    m.SignerName,
		Position:  m.SignerPosition,
		IssueDate: m.IssueDate,
		Timestamp: m.Timestamp,
	}
}

// Metadata expands c into the metadata the signature was computed over.
func (c Compact) Metadata() payload.Metadata {
	return payload.Metadata{
		HolderName:     c.Owner,
		EventName:      c.Event,
		IssueDate:      c.IssueDate,
		SignerName:     c.Signer,
		SignerPosition: c.Position,
		Timestamp:      c.Timestamp,
	}
}

// Encode returns the base64 JSON form of env.
func Encode(env Envelope) (string, error) {
	raw, err := marshalJSON(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// marshalJSON encodes env the way the browser's JSON.stringify does.
func marshalJSON(env Envelope) ([]byte, error) {
	return payload.EncodeJSON(env)
}

// URL returns the verification URL for env under origin.
func URL(origin string, env Envelope) (string, error) {
	data, err := Encode(env)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(origin, "/") + VerifyPath + "?" + DataParam + "=" + data, nil
}

var compactEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// EncodeCompact returns the base64url CBOR form of env.
func EncodeCompact(env Envelope) (string, error) {
	raw, err := compactEncMode.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode compact envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CompactURL returns the verification URL carrying the compact form of env.
func CompactURL(origin string, env Envelope) (string, error) {
	data, err := EncodeCompact(env)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(origin, "/") + VerifyPath + "?" + CompactParam + "=" + data, nil
}

// DecodeCompact decodes the base64url CBOR form produced by EncodeCompact.
func DecodeCompact(s string) (*Envelope, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64url: %w", ErrInvalidValue, err)
	}

	var env Envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode CBOR: %w", ErrInvalidValue, err)
	}
	if err := validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// envelopeInput detects a missing "d" object or a missing field inside it.
type envelopeInput struct {
	Data      *compactInput `json:"d"`
	Algorithm string        `json:"a"`
	Signature string        `json:"sig"`
	PublicKey string        `json:"pk"`
}

type compactInput struct {
	Owner     *string `json:"o"`
	Event     *string `json:"e"`
	Signer    *string `json:"s"`
	Position  *string `json:"p"`
	IssueDate *string `json:"t"`
	Timestamp *string `json:"ts"`
}

// compact requires every field. An absent key would be dropped from the
// payload the browser rebuilds, while Metadata always emits all six.
func (in *compactInput) compact() (Compact, error) {
	fields := []struct {
		key string
		val *string
	}{
		{"o", in.Owner},
		{"e", in.Event},
		{"s", in.Signer},
		{"p", in.Position},
		{"t", in.IssueDate},
		{"ts", in.Timestamp},
	}
	for _, f := range fields {
		if f.val == nil {
			return Compact{}, fmt.Errorf("%w: missing certificate field %q", ErrInvalidValue, f.key)
		}
	}

	return Compact{
		Owner:     *in.Owner,
		Event:     *in.Event,
		Signer:    *in.Signer,
		Position:  *in.Position,
		IssueDate: *in.IssueDate,
		Timestamp: *in.Timestamp,
	}, nil
}

// Parse decodes a scanned value. It accepts a verification URL carrying
// either the data or the compact parameter, or a raw JSON envelope.
func Parse(value string) (*Envelope, error) {
	value = strings.TrimSpace(value)

	if i := strings.Index(value, "?"+CompactParam+"="); i >= 0 {
		return DecodeCompact(queryValue(value[i+len(CompactParam)+2:]))
	}

	raw := []byte(value)
	if i := strings.Index(value, "?"+DataParam+"="); i >= 0 {
		data := queryValue(value[i+len(DataParam)+2:])

		// '+' turns into ' ' when the URL passes through form decoding
		data = strings.ReplaceAll(data, " ", "+")

		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode base64: %w", ErrInvalidValue, err)
		}
		raw = decoded
	}

	var in envelopeInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JSON: %w", ErrInvalidValue, err)
	}
	if in.Data == nil {
		return nil, fmt.Errorf("%w: missing certificate data", ErrInvalidValue)
	}

	env := &Envelope{
		Algorithm: in.Algorithm,
		Signature: in.Signature,
		PublicKey: in.PublicKey,
	}
	if err := validate(env); err != nil {
		return nil, err
	}

	data, err := in.Data.compact()
	if err != nil {
		return nil, err
	}
	env.Data = data
	return env, nil
}

// queryValue cuts s at the next parameter or fragment and undoes percent
// encoding if present.
func queryValue(s string) string {
	if i := strings.IndexAny(s, "&#"); i >= 0 {
		s = s[:i]
	}
	if strings.Contains(s, "%") {
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
	}
	return s
}

func validate(env *Envelope) error {
	switch {
	case env.Signature == "":
		return fmt.Errorf("%w: missing signature", ErrInvalidValue)
	case env.PublicKey == "":
		return fmt.Errorf("%w: missing public key", ErrInvalidValue)
	case env.Algorithm == "":
		return fmt.Errorf("%w: missing algorithm", ErrInvalidValue)
	}
	return nil
}
