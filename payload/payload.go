// Package payload builds the canonical signable form of certificate metadata.
//
// The canonical form is compact JSON with six keys in a fixed order and no
// HTML escaping, byte-identical to JavaScript's JSON.stringify of the same
// object:
//
//	{"holderName":"..","eventName":"..","issueDate":"..","signerName":"..","signerPosition":"..","timestamp":".."}
//
// Signatures are computed over exactly these bytes, so any change to field
// order or escaping invalidates existing certificates.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// TimestampLayout is the ISO-8601 UTC layout with millisecond precision used
// for generated timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Metadata describes a certificate. Field order defines the canonical key
// order.
type Metadata struct {
	HolderName     string `json:"holderName"`
	EventName      string `json:"eventName"`
	IssueDate      string `json:"issueDate"`
	SignerName     string `json:"signerName"`
	SignerPosition string `json:"signerPosition"`
	Timestamp      string `json:"timestamp"`
}

// Builder produces canonical payloads, filling missing timestamps from its
// clock.
type Builder struct {
	clock clock.Clock
}

// NewBuilder returns a Builder reading the current time from clk. A nil clk
// uses the wall clock.
func NewBuilder(clk clock.Clock) *Builder {
	if clk == nil {
		clk = clock.New()
	}
	return &Builder{clock: clk}
}

// Now returns the builder's current time formatted with TimestampLayout.
func (b *Builder) Now() string {
	return FormatTimestamp(b.clock.Now())
}

// CreateSignableData returns the canonical JSON for m. An empty timestamp is
// replaced with the current time.
func (b *Builder) CreateSignableData(m Metadata) (string, error) {
	if m.Timestamp == "" {
		m.Timestamp = b.Now()
	}
	return Canonical(m)
}

// Canonical encodes m as-is in canonical form.
func Canonical(m Metadata) (string, error) {
	out, err := EncodeJSON(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(out), nil
}

// EncodeJSON encodes v compactly with the escaping rules of JSON.stringify:
// HTML characters and U+2028/U+2029 are written raw.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes produced by
// encoding/json as raw UTF-8. Every backslash in encoder output starts an
// escape, so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && string(b[i+1:i+5]) == "u202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// Parse decodes a canonical payload back into Metadata.
func Parse(data string) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	return m, nil
}

// FormatTimestamp formats t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var defaultBuilder = NewBuilder(nil)

// CreateSignableData returns the canonical JSON for m using the wall clock
// for a missing timestamp.
func CreateSignableData(m Metadata) (string, error) {
	return defaultBuilder.CreateSignableData(m)
}
