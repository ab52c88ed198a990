package verify

import (
	"fmt"
	"strings"

	"github.com/digisign/certsign/bundle"
	"github.com/digisign/certsign/payload"
)

// Formatter formats verification and bundle data for display
type Formatter struct{}

// NewFormatter creates a new formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatResult formats a verification result as human-readable text
func (f *Formatter) FormatResult(result *VerifyResult) string {
	var sb strings.Builder

	if result.Valid {
		sb.WriteString("✓ Certificate is authentic\n")
	} else {
		sb.WriteString("✗ Certificate signature is not valid\n")
	}

	sb.WriteString(f.formatMetadata(result, "  "))

	algorithm := result.Algorithm
	if result.AlgorithmName != "" {
		algorithm = fmt.Sprintf("%s (%s)", result.AlgorithmName, result.Algorithm)
	}
	sb.WriteString(fmt.Sprintf("\n  Algorithm:  %s\n", algorithm))
	sb.WriteString(fmt.Sprintf("  Signature:  %s\n", result.Signature))
	sb.WriteString(fmt.Sprintf("  Public Key: %s\n", result.PublicKey))

	if result.BundleID != "" {
		sb.WriteString(fmt.Sprintf("  Bundle:     %s\n", result.BundleID))
		sb.WriteString(fmt.Sprintf("  Fingerprint: %s\n", result.Fingerprint))
	}

	return sb.String()
}

func (f *Formatter) formatMetadata(result *VerifyResult, indent string) string {
	var sb strings.Builder
	m := result.Metadata
	sb.WriteString(fmt.Sprintf("%sHolder:     %s\n", indent, m.HolderName))
	sb.WriteString(fmt.Sprintf("%sEvent:      %s\n", indent, m.EventName))
	sb.WriteString(fmt.Sprintf("%sIssued:     %s\n", indent, m.IssueDate))
	sb.WriteString(fmt.Sprintf("%sSigned by:  %s, %s\n", indent, m.SignerName, m.SignerPosition))
	sb.WriteString(fmt.Sprintf("%sSigned at:  %s\n", indent, m.Timestamp))
	return sb.String()
}

// FormatVerificationResult formats a verification result for JSON output
func (f *Formatter) FormatVerificationResult(result *VerifyResult) map[string]interface{} {
	output := map[string]interface{}{
		"valid":           result.Valid,
		"algorithm":       result.Algorithm,
		"metadata":        result.Metadata,
		"signablePayload": result.SignablePayload,
		"signature":       result.Signature,
		"publicKey":       result.PublicKey,
	}

	// Add optional fields if present
	if result.AlgorithmName != "" {
		output["algorithmName"] = result.AlgorithmName
	}

	if result.BundleID != "" {
		output["bundleId"] = result.BundleID
		output["fingerprint"] = result.Fingerprint
	}

	return output
}

// FormatBundle formats bundle details for display
func (f *Formatter) FormatBundle(b *bundle.Bundle, fingerprint string) string {
	var sb strings.Builder

	sb.WriteString("Bundle:\n")
	sb.WriteString(fmt.Sprintf("  ID: %s\n", b.UUID()))
	sb.WriteString(fmt.Sprintf("  Version: %d\n", b.Version))
	sb.WriteString(fmt.Sprintf("  Created: %s\n", payload.FormatTimestamp(b.Created())))
	if fingerprint != "" {
		sb.WriteString(fmt.Sprintf("  Fingerprint: %s\n", fingerprint))
	}

	sb.WriteString("\nCertificate:\n")
	sb.WriteString(fmt.Sprintf("  Holder: %s\n", b.Record.HolderName))
	sb.WriteString(fmt.Sprintf("  Event: %s\n", b.Record.EventName))
	sb.WriteString(fmt.Sprintf("  Issue Date: %s\n", b.Record.IssueDate))
	sb.WriteString(fmt.Sprintf("  Signer: %s\n", b.Record.SignerName))
	sb.WriteString(fmt.Sprintf("  Position: %s\n", b.Record.SignerPosition))
	sb.WriteString(fmt.Sprintf("  Timestamp: %s\n", b.Record.Timestamp))

	sb.WriteString("\nSignature:\n")
	sb.WriteString(fmt.Sprintf("  Algorithm: %s\n", b.Algorithm))
	sb.WriteString(fmt.Sprintf("  Value: %s\n", b.Signature))
	sb.WriteString(fmt.Sprintf("  Public Key: %s\n", b.PublicKey))

	return sb.String()
}

// FormatBundleJSON formats a bundle for JSON output
func (f *Formatter) FormatBundleJSON(b *bundle.Bundle, fingerprint string) map[string]interface{} {
	output := map[string]interface{}{
		"id":        b.UUID().String(),
		"version":   b.Version,
		"createdAt": payload.FormatTimestamp(b.Created()),
		"algorithm": b.Algorithm,
		"metadata":  b.Metadata(),
		"signature": b.Signature,
		"publicKey": b.PublicKey,
	}
	if fingerprint != "" {
		output["fingerprint"] = fingerprint
	}
	return output
}
