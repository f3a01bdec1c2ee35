package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStatement = "weaveio/statement/v1"
	DomainGraph     = "weaveio/graph/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StatementFingerprint computes the content address of a rendered statement.
// Two statements with the same fragments, parameters and returned variable
// share a fingerprint regardless of map iteration order.
func StatementFingerprint(fragments []string, params IRObject, returns string) (string, error) {
	frags := make(IRArray, len(fragments))
	for i, f := range fragments {
		frags[i] = IRString(f)
	}
	if params == nil {
		params = IRObject{}
	}
	obj := IRObject{
		"fragments": frags,
		"params":    params,
		"returns":   IRString(returns),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StatementFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// GraphFingerprint computes the content address of a query graph from its
// textual dump.
func GraphFingerprint(dump string) string {
	return hashWithDomain(DomainGraph, []byte(dump))
}

// MustStatementFingerprint is like StatementFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStatementFingerprint(fragments []string, params IRObject, returns string) string {
	fp, err := StatementFingerprint(fragments, params, returns)
	if err != nil {
		panic(err)
	}
	return fp
}
