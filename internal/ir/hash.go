package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainRequest = "storedq/request/v1"
	DomainField   = "storedq/field/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical encoding of obj under domain.
func Fingerprint(domain string, obj Object) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RequestFingerprint identifies a stored-query request independent of
// pagination: the same root, scope and fields always hash the same.
// fields must already be in request order.
func RequestFingerprint(rootTableID int, scope int64, fields List) (string, error) {
	return Fingerprint(DomainRequest, Object{
		"root":   Int(rootTableID),
		"scope":  Int(scope),
		"fields": fields,
	})
}
