package idempotency

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Scope namespaces the digests so a request key can never equal a body fingerprint
type Scope string

const (
	ScopeRequest     Scope = "request"
	ScopeRequestBody Scope = "request_body"
)

// Generator derives cache keys for idempotent requests
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// RequestKey identifies a client supplied idempotency key within a tenant and route
func (g *Generator) RequestKey(tenantID, route, clientKey string) string {
	return digest(ScopeRequest, []byte(tenantID), []byte(route), []byte(clientKey))
}

// Fingerprint identifies the exact request a key was first used with
func (g *Generator) Fingerprint(tenantID, route string, body []byte) string {
	return digest(ScopeRequestBody, []byte(tenantID), []byte(route), body)
}

// digest hashes length prefixed parts, so ("ab", "c") and ("a", "bc") differ
func digest(scope Scope, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(scope))
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	return string(scope) + "-" + hex.EncodeToString(h.Sum(nil)[:16])
}
