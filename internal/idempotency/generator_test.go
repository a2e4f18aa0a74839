package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestKey(t *testing.T) {
	g := NewGenerator()

	key := g.RequestKey("t1", "/v1/payments", "k1")
	assert.Equal(t, key, g.RequestKey("t1", "/v1/payments", "k1"))
	assert.Contains(t, key, "request-")

	assert.NotEqual(t, key, g.RequestKey("t2", "/v1/payments", "k1"))
	assert.NotEqual(t, key, g.RequestKey("t1", "/v1/invoices", "k1"))
	assert.NotEqual(t, key, g.RequestKey("t1", "/v1/payments", "k2"))

	// part boundaries are part of the digest
	assert.NotEqual(t, g.RequestKey("ab", "c", "k"), g.RequestKey("a", "bc", "k"))
}

func TestFingerprint(t *testing.T) {
	g := NewGenerator()

	body := []byte(`{"amount":"10"}`)
	fp := g.Fingerprint("t1", "/v1/payments", body)
	assert.Equal(t, fp, g.Fingerprint("t1", "/v1/payments", []byte(`{"amount":"10"}`)))
	assert.NotEqual(t, fp, g.Fingerprint("t1", "/v1/payments", []byte(`{"amount":"20"}`)))
	assert.Contains(t, fp, "request_body-")
}
