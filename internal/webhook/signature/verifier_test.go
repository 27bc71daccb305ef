package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const body = `{"meta":{"event_name":"subscription_created"},"data":{"id":"1"}}`

func TestVerifyAcceptsRawBodyDigest(t *testing.T) {
	v := NewHMACVerifier("whsec", nil)
	assert.True(t, v.Verify(v.Sign([]byte(body)), []byte(body)))
}

func TestVerifyIsCaseInsensitiveOnHex(t *testing.T) {
	v := NewHMACVerifier("whsec", nil)
	sig := v.Sign([]byte(body))
	upper := []byte(sig)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 32
		}
	}
	assert.True(t, v.Verify(string(upper), []byte(body)))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewHMACVerifier("other", nil)
	v := NewHMACVerifier("whsec", nil)
	assert.False(t, v.Verify(signer.Sign([]byte(body)), []byte(body)))
}

func TestVerifyRejectsMissingSignatureOrSecret(t *testing.T) {
	v := NewHMACVerifier("whsec", nil)
	assert.False(t, v.Verify("", []byte(body)))

	noSecret := NewHMACVerifier("", nil)
	assert.False(t, noSecret.Verify(noSecret.Sign([]byte(body)), []byte(body)))
}

func TestVerifyAcceptsCompactedDocument(t *testing.T) {
	v := NewHMACVerifier("whsec", nil)
	pretty := "{\n  \"meta\": {\"event_name\": \"subscription_created\"},\n  \"data\": {\"id\": \"1\"}\n}"
	assert.True(t, v.Verify(v.Sign([]byte(body)), []byte(pretty)))
}

// Re-serialization keeps key order, so a digest over a reordered document
// still fails.
func TestVerifyRejectsReorderedKeys(t *testing.T) {
	v := NewHMACVerifier("whsec", nil)
	reordered := `{"data":{"id":"1"},"meta":{"event_name":"subscription_created"}}`
	assert.False(t, v.Verify(v.Sign([]byte(body)), []byte(reordered)))
}
