package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/smallbiznis/familyhub/internal/config"
	"go.uber.org/zap"
)

type Verifier interface {
	Verify(signature string, payload []byte) bool
}

type HMACVerifier struct {
	secret []byte
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) Verifier {
	return NewHMACVerifier(cfg.Webhook.Secret, log)
}

func NewHMACVerifier(secret string, log *zap.Logger) *HMACVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &HMACVerifier{
		secret: []byte(strings.TrimSpace(secret)),
		log:    log.Named("webhook.signature"),
	}
}

// Verify reports whether signature is the hex HMAC-SHA256 of payload. The
// compact re-serialization of payload is accepted as well, since some
// senders sign the document after stripping whitespace.
func (v *HMACVerifier) Verify(signature string, payload []byte) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		v.log.Warn("webhook signature missing")
		return false
	}
	if len(v.secret) == 0 {
		v.log.Error("webhook secret not configured")
		return false
	}

	if v.matches(signature, payload) {
		return true
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err == nil && !bytes.Equal(compact.Bytes(), payload) {
		if v.matches(signature, compact.Bytes()) {
			return true
		}
	}

	v.log.Warn("webhook signature mismatch", zap.Int("payload_bytes", len(payload)))
	return false
}

// Sign returns the hex digest Verify expects for payload.
func (v *HMACVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *HMACVerifier) matches(signature string, payload []byte) bool {
	return hmac.Equal([]byte(signature), []byte(v.Sign(payload)))
}
