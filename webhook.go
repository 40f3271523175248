package sessionkit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/halyard-auth/sessionkit/envelope"
)

// DefaultWebhookTolerance bounds how old a webhook signature timestamp may be
// before VerifyWebhook rejects it as a replay.
const DefaultWebhookTolerance = 3 * time.Minute

// VerifyWebhook checks the signature header of an inbound directory-service
// webhook against Config.WebhookSecret. The header format is
// "t=<unix-ms>, v1=<hex hmac-sha256 of "<t>.<payload>">". A non-positive
// tolerance means DefaultWebhookTolerance. Returns false when no webhook
// secret is configured; a caller that never set one has no business accepting
// webhooks.
func (e *Engine) VerifyWebhook(payload []byte, signatureHeader string, tolerance time.Duration) bool {
	if e == nil || e.config.WebhookSecret == "" {
		return false
	}
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}

	var ts, sig string
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			ts = part[2:]
		case strings.HasPrefix(part, "v1="):
			sig = part[3:]
		}
	}
	if ts == "" || sig == "" {
		return false
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := time.Since(time.UnixMilli(millis))
	if age < 0 || age > tolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(e.config.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return envelope.ConstantTimeCompare(expected, strings.ToLower(sig))
}
