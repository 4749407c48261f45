package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultReplayWindow bounds the accepted clock skew for signed requests.
const DefaultReplayWindow = 5 * time.Minute

// Header names for signed engine requests.
const (
	HeaderSignature = "X-Flowlet-Signature"
	HeaderTimestamp = "X-Flowlet-Timestamp"
)

// Sign returns the hex HMAC-SHA256 of "{timestamp}.{body}".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature produced by Sign. Engines use it to
// authenticate calls from the API.
func VerifySignature(secret, signature string, timestamp int64, body []byte, window time.Duration, now time.Time) error {
	if abs(now.Unix()-timestamp) > int64(window.Seconds()) {
		return ErrReplayWindow
	}
	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
