package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature expired")
)

const (
	// RequestWindow bounds the age of signatures on outbound pay URLs.
	RequestWindow = 10 * time.Minute
	// CallbackWindow bounds the age of gateway callback signatures. It is
	// deliberately tighter than RequestWindow; do not conflate the two.
	CallbackWindow = 5 * time.Minute
)

// Envelope carries everything a counterparty needs to verify a signed payload.
type Envelope struct {
	Nonce     string
	Timestamp int64
	Signature string
}

// Sign computes an HMAC-SHA256 envelope over payload plus a fresh nonce and
// the provided clock reading. The payload is not mutated.
func Sign(payload map[string]string, secret string, now time.Time) Envelope {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	ts := now.UTC().Unix()
	return Envelope{
		Nonce:     nonce,
		Timestamp: ts,
		Signature: Compute(payload, nonce, ts, secret),
	}
}

// Verify recomputes the signature for payload and compares it in constant
// time. The timestamp must be within window of now in either direction.
func Verify(payload map[string]string, nonce string, timestamp int64, signature, secret string, window time.Duration, now time.Time) error {
	drift := now.UTC().Unix() - timestamp
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > window {
		return ErrSignatureExpired
	}

	expected := Compute(payload, nonce, timestamp, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// Compute builds the canonical string for payload plus nonce and timestamp
// and returns its lowercase hex HMAC-SHA256. The "sign" key is always
// excluded from signing.
func Compute(payload map[string]string, nonce string, timestamp int64, secret string) string {
	fields := make(map[string]string, len(payload)+2)
	for k, v := range payload {
		if k == "sign" {
			continue
		}
		fields[k] = v
	}
	fields["nonce"] = nonce
	fields["timestamp"] = strconv.FormatInt(timestamp, 10)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
