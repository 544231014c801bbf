package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Header names carried alongside signed payloads.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Signature-Timestamp"
	HeaderDelivery  = "X-Delivery-ID"
)

// Signature is the authenticity proof attached to a payload.
type Signature struct {
	Digest     string
	Timestamp  int64
	DeliveryID string
}

// Apply sets the signature headers on an outbound request.
func (s Signature) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Digest)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	if s.DeliveryID != "" {
		h.Set(HeaderDelivery, s.DeliveryID)
	}
}

// FromHeader extracts signature data from inbound request headers.
// The delivery id is optional; digest and timestamp are not.
func FromHeader(h http.Header) (Signature, error) {
	sig := Signature{
		Digest:     h.Get(HeaderSignature),
		DeliveryID: h.Get(HeaderDelivery),
	}
	if sig.Digest == "" {
		return Signature{}, ErrMissingSignature
	}
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: invalid timestamp", ErrMissingSignature)
	}
	sig.Timestamp = ts
	return sig, nil
}

// Sign computes the HMAC-SHA256 digest of timestamp + "." + payload.
// The deliveryID is carried verbatim so receivers can deduplicate.
func Sign(secret string, payload []byte, deliveryID string) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	if len(payload) == 0 {
		return Signature{}, ErrEmptyPayload
	}

	ts := time.Now().Unix()
	return Signature{
		Digest:     digest(secret, ts, payload),
		Timestamp:  ts,
		DeliveryID: deliveryID,
	}, nil
}

// Verify checks payload authenticity and freshness.
// A maxAge of zero disables the freshness check. Comparison is
// constant-time; a small negative skew is tolerated for clock drift.
func Verify(secret string, payload []byte, sig Signature, maxAge time.Duration) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if sig.Digest == "" {
		return ErrMissingSignature
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(sig.Timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: %v old", ErrSignatureExpired, age)
		}
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp in the future", ErrSignatureExpired)
		}
	}

	if !hmac.Equal([]byte(digest(secret, sig.Timestamp, payload)), []byte(sig.Digest)) {
		return ErrSignatureMismatch
	}
	return nil
}

func digest(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
