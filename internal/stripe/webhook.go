package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how old a signed webhook payload may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("stripe: webhook signature verification failed")
	ErrTimestampTooOld  = errors.New("stripe: webhook timestamp outside tolerance")
)

// Event is the envelope Stripe posts to the webhook endpoint.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent verifies the Stripe-Signature header against the payload and
// secret, then parses the event. The signature scheme is
// "t=<unix>,v1=<hex hmac-sha256 of `t.payload`>"; multiple v1 entries may be
// present during secret rotation and any match accepts.
func ConstructEvent(payload []byte, sigHeader, secret string) (Event, error) {
	return constructEventAt(payload, sigHeader, secret, time.Now(), DefaultTolerance)
}

func constructEventAt(payload []byte, sigHeader, secret string, now time.Time, tolerance time.Duration) (Event, error) {
	if sigHeader == "" {
		return Event{}, ErrInvalidSignature
	}

	var ts int64 = -1
	var sigs [][]byte
	for _, part := range strings.Split(sigHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Event{}, ErrInvalidSignature
			}
			ts = n
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return Event{}, ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return Event{}, ErrTimestampTooOld
		}
	}

	expected := ComputeSignature(secret, ts, payload)
	ok := false
	for _, sig := range sigs {
		if hmac.Equal(sig, expected) {
			ok = true
			break
		}
	}
	if !ok {
		return Event{}, ErrInvalidSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("stripe: parse webhook payload: %w", err)
	}
	return ev, nil
}

// ComputeSignature returns the v1 signature for a timestamped payload.
// Exported for the mockwebhook tool and tests.
func ComputeSignature(secret string, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeader renders a Stripe-Signature header value for payload signed
// at ts.
func SignatureHeader(secret string, ts int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(ComputeSignature(secret, ts, payload)))
}
