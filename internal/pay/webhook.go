package pay

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

// Webhook event types the ingestor acts on. Everything else is acknowledged
// and dropped.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
	EventPaymentSucceeded    = "invoice.payment_succeeded"
)

var (
	ErrBadSignatureHeader = errors.New("pay: malformed signature header")
	ErrSignatureMismatch  = errors.New("pay: webhook signature mismatch")
	ErrSignatureExpired   = errors.New("pay: webhook timestamp outside tolerance")
)

// DefaultTolerance bounds how old a signed webhook may be.
const DefaultTolerance = 5 * time.Minute

// Event is a provider webhook envelope. Data.Object is decoded per event
// type; unrecognized shapes are rejected rather than read loosely.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Invoice is the reduced invoice object carried by payment events.
type Invoice struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

// Subscription decodes the event payload as a subscription object and
// validates the fields every consumer depends on.
func (e *Event) Subscription() (Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(e.Data.Object, &sub); err != nil {
		return Subscription{}, fmt.Errorf("decode subscription object: %w", err)
	}
	if sub.ID == "" || sub.Status == "" {
		return Subscription{}, fmt.Errorf("subscription object missing id or status")
	}
	return sub, nil
}

// Invoice decodes the event payload as an invoice object.
func (e *Event) Invoice() (Invoice, error) {
	var inv Invoice
	if err := json.Unmarshal(e.Data.Object, &inv); err != nil {
		return Invoice{}, fmt.Errorf("decode invoice object: %w", err)
	}
	if inv.ID == "" {
		return Invoice{}, fmt.Errorf("invoice object missing id")
	}
	return inv, nil
}

// ConstructEvent verifies the provider signature header over the raw body and
// parses the envelope. The header carries a unix timestamp and one or more
// v1 signatures: "t=1700000000,v1=abcdef...". Each v1 value is HMAC-SHA256
// over "<t>.<body>" keyed with the endpoint secret.
func ConstructEvent(body []byte, header, secret string, tolerance time.Duration) (Event, error) {
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return Event{}, err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return Event{}, ErrSignatureExpired
		}
	}

	expected := signPayload(body, ts, secret)
	valid := false
	for _, sig := range sigs {
		sigBytes, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, sigBytes) {
			valid = true
		}
	}
	if !valid {
		return Event{}, ErrSignatureMismatch
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return Event{}, fmt.Errorf("event missing id or type")
	}
	return event, nil
}

// SignPayload produces a valid signature header for body at ts. Used by the
// provider simulator in tests.
func SignPayload(body []byte, ts int64, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(signPayload(body, ts, secret)))
}

func signPayload(body []byte, ts int64, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, ErrBadSignatureHeader
	}

	var ts int64 = -1
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrBadSignatureHeader
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, ErrBadSignatureHeader
	}
	return ts, sigs, nil
}
