// Package webhook verifies and decodes HubSpot webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Header names set by HubSpot on signed requests.
const (
	HeaderSignatureV3 = "X-HubSpot-Signature-v3"
	HeaderSignatureV1 = "X-HubSpot-Signature"
	HeaderTimestamp   = "X-HubSpot-Request-Timestamp"
)

// DefaultMaxAge is how old a v3 timestamp may be before it is rejected.
const DefaultMaxAge = 5 * time.Minute

var (
	ErrInvalidSignature = eris.New("webhook: invalid signature")
	ErrStaleTimestamp   = eris.New("webhook: stale timestamp")
)

// Verifier checks request signatures with the app's client secret.
type Verifier struct {
	secret  string
	baseURL string
	maxAge  time.Duration
	now     func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier. baseURL is the public scheme and host the
// webhook is registered under; v3 signatures cover the full request URI.
func NewVerifier(secret, baseURL string, opts ...Option) *Verifier {
	v := &Verifier{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature of r against body. A v3 signature is
// preferred; v1 is accepted when no v3 header is present.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	if sig := r.Header.Get(HeaderSignatureV3); sig != "" {
		return v.verifyV3(r, body, sig)
	}
	if sig := r.Header.Get(HeaderSignatureV1); sig != "" {
		if !equal(sig, SignV1(v.secret, body)) {
			return ErrInvalidSignature
		}
		return nil
	}
	return ErrInvalidSignature
}

func (v *Verifier) verifyV3(r *http.Request, body []byte, sig string) error {
	ts := r.Header.Get(HeaderTimestamp)
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	sent := time.UnixMilli(ms)
	if age := v.now().Sub(sent); age > v.maxAge || age < -v.maxAge {
		return ErrStaleTimestamp
	}

	uri := v.baseURL + r.URL.RequestURI()
	if !equal(sig, SignV3(v.secret, r.Method, uri, body, ts)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignV3 computes a v3 signature.
func SignV3(secret, method, uri string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(uri))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignV1 computes a v1 signature.
func SignV1(secret string, body []byte) string {
	sum := sha256.Sum256(append([]byte(secret), body...))
	return hex.EncodeToString(sum[:])
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Event is one entry of a webhook delivery.
type Event struct {
	EventID          int64  `json:"eventId"`
	SubscriptionID   int64  `json:"subscriptionId"`
	PortalID         int64  `json:"portalId"`
	AppID            int64  `json:"appId"`
	OccurredAt       int64  `json:"occurredAt"`
	SubscriptionType string `json:"subscriptionType"`
	AttemptNumber    int    `json:"attemptNumber"`
	ObjectID         int64  `json:"objectId"`
	PropertyName     string `json:"propertyName,omitempty"`
	PropertyValue    string `json:"propertyValue,omitempty"`
	ChangeSource     string `json:"changeSource,omitempty"`
}

// Portal returns the event's portal id as a string.
func (e Event) Portal() string {
	return strconv.FormatInt(e.PortalID, 10)
}

// ParseEvents decodes a delivery body.
func ParseEvents(body []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, eris.Wrap(err, "webhook: decode events")
	}
	return events, nil
}

// Portals returns the distinct portal ids in events, in first-seen order.
func Portals(events []Event) []string {
	seen := make(map[int64]bool, len(events))
	var out []string
	for _, e := range events {
		if e.PortalID == 0 || seen[e.PortalID] {
			continue
		}
		seen[e.PortalID] = true
		out = append(out, e.Portal())
	}
	return out
}
