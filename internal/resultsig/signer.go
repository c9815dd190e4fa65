package resultsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"emindy/internal/assessment"
)

// ErrInvalidResult is the single error returned for any rejected result.
var ErrInvalidResult = errors.New("invalid or missing result")

var signaturePattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Signer signs and verifies result links with a shared secret.
type Signer struct {
	secret  []byte
	baseURL *url.URL
}

// New creates a Signer. baseURL is the result page links point at.
func New(secret, baseURL string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("signing secret is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse result base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("result base url must be absolute: %q", baseURL)
	}
	return &Signer{secret: []byte(secret), baseURL: parsed}, nil
}

// Sign returns the lowercase hex signature for kind and score.
func (s *Signer) Sign(kind string, score int) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(kind + "|" + strconv.Itoa(score)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL validates the request and returns a signed link. Only the lower
// score bound is checked here; Verify enforces the full range.
func (s *Signer) SignedURL(kind string, score int) (string, error) {
	if _, ok := lookupExact(kind); !ok {
		return "", fmt.Errorf("unknown assessment type %q", kind)
	}
	if score < 0 {
		return "", fmt.Errorf("score must not be negative: %d", score)
	}

	link := *s.baseURL
	query := link.Query()
	query.Set("type", kind)
	query.Set("score", strconv.Itoa(score))
	query.Set("sig", s.Sign(kind, score))
	link.RawQuery = query.Encode()
	return link.String(), nil
}

// Verify checks raw query values and returns the scored result. The kind and
// score range are checked independently of the signature, and the signature
// must be 64 lowercase hex characters before it is compared.
func (s *Signer) Verify(kind, score, sig string) (assessment.Result, error) {
	def, ok := lookupExact(kind)
	if !ok {
		return assessment.Result{}, ErrInvalidResult
	}
	value, ok := parseScore(score)
	if !ok || value > def.MaxScore() {
		return assessment.Result{}, ErrInvalidResult
	}
	if !signaturePattern.MatchString(sig) {
		return assessment.Result{}, ErrInvalidResult
	}
	expected := s.Sign(kind, value)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return assessment.Result{}, ErrInvalidResult
	}
	result, err := def.Result(value)
	if err != nil {
		return assessment.Result{}, ErrInvalidResult
	}
	return result, nil
}

// VerifyQuery verifies the type, score, and sig parameters of a result URL.
func (s *Signer) VerifyQuery(values url.Values) (assessment.Result, error) {
	return s.Verify(values.Get("type"), values.Get("score"), values.Get("sig"))
}

// lookupExact accepts only the canonical lowercase kind names so that the
// signed message matches byte for byte.
func lookupExact(kind string) (assessment.Definition, bool) {
	def, ok := assessment.Lookup(kind)
	if !ok || string(def.Kind) != kind {
		return assessment.Definition{}, false
	}
	return def, true
}

// parseScore accepts plain non-negative decimals without signs or padding.
func parseScore(raw string) (int, bool) {
	if raw == "" || len(raw) > 3 {
		return 0, false
	}
	if raw != "0" && raw[0] == '0' {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
