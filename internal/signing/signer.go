package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clapper/internal/services"
)

// PrivatePrefix marks storage references that require a signed URL.
const PrivatePrefix = "private:"

// NeedsSigning reports whether a storage reference requires signing before
// it can be fetched. References without the prefix are already public and
// must be used verbatim.
func NeedsSigning(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), PrivatePrefix)
}

// Signer produces time-bound CDN URLs for private storage references.
//
// The signature covers the resource path and the expiry bound, so a leaked
// URL only grants access until it expires. Signed URLs are ephemeral: one is
// generated per probe invocation and never cached or reused across jobs.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// New constructs a Signer. An empty secret is a configuration error; callers
// must fail at startup rather than per job.
func New(baseURL, secret string, ttl time.Duration) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "signing", "new", "signing secret must not be empty", nil)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "signing", "new", "CDN base URL must not be empty", nil)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Sign converts a private storage reference into a fully-qualified CDN URL
// carrying an expiry and an HMAC-SHA256 token over "<path>|<expiry>".
func (s *Signer) Sign(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, PrivatePrefix) {
		return "", fmt.Errorf("sign: reference %q lacks %q prefix", ref, PrivatePrefix)
	}
	path := strings.TrimPrefix(trimmed, PrivatePrefix)
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errors.New("sign: empty path after prefix")
	}

	expires := s.now().Add(s.ttl).Unix()
	token := s.token(path, expires)

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("token", token)
	return fmt.Sprintf("%s/%s?%s", s.baseURL, path, query.Encode()), nil
}

// Verify checks a token produced by Sign against the path and expiry, and
// rejects expired bounds. Exposed for tests and for any edge service that
// shares the secret.
func (s *Signer) Verify(path, token string, expires int64) bool {
	if expires < s.now().Unix() {
		return false
	}
	expected := s.token(strings.TrimLeft(path, "/"), expires)
	return hmac.Equal([]byte(expected), []byte(token))
}

func (s *Signer) token(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
