package middlewares

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/session"
)

const csrfSessionKey = "_csrf"

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	HeaderName     string   // Request and response header carrying the token
	FieldName      string   // Form field carrying the token
	TrustedOrigins []string // scheme://host values accepted in Origin or Referer; empty allows any
	ExemptPaths    []string // Paths never checked, e.g. webhooks
}

// CSRFOption configures CSRFConfig.
type CSRFOption func(*CSRFConfig)

// WithCSRFHeader sets the token header name.
func WithCSRFHeader(name string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.HeaderName = name
	}
}

// WithCSRFField sets the form field name.
func WithCSRFField(name string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.FieldName = name
	}
}

// WithTrustedOrigins restricts unsafe requests to the listed origins.
func WithTrustedOrigins(origins ...string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.TrustedOrigins = origins
	}
}

// WithCSRFExemptPaths disables the check for the given paths.
func WithCSRFExemptPaths(paths ...string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.ExemptPaths = paths
	}
}

type csrf struct {
	cfg CSRFConfig
}

type csrfIssuedKey struct{}

// CSRF returns middleware that rejects POST, PUT, PATCH and DELETE requests
// unless they carry the token stored in the client's session. The token is
// sent in the header or, for urlencoded forms, the form field. Multipart
// requests must use the header so the upload stream is not consumed early.
//
// Handlers obtain the token with CSRFToken. A freshly issued token is also
// echoed in the response header.
func CSRF(opts ...CSRFOption) internal.Middleware {
	cfg := CSRFConfig{
		HeaderName: "X-CSRF-Token",
		FieldName:  "csrf_token",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &csrf{cfg: cfg}
}

func (m *csrf) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	switch r.Method() {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, nil
	}
	if slices.Contains(m.cfg.ExemptPaths, r.Path()) {
		return nil, nil
	}
	if !m.originTrusted(r) {
		return nil, internal.ErrForbidden("untrusted origin")
	}

	sent := r.Header(m.cfg.HeaderName)
	if sent == "" && !strings.HasPrefix(r.Header("Content-Type"), "multipart/") {
		sent = r.BodyValue(m.cfg.FieldName)
	}
	if sent == "" {
		return nil, internal.ErrForbidden("missing CSRF token")
	}

	sess, err := r.Session()
	if err != nil {
		return nil, err
	}
	want, _ := session.Value[string](sess, csrfSessionKey)
	if want == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(want)) != 1 {
		return nil, internal.ErrForbidden("invalid CSRF token")
	}
	return nil, nil
}

func (m *csrf) AfterRequest(r *internal.Request, resp *internal.Response) error {
	if token, ok := r.Get(csrfIssuedKey{}).(string); ok {
		resp.SetHeader(m.cfg.HeaderName, token)
	}
	return nil
}

func (m *csrf) originTrusted(r *internal.Request) bool {
	if len(m.cfg.TrustedOrigins) == 0 {
		return true
	}
	for _, h := range []string{r.Header("Origin"), r.Header("Referer")} {
		if h == "" {
			continue
		}
		u, err := url.Parse(h)
		if err != nil {
			continue
		}
		if slices.Contains(m.cfg.TrustedOrigins, u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

// CSRFToken returns the session's CSRF token, issuing one if needed. Use it
// to fill forms and client-side request headers.
func CSRFToken(r *internal.Request) (string, error) {
	sess, err := r.Session()
	if err != nil {
		return "", err
	}
	if token, ok := session.Value[string](sess, csrfSessionKey); ok && token != "" {
		return token, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	sess.Set(csrfSessionKey, token)
	r.Set(csrfIssuedKey{}, token)
	return token, nil
}
