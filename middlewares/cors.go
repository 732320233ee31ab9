package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/pie/internal"
)

// DefaultCORSMaxAge is the default preflight cache duration.
const DefaultCORSMaxAge = 12 * time.Hour

// DefaultCORSConfig holds the defaults CORS starts from.
var DefaultCORSConfig = CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	MaxAge:       DefaultCORSMaxAge,
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a static list of allowed origins.
	// Use "*" to allow all origins (not recommended with credentials).
	AllowOrigins []string

	// AllowOriginFunc is a dynamic origin validator.
	// When set, it completely overrides AllowOrigins for that request.
	// Return true if the origin should be allowed.
	AllowOriginFunc func(origin string) bool

	// AllowMethods specifies the allowed HTTP methods.
	AllowMethods []string

	// AllowHeaders specifies the allowed request headers.
	AllowHeaders []string

	// ExposeHeaders specifies headers exposed to the client.
	ExposeHeaders []string

	// AllowCredentials indicates whether credentials (cookies, authorization headers) are allowed.
	// When true, the actual origin is echoed instead of "*".
	AllowCredentials bool

	// MaxAge specifies how long preflight responses can be cached.
	MaxAge time.Duration
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

// WithAllowOrigins sets the allowed origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOrigins = origins
	}
}

// WithAllowOriginFunc sets a dynamic origin validator.
// When set, it completely overrides AllowOrigins.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOriginFunc = fn
	}
}

// WithAllowMethods sets the allowed HTTP methods.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowMethods = methods
	}
}

// WithAllowHeaders sets the allowed request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowHeaders = headers
	}
}

// WithExposeHeaders sets the headers exposed to the client.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.ExposeHeaders = headers
	}
}

// WithAllowCredentials enables credentials support.
// When enabled, Access-Control-Allow-Origin echoes the actual origin instead of "*".
func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowCredentials = true
	}
}

// WithMaxAge sets the preflight cache duration.
func WithMaxAge(duration time.Duration) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.MaxAge = duration
	}
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// Preflight (OPTIONS) requests are answered with 204 before dispatch; every
// other response from an allowed origin gets the CORS headers after the
// handler runs, including error responses.
func CORS(opts ...CORSOption) internal.Middleware {
	cfg := &CORSConfig{
		AllowOrigins: DefaultCORSConfig.AllowOrigins,
		AllowMethods: DefaultCORSConfig.AllowMethods,
		AllowHeaders: DefaultCORSConfig.AllowHeaders,
		MaxAge:       DefaultCORSConfig.MaxAge,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &cors{
		cfg:           cfg,
		allowMethods:  strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:  strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
		maxAge:        strconv.Itoa(int(cfg.MaxAge.Seconds())),
		hasWildcard:   slices.Contains(cfg.AllowOrigins, "*"),
	}
}

type cors struct {
	cfg           *CORSConfig
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
	hasWildcard   bool
}

func (m *cors) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	if r.Method() != http.MethodOptions {
		return nil, nil
	}
	origin := r.Header("Origin")
	if origin == "" || !isOriginAllowed(origin, m.cfg, m.hasWildcard) {
		return nil, nil
	}

	// Headers are added by the after hook, which also runs for short-circuits.
	resp := internal.Reply(http.StatusNoContent, nil,
		internal.Header{Name: "Vary", Value: "Access-Control-Request-Method"},
		internal.Header{Name: "Vary", Value: "Access-Control-Request-Headers"},
		internal.Header{Name: "Access-Control-Allow-Methods", Value: m.allowMethods},
		internal.Header{Name: "Access-Control-Allow-Headers", Value: m.allowHeaders},
	)
	if m.cfg.MaxAge > 0 {
		resp.SetHeader("Access-Control-Max-Age", m.maxAge)
	}
	return resp, nil
}

func (m *cors) AfterRequest(r *internal.Request, resp *internal.Response) error {
	origin := r.Header("Origin")
	if origin == "" || !isOriginAllowed(origin, m.cfg, m.hasWildcard) {
		return nil
	}

	resp.AddHeader("Vary", "Origin")

	// Echo the actual origin when credentials are enabled or origins are listed
	if m.cfg.AllowCredentials || !m.hasWildcard {
		resp.SetHeader("Access-Control-Allow-Origin", origin)
	} else {
		resp.SetHeader("Access-Control-Allow-Origin", "*")
	}
	if m.cfg.AllowCredentials {
		resp.SetHeader("Access-Control-Allow-Credentials", "true")
	}
	if m.exposeHeaders != "" {
		resp.SetHeader("Access-Control-Expose-Headers", m.exposeHeaders)
	}
	return nil
}

// isOriginAllowed checks if the given origin is allowed based on configuration.
func isOriginAllowed(origin string, cfg *CORSConfig, hasWildcard bool) bool {
	// AllowOriginFunc completely overrides AllowOrigins when set
	if cfg.AllowOriginFunc != nil {
		return cfg.AllowOriginFunc(origin)
	}

	// Wildcard allows all
	if hasWildcard {
		return true
	}

	// Check static list
	return slices.Contains(cfg.AllowOrigins, origin)
}
