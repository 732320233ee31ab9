package htmx

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/pie/internal"
)

// LocationOptions represents the configuration for HX-Location header.
type LocationOptions struct {
	Path    string            `json:"path"`
	Source  string            `json:"source,omitempty"`
	Event   string            `json:"event,omitempty"`
	Handler string            `json:"handler,omitempty"`
	Target  string            `json:"target,omitempty"`
	Swap    string            `json:"swap,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Select  string            `json:"select,omitempty"`
}

// Location performs a client-side navigation with URL update and history
// entry. Regular requests get a 302.
func Location(r HeaderReader, path string) *internal.Response {
	return LocationWithOptions(r, LocationOptions{Path: path})
}

// LocationTarget is Location that swaps the result into target.
func LocationTarget(r HeaderReader, path, target string) *internal.Response {
	return LocationWithOptions(r, LocationOptions{Path: path, Target: target})
}

// LocationWithOptions performs a client-side navigation with full HTMX location options.
func LocationWithOptions(r HeaderReader, opts LocationOptions) *internal.Response {
	if !IsHTMX(r) {
		return internal.Redirect(opts.Path)
	}

	value := opts.Path
	if opts.Source != "" || opts.Event != "" || opts.Handler != "" || opts.Target != "" ||
		opts.Swap != "" || opts.Values != nil || opts.Headers != nil || opts.Select != "" {
		if data, err := json.Marshal(opts); err == nil {
			value = string(data)
		}
	}
	return internal.Reply(http.StatusOK, nil, internal.Header{Name: HeaderHXLocation, Value: value})
}
