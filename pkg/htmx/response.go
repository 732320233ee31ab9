package htmx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrymomot/pie/internal"
)

// Option adjusts an HTMX response.
type Option func(*internal.Response)

// Respond returns a 200 response with body and the given HTMX headers.
func Respond(body any, opts ...Option) *internal.Response {
	return Apply(internal.Reply(http.StatusOK, body), opts...)
}

// Apply sets HTMX headers on resp and returns it.
func Apply(resp *internal.Response, opts ...Option) *internal.Response {
	for _, opt := range opts {
		opt(resp)
	}
	return resp
}

// WithRetarget sets the HX-Retarget header to change the target element.
func WithRetarget(selector string) Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXRetarget, selector) }
}

// WithReswap sets the HX-Reswap header to change the swap strategy.
func WithReswap(strategy SwapStrategy) Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXReswap, string(strategy)) }
}

// WithReselect sets the HX-Reselect header to select a subset of the response.
func WithReselect(selector string) Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXReselect, selector) }
}

// WithPushURL sets the HX-Push-Url header. Pass "false" to prevent the
// history update.
func WithPushURL(url string) Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXPushURL, url) }
}

// WithReplaceURL sets the HX-Replace-Url header.
func WithReplaceURL(url string) Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXReplaceURL, url) }
}

// WithTrigger adds client-side events to HX-Trigger.
func WithTrigger(events ...string) Option {
	return func(r *internal.Response) { appendList(r, HeaderHXTrigger, events) }
}

// WithTriggerAfterSwap adds events to HX-Trigger-After-Swap.
func WithTriggerAfterSwap(events ...string) Option {
	return func(r *internal.Response) { appendList(r, HeaderHXTriggerAfterSwap, events) }
}

// WithTriggerAfterSettle adds events to HX-Trigger-After-Settle.
func WithTriggerAfterSettle(events ...string) Option {
	return func(r *internal.Response) { appendList(r, HeaderHXTriggerAfterSettle, events) }
}

// WithRefresh sets the HX-Refresh header to force a full page refresh.
func WithRefresh() Option {
	return func(r *internal.Response) { r.SetHeader(HeaderHXRefresh, "true") }
}

// WithOOB renders out-of-band components after the response body. The
// components must carry id and hx-swap-oob attributes. The body must be a
// component, a string or a byte slice.
func WithOOB(components ...internal.Component) Option {
	return func(r *internal.Response) {
		if p, ok := r.Body.(*partial); ok {
			p.oob = append(p.oob, components...)
			return
		}
		r.Body = &partial{main: r.Body, oob: components}
	}
}

func appendList(r *internal.Response, name string, values []string) {
	if len(values) == 0 {
		return
	}
	if prev := r.Header(name); prev != "" {
		values = append([]string{prev}, values...)
	}
	r.SetHeader(name, strings.Join(values, ", "))
}

type partial struct {
	main any
	oob  []internal.Component
}

func (p *partial) Render(ctx context.Context, w io.Writer) error {
	var err error
	switch v := p.main.(type) {
	case nil:
	case internal.Component:
		err = v.Render(ctx, w)
	case string:
		_, err = io.WriteString(w, v)
	case []byte:
		_, err = w.Write(v)
	default:
		err = fmt.Errorf("htmx: cannot combine %T with out-of-band components", p.main)
	}
	if err != nil {
		return err
	}
	for _, c := range p.oob {
		if err := c.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}
