package internal

import (
	"net/http"
	"strings"
)

// Header is one response header. Headers keep their order and may repeat.
type Header struct {
	Name  string
	Value string
}

// Response is a handler result with an explicit status and headers. Body
// takes any value a handler may return directly.
type Response struct {
	Body    any
	Headers []Header
	Status  int
}

// Reply builds a Response.
func Reply(status int, body any, headers ...Header) *Response {
	return &Response{Status: status, Body: body, Headers: headers}
}

// Redirect builds a 302 response to location.
func Redirect(location string, headers ...Header) *Response {
	return &Response{
		Status:  http.StatusFound,
		Headers: append([]Header{{Name: "Location", Value: location}}, headers...),
	}
}

// Header returns the first value of the named header.
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SetHeader replaces every value of the named header.
func (r *Response) SetHeader(name, value string) {
	r.DelHeader(name)
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// AddHeader appends a header.
func (r *Response) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// DelHeader removes every value of the named header.
func (r *Response) DelHeader(name string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Name, name) {
			kept = append(kept, h)
		}
	}
	r.Headers = kept
}

// toResponse wraps a handler result in a Response.
func toResponse(result any) *Response {
	var resp *Response
	switch v := result.(type) {
	case *Response:
		if v == nil {
			resp = &Response{}
		} else {
			resp = v
		}
	case Response:
		resp = &v
	default:
		resp = &Response{Body: result}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	return resp
}
