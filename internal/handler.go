package internal

// Middleware hooks into every HTTP request.
//
// BeforeRequest runs before dispatch. Returning a non-nil Response or error
// short-circuits the request; the handler is not called. AfterRequest runs
// on the final response and may mutate its status, body and headers.
//
// Example:
//
//	type auth struct{}
//
//	func (auth) BeforeRequest(r *pie.Request) (*pie.Response, error) {
//	    if r.Header("Authorization") == "" {
//	        return pie.Redirect("/login"), nil
//	    }
//	    return nil, nil
//	}
//
//	func (auth) AfterRequest(*pie.Request, *pie.Response) error { return nil }
type Middleware interface {
	BeforeRequest(r *Request) (*Response, error)
	AfterRequest(r *Request, resp *Response) error
}

// WSMiddleware hooks into WebSocket connections. An error from
// BeforeWebSocket rejects the handshake with 403, or with the status of an
// *HTTPError. AfterWebSocket runs once the handler returned.
type WSMiddleware interface {
	BeforeWebSocket(r *Request) error
	AfterWebSocket(r *Request)
}

// BeforeFunc adapts a function to a Middleware with a no-op after hook.
type BeforeFunc func(r *Request) (*Response, error)

func (f BeforeFunc) BeforeRequest(r *Request) (*Response, error) { return f(r) }
func (f BeforeFunc) AfterRequest(*Request, *Response) error      { return nil }

// AfterFunc adapts a function to a Middleware with a no-op before hook.
type AfterFunc func(r *Request, resp *Response) error

func (f AfterFunc) BeforeRequest(*Request) (*Response, error)     { return nil, nil }
func (f AfterFunc) AfterRequest(r *Request, resp *Response) error { return f(r, resp) }

// ErrorHandler renders an error response. The default writes
// "<code> <status text>[: <message>]".
type ErrorHandler func(r *Request, err *HTTPError) *Response
