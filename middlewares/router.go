package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/pie/internal"
)

// Router maps explicit URL patterns to handler names, for URLs that do not
// follow the /name/param convention. Patterns use chi syntax:
//
//	rt := middlewares.NewRouter().
//		Get("/api/users/{user}/records/{record}", "get_record").
//		Post("/api/users/{user}/records", "create_record")
//	app := pie.MustNew(&Site{}, pie.WithMiddleware(rt))
//
// Matched placeholders become the handler's path parameters, in pattern
// order. Requests that match no pattern fall through to convention dispatch.
type Router struct {
	mux   *chi.Mux
	names map[string]string
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{mux: chi.NewMux(), names: make(map[string]string)}
}

// Handle routes method and pattern to the named handler. An empty method
// matches any method not registered explicitly for the pattern.
func (rt *Router) Handle(method, pattern, name string) *Router {
	if method == "" {
		rt.mux.HandleFunc(pattern, http.NotFound)
		rt.names[routeKey("*", pattern)] = name
		return rt
	}
	rt.mux.MethodFunc(method, pattern, http.NotFound)
	rt.names[routeKey(method, pattern)] = name
	return rt
}

func (rt *Router) Get(pattern, name string) *Router    { return rt.Handle(http.MethodGet, pattern, name) }
func (rt *Router) Post(pattern, name string) *Router   { return rt.Handle(http.MethodPost, pattern, name) }
func (rt *Router) Put(pattern, name string) *Router    { return rt.Handle(http.MethodPut, pattern, name) }
func (rt *Router) Patch(pattern, name string) *Router  { return rt.Handle(http.MethodPatch, pattern, name) }
func (rt *Router) Delete(pattern, name string) *Router { return rt.Handle(http.MethodDelete, pattern, name) }

func (rt *Router) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	rctx := chi.NewRouteContext()
	if !rt.mux.Match(rctx, r.Method(), r.Path()) {
		return nil, nil
	}
	pattern := rctx.RoutePattern()
	name, ok := rt.names[routeKey(r.Method(), pattern)]
	if !ok {
		name, ok = rt.names[routeKey("*", pattern)]
	}
	if ok {
		r.Route(name, rctx.URLParams.Values...)
	}
	return nil, nil
}

func (rt *Router) AfterRequest(*internal.Request, *internal.Response) error { return nil }

func routeKey(method, pattern string) string {
	return method + " " + pattern
}
