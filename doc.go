// Package pie is a small web toolkit that routes requests to the exported
// methods of a plain Go value.
//
// There is no route table. The first path segment names the handler, the
// remaining segments become its arguments, and query, body and session
// values fill named parameters.
//
// # Quick Start
//
//	type Site struct{}
//
//	func (Site) Index() string { return "hello" }
//
//	// GET /greet/ann -> "hi ann"
//	func (Site) Greet(name string) string { return "hi " + name }
//
//	func main() {
//	    app := pie.MustNew(&Site{})
//	    if err := app.Run(":8080"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Dispatch
//
// Method names map to snake_case routes: Index serves "/", ShowPost serves
// "/show_post". Paths whose first segment starts with "_" are never routed.
// Unknown names answer 404.
//
// # Arguments
//
// A handler may accept, in any order:
//
//   - *Request or context.Context for the request itself
//   - scalar arguments, filled from path segments in order
//   - a trailing ...string collecting the remaining segments
//   - one struct of named parameters
//
// Struct fields are looked up by their param tag (snake_case field name by
// default). Each takes the next unused path segment, else the first query
// value, else the first body value, else the client's existing session value,
// else its default tag. Required parameters that stay missing answer 400
// "Missing required parameter 'name'":
//
//	type SearchParams struct {
//	    Query string   `param:"q"`
//	    Page  int      `param:"page" default:"1"`
//	    Tags  []string `param:"tag"`
//	    Sort  *string  `param:"sort"`
//	}
//
//	func (Site) Search(p SearchParams) ([]Result, error)
//
// Multipart files bind to *FileUpload fields and stream in chunks; they are
// never buffered whole.
//
// # Results
//
// Strings are sent as HTML, byte slices with a sniffed content type, templ
// components rendered, *Response values with their status and headers,
// iterators, channels and readers streamed, and anything else as JSON.
// A returned error becomes an error response: an *HTTPError keeps its status,
// anything else is a logged 500.
//
// # Middleware
//
// Middleware has before and after hooks. A before hook may answer the request
// itself or pick the handler explicitly with Request.Route; after hooks may
// rewrite the final response.
//
// # Sessions
//
// Request.Session loads the client's session or starts a new one. New
// sessions are saved and their cookie set when the handler returns. Sessions
// expire after 8 hours without use.
//
// # WebSockets
//
// Methods named WS<Name> serve WebSocket handshakes on "/<name>". They take a
// *WebSocket, call Accept, then exchange messages until the peer closes.
package pie
