// Package internal provides the core types and implementation for pie.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/pie" instead, which re-exports the public API.
//
// # Request pipeline
//
// App.dispatch runs every request through the same steps:
//
//  1. Middleware before hooks, in registration order. A hook may answer the
//     request or select the route with Request.Route.
//  2. Route resolution: the explicit route, else the first path segment
//     ("index" for an empty path).
//  3. Body parsing, at most once per request. Multipart bodies are parsed
//     by a goroutine that streams file parts to their FileUpload.
//  4. Argument binding from path, query, body, session and defaults.
//  5. The handler call and conversion of its result to a Response.
//  6. Session persistence, which adds the cookie of a new session.
//  7. Middleware after hooks, on success and error responses alike.
//  8. Emission: buffered bodies are written at once, streams chunk by chunk.
//
// Panics in steps 1 to 7 are recovered and answered with 500. Failures
// after the status line was written abort the connection.
//
// # Registry
//
// Routes are built once in New by reflection over the target's exported
// methods plus the WithHandler registrations. Signatures are validated
// there, so dispatch never fails on an unsupported argument type.
package internal
