package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
)

const (
	contentTypeHTML   = "text/html; charset=utf-8"
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// Component renders HTML to a writer. templ components satisfy it.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

// chunkStream yields body chunks; a non-nil error aborts the stream.
type chunkStream = iter.Seq2[[]byte, error]

// prepared is a response body ready to be written.
type prepared struct {
	stream      chunkStream
	contentType string
	body        []byte
}

// prepareBody normalizes a body value. Errors happen before anything is
// written, so they still become regular error responses.
func prepareBody(ctx context.Context, body any) (*prepared, error) {
	switch v := body.(type) {
	case nil:
		return &prepared{contentType: contentTypeHTML}, nil
	case string:
		return &prepared{contentType: contentTypeHTML, body: []byte(v)}, nil
	case []byte:
		return &prepared{contentType: http.DetectContentType(v), body: v}, nil
	case Component:
		var buf bytes.Buffer
		if err := v.Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("render component: %w", err)
		}
		return &prepared{contentType: contentTypeHTML, body: buf.Bytes()}, nil
	case *Response, Response:
		return nil, errors.New("nested Response body")
	}

	if stream, contentType, ok := asStream(body); ok {
		return &prepared{contentType: contentType, stream: stream}, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return &prepared{contentType: contentTypeJSON, body: data}, nil
}

// asStream recognizes the lazy body shapes.
func asStream(body any) (chunkStream, string, bool) {
	switch v := body.(type) {
	case iter.Seq[string]:
		return seqStream(v), contentTypeHTML, true
	case func(func(string) bool):
		return seqStream(v), contentTypeHTML, true
	case iter.Seq[[]byte]:
		return seqStream(v), contentTypeBinary, true
	case func(func([]byte) bool):
		return seqStream(v), contentTypeBinary, true
	case iter.Seq2[string, error]:
		return seq2Stream(v), contentTypeHTML, true
	case func(func(string, error) bool):
		return seq2Stream(v), contentTypeHTML, true
	case iter.Seq2[[]byte, error]:
		return seq2Stream(v), contentTypeBinary, true
	case func(func([]byte, error) bool):
		return seq2Stream(v), contentTypeBinary, true
	case <-chan string:
		return chanStream(v), contentTypeHTML, true
	case chan string:
		return chanStream((<-chan string)(v)), contentTypeHTML, true
	case <-chan []byte:
		return chanStream(v), contentTypeBinary, true
	case chan []byte:
		return chanStream((<-chan []byte)(v)), contentTypeBinary, true
	case io.Reader:
		return readerStream(v), contentTypeBinary, true
	}
	return nil, "", false
}

func seqStream[T string | []byte](seq func(func(T) bool)) chunkStream {
	return func(yield func([]byte, error) bool) {
		for chunk := range seq {
			if !yield([]byte(chunk), nil) {
				return
			}
		}
	}
}

func seq2Stream[T string | []byte](seq func(func(T, error) bool)) chunkStream {
	return func(yield func([]byte, error) bool) {
		for chunk, err := range seq {
			if !yield([]byte(chunk), err) || err != nil {
				return
			}
		}
	}
}

func chanStream[T string | []byte](ch <-chan T) chunkStream {
	return func(yield func([]byte, error) bool) {
		for chunk := range ch {
			if !yield([]byte(chunk), nil) {
				return
			}
		}
	}
}

func readerStream(r io.Reader) chunkStream {
	return func(yield func([]byte, error) bool) {
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}
		buf := make([]byte, uploadChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// writeHeaders applies the default content type and the response headers.
// Content-Type replaces the default; other headers are appended. Headers
// with CR or LF are dropped.
func (a *App) writeHeaders(ctx context.Context, w http.ResponseWriter, contentType string, headers []Header) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	for _, hdr := range headers {
		if hdr.Name == "" || strings.ContainsAny(hdr.Name, "\r\n") || strings.ContainsAny(hdr.Value, "\r\n") {
			a.logger.WarnContext(ctx, "header injection attempt dropped", slog.String("header", hdr.Name))
			continue
		}
		if http.CanonicalHeaderKey(hdr.Name) == "Content-Type" {
			h.Set(hdr.Name, hdr.Value)
			continue
		}
		h.Add(hdr.Name, hdr.Value)
	}
}

// emit writes resp. Buffered bodies are written at once; streams are
// flushed chunk by chunk until exhausted or the client goes away. A stream
// fault after the status is committed aborts the connection.
func (a *App) emit(w *ResponseWriter, req *Request, resp *Response) {
	body, err := a.prepare(req, resp.Body)
	if err != nil {
		resp = a.errorResponse(req, err)
		body, err = a.prepare(req, resp.Body)
		if err != nil {
			body = &prepared{contentType: contentTypeHTML, body: []byte(ErrInternal("").Body())}
		}
	}

	a.writeHeaders(req, w, body.contentType, resp.Headers)
	w.WriteHeader(resp.Status)

	if body.stream == nil {
		if len(body.body) > 0 {
			_, _ = w.Write(body.body)
		}
		return
	}

	defer a.recoverStream(req)
	w.Flush()
	for chunk, err := range body.stream {
		if err != nil {
			a.streamFault(req, err)
		}
		if req.Err() != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}
		if _, err := w.Write(chunk); err != nil {
			a.logger.DebugContext(req, "client gone during stream", slog.Any("error", err))
			return
		}
		w.Flush()
	}
}

// prepare is prepareBody with panics in components and marshalers turned
// into internal faults. Nothing has been written yet at this point.
func (a *App) prepare(req *Request, body any) (p *prepared, err error) {
	defer a.recoverFault(req, &err)
	return prepareBody(req, body)
}

// recoverStream handles a panic raised by a stream after the status was sent.
func (a *App) recoverStream(req *Request) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	a.streamFault(req, fmt.Errorf("panic: %v", rec))
}

// streamFault logs a failure in a committed response and aborts the
// connection so the client cannot mistake the body for a complete one.
func (a *App) streamFault(ctx context.Context, err error) {
	a.logger.ErrorContext(ctx, "stream aborted", slog.Any("error", &StreamError{Err: err}))
	panic(http.ErrAbortHandler)
}
