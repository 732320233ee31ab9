package internal

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const defaultMaxBodySize int64 = 10 << 20

// parseQuery parses a query string, dropping blank values.
func parseQuery(raw string) url.Values {
	v, _ := url.ParseQuery(raw)
	return dropBlank(v)
}

func dropBlank(v url.Values) url.Values {
	for k, vals := range v {
		kept := vals[:0]
		for _, s := range vals {
			if s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(v, k)
			continue
		}
		v[k] = kept
	}
	return v
}

// parseBody reads the body once. Only POST, PUT and PATCH bodies are parsed;
// unknown content types are left unread for the handler.
func (r *Request) parseBody() error {
	r.bodyOnce.Do(func() {
		r.bodyErr = r.readBody()
	})
	return r.bodyErr
}

func (r *Request) readBody() error {
	switch r.r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil
	}
	if r.r.Body == nil || r.r.Body == http.NoBody {
		return nil
	}

	mediaType := "application/x-www-form-urlencoded"
	var params map[string]string
	if ct := r.r.Header.Get("Content-Type"); ct != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(ct)
		if err != nil {
			return ErrBadRequest("Invalid Content-Type", WithError(err))
		}
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return r.readJSON()
	case mediaType == "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return ErrBadRequest("Missing boundary")
		}
		return r.startMultipart(boundary)
	case mediaType == "application/x-www-form-urlencoded":
		return r.readForm()
	default:
		return nil
	}
}

func (r *Request) readAll() ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(r.w.Unwrap(), r.r.Body, r.app.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge("", WithError(err))
		}
		return nil, ErrBadRequest("Unreadable body", WithError(err))
	}
	return data, nil
}

func (r *Request) readForm() error {
	data, err := r.readAll()
	if err != nil {
		return err
	}
	values, _ := url.ParseQuery(string(data))
	r.mu.Lock()
	r.body = dropBlank(values)
	r.mu.Unlock()
	return nil
}

// readJSON decodes the body as JSON. A top-level object also fills the body
// parameters; non-string members are stored JSON-encoded.
func (r *Request) readJSON() error {
	data, err := r.readAll()
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ErrBadRequest("Bad JSON", WithError(err))
	}
	r.rawJSON = data
	r.json = v

	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	body := make(url.Values, len(obj))
	for k, member := range obj {
		if s, ok := member.(string); ok {
			body.Set(k, s)
			continue
		}
		enc, err := json.Marshal(member)
		if err != nil {
			continue
		}
		body.Set(k, string(enc))
	}
	r.mu.Lock()
	r.body = body
	r.mu.Unlock()
	return nil
}

// startMultipart starts the streaming parser and waits until binding can
// proceed: the first file part arrived, the body ended, or parsing failed.
func (r *Request) startMultipart(boundary string) error {
	mp := newMultipartState()
	r.mu.Lock()
	r.multipart = mp
	r.mu.Unlock()

	src := newDelimiterWatch(r.r.Body, boundary)
	go r.readMultipart(multipart.NewReader(src, boundary), src, mp)

	select {
	case <-mp.ready:
		return mp.readyErr
	case <-r.Done():
		return r.Err()
	}
}

// waitMultipart blocks until the parser goroutine, if any, has exited.
func (r *Request) waitMultipart() {
	r.mu.Lock()
	mp := r.multipart
	r.mu.Unlock()
	if mp != nil {
		<-mp.done
	}
}
