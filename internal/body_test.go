package internal_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/storage"
)

type part struct {
	field    string
	filename string
	ctype    string
	content  string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.field, p.content))
			continue
		}
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + p.field + `"; filename="` + p.filename + `"`}
		if p.ctype != "" {
			h["Content-Type"] = []string{p.ctype}
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type uploadParams struct {
	Title string               `param:"title"`
	Doc   *internal.FileUpload `param:"doc"`
	Extra *internal.FileUpload `param:"extra,optional"`
}

type docParams struct {
	Doc *internal.FileUpload `param:"doc"`
}

func TestMultipart(t *testing.T) {
	t.Parallel()

	t.Run("fields and file are bound", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil, internal.WithHandler("upload", func(r *internal.Request, p uploadParams) (string, error) {
			data, err := p.Doc.Bytes(r)
			if err != nil {
				return "", err
			}
			return p.Title + ":" + p.Doc.Filename + ":" + p.Doc.ContentType + ":" + string(data), nil
		}))

		req := multipartRequest(t, "/upload",
			part{field: "title", content: "report"},
			part{field: "doc", filename: "a.txt", ctype: "text/plain", content: "hello world"},
		)
		w := do(t, app, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, "report:a.txt:text/plain:hello world", w.Body.String())
	})

	t.Run("large file arrives in chunks", func(t *testing.T) {
		t.Parallel()

		content := strings.Repeat("x", 200<<10)
		app := newApp(t, nil, internal.WithHandler("upload", func(r *internal.Request, p uploadParams) (int, error) {
			chunks, total := 0, 0
			for chunk, err := range p.Doc.Chunks(r) {
				if err != nil {
					return 0, err
				}
				chunks++
				total += len(chunk)
			}
			if chunks < 2 {
				return 0, internal.ErrInternal("expected several chunks")
			}
			return total, nil
		}))

		req := multipartRequest(t, "/upload",
			part{field: "title", content: "big"},
			part{field: "doc", filename: "big.bin", content: content},
		)
		w := do(t, app, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, "204800", w.Body.String())
	})

	t.Run("default content type", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil, internal.WithHandler("upload", func(p uploadParams) string {
			return p.Doc.ContentType
		}))
		w := do(t, app, multipartRequest(t, "/upload",
			part{field: "title", content: "t"},
			part{field: "doc", filename: "blob", content: "data"},
		))
		require.Equal(t, "application/octet-stream", w.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil, internal.WithHandler("upload", func(p uploadParams) string { return "ok" }))
		w := do(t, app, multipartRequest(t, "/upload", part{field: "title", content: "t"}))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "400 Bad Request: Missing required parameter 'doc'", w.Body.String())
	})

	t.Run("wait for a later file", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil, internal.WithHandler("upload", func(r *internal.Request, p uploadParams) (string, error) {
			first, err := p.Doc.Bytes(r)
			if err != nil {
				return "", err
			}
			extra, err := r.WaitFile(r, "extra")
			if err != nil {
				return "", err
			}
			second, err := extra.Bytes(r)
			if err != nil {
				return "", err
			}
			return string(first) + "+" + string(second) + "+" + r.BodyValue("late"), nil
		}))

		w := do(t, app, multipartRequest(t, "/upload",
			part{field: "title", content: "t"},
			part{field: "doc", filename: "1.txt", content: "one"},
			part{field: "late", content: "field"},
			part{field: "extra", filename: "2.txt", content: "two"},
		))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, "one+two+field", w.Body.String())
	})

	t.Run("wait for an absent file", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil, internal.WithHandler("upload", func(r *internal.Request, p uploadParams) error {
			if _, err := p.Doc.Bytes(r); err != nil {
				return err
			}
			_, err := r.WaitFile(r, "nothing")
			return err
		}))

		w := do(t, app, multipartRequest(t, "/upload",
			part{field: "title", content: "t"},
			part{field: "doc", filename: "1.txt", content: "one"},
		))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("missing boundary", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, &site{})
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("x"))
		req.Header.Set("Content-Type", "multipart/form-data")
		w := do(t, app, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "400 Bad Request: Missing boundary", w.Body.String())
	})

	t.Run("malformed bodies", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, nil,
			internal.WithHandler("submit", func(r *internal.Request) string { return "ok:" + r.BodyValue("a") }),
			internal.WithHandler("upload", func(r *internal.Request, p docParams) (string, error) {
				data, err := p.Doc.Bytes(r)
				return string(data), err
			}),
		)

		cases := []struct {
			name   string
			target string
			body   string
		}{
			{"no parts", "/submit", "this is not multipart"},
			{"no closing delimiter", "/submit", "--XYZ\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nval\r\n--XYZ\r\n"},
			{"truncated file", "/upload", "--XYZ\r\nContent-Disposition: form-data; name=\"doc\"; filename=\"a.txt\"\r\n\r\nhalf a fi"},
		}
		for _, tc := range cases {
			req := httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "multipart/form-data; boundary=XYZ")
			w := do(t, app, req)
			require.Equal(t, http.StatusBadRequest, w.Code, tc.name)
			require.Equal(t, "400 Bad Request: Malformed multipart body", w.Body.String(), tc.name)
		}
	})

	t.Run("fields over the limit", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, &site{}, internal.WithMaxBodySize(16))
		w := do(t, app, multipartRequest(t, "/echo", part{field: "name", content: strings.Repeat("a", 64)}))
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestSaveFile(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory("")
	app := newApp(t, nil,
		internal.WithStorage(store),
		internal.WithHandler("upload", func(r *internal.Request, p uploadParams) (string, error) {
			obj, err := r.SaveFile(p.Doc, storage.WithPrefix("docs"))
			if err != nil {
				return "", err
			}
			return obj.Key + "|" + obj.ContentType, nil
		}),
	)

	w := do(t, app, multipartRequest(t, "/upload",
		part{field: "title", content: "t"},
		part{field: "doc", filename: "a.txt", ctype: "text/plain", content: "stored"},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	key, contentType, ok := strings.Cut(w.Body.String(), "|")
	require.True(t, ok)
	require.Equal(t, "text/plain", contentType)
	require.True(t, strings.HasPrefix(key, "docs/"))
	require.True(t, strings.HasSuffix(key, ".txt"))

	rc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "stored", string(data))
}

func TestSaveFileWithoutStorage(t *testing.T) {
	t.Parallel()

	app := newApp(t, nil, internal.WithHandler("upload", func(r *internal.Request, p uploadParams) error {
		_, err := r.SaveFile(p.Doc)
		return err
	}))
	w := do(t, app, multipartRequest(t, "/upload",
		part{field: "title", content: "t"},
		part{field: "doc", filename: "a.txt", content: "x"},
	))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestJSONBody(t *testing.T) {
	t.Parallel()

	type payload struct {
		Items []int `json:"items"`
	}

	app := newApp(t, nil,
		internal.WithHandler("sum", func(r *internal.Request) (int, error) {
			var p payload
			if err := r.BindJSON(&p); err != nil {
				return 0, err
			}
			total := 0
			for _, n := range p.Items {
				total += n
			}
			return total, nil
		}),
		internal.WithHandler("raw", func(r *internal.Request) string {
			return r.BodyValue("items")
		}),
	)

	post := func(target, ctype, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set("Content-Type", ctype)
		return do(t, app, req)
	}

	w := post("/sum", "application/json", `{"items":[1,2,3]}`)
	require.Equal(t, "6", w.Body.String())

	w = post("/sum", "application/vnd.api+json", `{"items":[4]}`)
	require.Equal(t, "4", w.Body.String())

	w = post("/raw", "application/json", `{"items":[1,2]}`)
	require.Equal(t, "[1,2]", w.Body.String())

	w = post("/sum", "application/json", `{"items":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "400 Bad Request: Bad JSON", w.Body.String())

	w = post("/sum", "application/json", ``)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "400 Bad Request: Missing JSON body", w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	app := newApp(t, &site{}, internal.WithMaxBodySize(8))
	w := postForm(t, app, "/echo", map[string][]string{"name": {strings.Repeat("a", 32)}})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnknownContentTypeIsLeftUnread(t *testing.T) {
	t.Parallel()

	app := newApp(t, nil, internal.WithHandler("raw", func(r *internal.Request) (string, error) {
		data, err := io.ReadAll(r.HTTP().Body)
		return string(data), err
	}))

	req := httptest.NewRequest(http.MethodPost, "/raw", strings.NewReader("plain text"))
	req.Header.Set("Content-Type", "text/plain")
	require.Equal(t, "plain text", do(t, app, req).Body.String())
}
