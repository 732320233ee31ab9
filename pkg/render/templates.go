package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

// Templates renders ".html" and ".md" files from a filesystem. Parsed
// templates are cached; rendered output never is.
type Templates struct {
	fs        fs.FS
	md        goldmark.Markdown
	funcs     template.FuncMap
	pages     map[string]*template.Template
	markdown  map[string]*markdownPage
	layouts   map[string]*template.Template
	dir       string
	layout    string
	layoutDir string
	mu        sync.RWMutex
}

type markdownPage struct {
	meta map[string]any
	body *texttemplate.Template
}

// Option configures Templates.
type Option func(*Templates)

// WithDir sets the directory templates are looked up in. Default ".".
func WithDir(dir string) Option {
	return func(t *Templates) { t.dir = dir }
}

// WithLayout sets the layout markdown pages are wrapped in, relative to the
// layout directory. A front matter "layout" key overrides it per page.
// Default "base.html"; a missing default layout renders bare HTML.
func WithLayout(name string) Option {
	return func(t *Templates) { t.layout = name }
}

// WithLayoutDir sets the layout directory. Default "layouts" inside the
// template directory.
func WithLayoutDir(dir string) Option {
	return func(t *Templates) { t.layoutDir = dir }
}

// WithFuncs adds functions available to html templates and layouts.
func WithFuncs(funcs template.FuncMap) Option {
	return func(t *Templates) {
		for k, v := range funcs {
			t.funcs[k] = v
		}
	}
}

// NewTemplates creates a renderer over fsys.
func NewTemplates(fsys fs.FS, opts ...Option) *Templates {
	t := &Templates{
		fs:       fsys,
		md:       goldmark.New(),
		funcs:    template.FuncMap{},
		pages:    make(map[string]*template.Template),
		markdown: make(map[string]*markdownPage),
		layouts:  make(map[string]*template.Template),
		dir:      ".",
		layout:   "base.html",
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.layoutDir == "" {
		t.layoutDir = path.Join(t.dir, "layouts")
	}
	return t
}

// Render executes the named template with data.
func (t *Templates) Render(_ context.Context, name string, data any) (string, error) {
	if strings.HasSuffix(name, ".md") {
		return t.renderMarkdown(name, data)
	}

	tmpl, err := t.page(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return buf.String(), nil
}

func (t *Templates) renderMarkdown(name string, data any) (string, error) {
	page, err := t.markdownPage(name)
	if err != nil {
		return "", err
	}

	var src bytes.Buffer
	if err := page.body.Execute(&src, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	var content bytes.Buffer
	if err := t.md.Convert(src.Bytes(), &content); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	layoutName := t.layout
	explicit := false
	if v, ok := page.meta["layout"].(string); ok && v != "" {
		layoutName, explicit = v, true
	}

	layout, err := t.layoutTemplate(layoutName)
	if err != nil {
		if errors.Is(err, ErrLayoutNotFound) && !explicit {
			return content.String(), nil
		}
		return "", err
	}

	var out bytes.Buffer
	err = layout.Execute(&out, map[string]any{
		"Content":  template.HTML(content.String()),
		"Metadata": page.meta,
		"Data":     data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, layoutName, err)
	}
	return out.String(), nil
}

func (t *Templates) page(name string) (*template.Template, error) {
	return cached(&t.mu, t.pages, name, func() (*template.Template, error) {
		src, err := fs.ReadFile(t.fs, path.Join(t.dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		tmpl, err := template.New(name).Funcs(t.funcs).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}
		return tmpl, nil
	})
}

func (t *Templates) markdownPage(name string) (*markdownPage, error) {
	return cached(&t.mu, t.markdown, name, func() (*markdownPage, error) {
		src, err := fs.ReadFile(t.fs, path.Join(t.dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		meta, body, err := splitFrontmatter(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tmpl, err := texttemplate.New(name).Parse(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}
		return &markdownPage{meta: meta, body: tmpl}, nil
	})
}

func (t *Templates) layoutTemplate(name string) (*template.Template, error) {
	return cached(&t.mu, t.layouts, name, func() (*template.Template, error) {
		src, err := fs.ReadFile(t.fs, path.Join(t.layoutDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
		}
		tmpl, err := template.New(name).Funcs(t.funcs).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, name, err)
		}
		return tmpl, nil
	})
}

// cached returns m[key], building and storing it on a miss.
func cached[V any](mu *sync.RWMutex, m map[string]V, key string, build func() (V, error)) (V, error) {
	mu.RLock()
	v, ok := m[key]
	mu.RUnlock()
	if ok {
		return v, nil
	}

	mu.Lock()
	defer mu.Unlock()
	if v, ok := m[key]; ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	m[key] = v
	return v, nil
}

var _ Renderer = (*Templates)(nil)
