package render

import (
	"context"
	"errors"
)

var (
	ErrTemplateNotFound   = errors.New("render: template not found")
	ErrLayoutNotFound     = errors.New("render: layout not found")
	ErrInvalidFrontmatter = errors.New("render: invalid front matter")
	ErrRenderFailed       = errors.New("render: rendering failed")
)

// Renderer turns a template name and data into HTML.
type Renderer interface {
	Render(ctx context.Context, name string, data any) (string, error)
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, name string, data any) (string, error)

func (f Func) Render(ctx context.Context, name string, data any) (string, error) {
	return f(ctx, name, data)
}

// Chain tries each renderer in order and moves on only when a template is not found.
func Chain(renderers ...Renderer) Renderer {
	return Func(func(ctx context.Context, name string, data any) (string, error) {
		for _, r := range renderers {
			out, err := r.Render(ctx, name, data)
			if errors.Is(err, ErrTemplateNotFound) {
				continue
			}
			return out, err
		}
		return "", ErrTemplateNotFound
	})
}
