package render

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// ComponentFunc builds a templ component from render data.
type ComponentFunc func(data any) templ.Component

// Components renders templ components registered by name.
type Components struct {
	items map[string]ComponentFunc
	mu    sync.RWMutex
}

// NewComponents creates an empty registry.
func NewComponents() *Components {
	return &Components{items: make(map[string]ComponentFunc)}
}

// Register adds or replaces a component.
func (c *Components) Register(name string, fn ComponentFunc) *Components {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[name] = fn
	return c
}

// Render renders the named component.
func (c *Components) Render(ctx context.Context, name string, data any) (string, error) {
	c.mu.RLock()
	fn, ok := c.items[name]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}

	var sb strings.Builder
	if err := fn(data).Render(ctx, &sb); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return sb.String(), nil
}

var _ Renderer = (*Components)(nil)
