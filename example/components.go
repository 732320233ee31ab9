package main

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/pie/pkg/render"
)

// renderer serves named templ components first and embedded templates after.
func renderer() render.Renderer {
	components := render.NewComponents().
		Register("paste_row", func(data any) templ.Component { return pasteRow(data.(paste)) })
	return render.Chain(components, render.NewTemplates(assets, render.WithDir("templates")))
}

// pasteRow is the list entry swapped in after an HTMX submit.
func pasteRow(p paste) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<li><a href="/show/%s">%s</a> <small>%s</small></li>`,
			templ.EscapeString(p.ID),
			templ.EscapeString(p.Title),
			p.Created.Format("15:04:05"),
		)
		return err
	})
}

func pasteCounter(n int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<span id="paste-count" hx-swap-oob="true">%d</span>`, n)
		return err
	})
}
