// Package render provides template renderers for pie applications.
//
// [Templates] renders files from an fs.FS: ".html" files with html/template,
// and ".md" files as markdown with optional YAML front matter, converted with
// goldmark and wrapped in an HTML layout. [Components] renders registered
// templ components by name.
//
//	//go:embed templates
//	var files embed.FS
//
//	r := render.NewTemplates(files, render.WithDir("templates"))
//	html, err := r.Render(ctx, "index.html", map[string]any{"Title": "Home"})
package render
