// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single render.  Handlers push title,
// meta, stylesheet, and script entries; the page layout emits each slice
// where it belongs.
//
// Features
// --------
//   - SetTitle            – single <title> tag (last call wins).
//   - Meta                – name/content pairs (the CSRF token rides here).
//   - Stylesheet, Script  – external resources, deduplicated by URL.
//   - Render helpers      – return template.HTML with every value escaped.
package head

import (
	"html/template"
	"strings"
	"sync"
)

// Builder is safe for concurrent writes, though one goroutine per render is
// the normal case.
type Builder struct {
	mu sync.Mutex

	title string

	metas   []string
	links   []string
	scripts []string

	seen map[string]struct{}
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// Title returns a fully formed <title> tag or "".
func (b *Builder) Title() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.title == "" {
		return ""
	}
	return template.HTML("<title>" + template.HTMLEscapeString(b.title) + "</title>")
}

// Meta adds <meta name=… content=…>.  A repeated name is ignored.
func (b *Builder) Meta(name, content string) {
	b.add("meta:"+name, &b.metas,
		`<meta name="`+esc(name)+`" content="`+esc(content)+`">`)
}

// Stylesheet adds a <link rel="stylesheet">.
func (b *Builder) Stylesheet(href string) {
	b.add("link:"+href, &b.links, `<link rel="stylesheet" href="`+esc(href)+`">`)
}

// Script adds a deferred external <script>.
func (b *Builder) Script(src string) {
	b.add("script:"+src, &b.scripts, `<script src="`+esc(src)+`" defer></script>`)
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

func (b *Builder) Metas() template.HTML   { return b.concat(b.metas) }
func (b *Builder) Links() template.HTML   { return b.concat(b.links) }
func (b *Builder) Scripts() template.HTML { return b.concat(b.scripts) }

// concat joins pre-escaped tags, one per line.
func (b *Builder) concat(sl []string) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return template.HTML(strings.Join(sl, "\n"))
}

func esc(s string) string { return template.HTMLEscapeString(s) }
