// Package templates adapts gofiber's html template engine to the engine's
// render contract. Fragments call Render with a template name and data and
// get markup back; template lookup, layouts and function maps stay here.
package templates

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/template/html/v2"
)

// Engine wraps an html template engine behind the Renderer contract.
type Engine struct {
	mu     sync.Mutex
	views  *html.Engine
	loaded bool
}

// New creates an engine reading templates from a directory.
// Templates are addressed by their path relative to the directory, without
// the extension: "fragments/feed", "layouts/main".
func New(directory, ext string) *Engine {
	return &Engine{views: html.New(directory, ext)}
}

// NewFileSystem creates an engine reading templates from an http.FileSystem,
// typically an embed.FS wrapped with http.FS.
func NewFileSystem(fs http.FileSystem, ext string) *Engine {
	return &Engine{views: html.NewFileSystem(fs, ext)}
}

// AddFunc registers a template function. Must be called before the first
// Render.
func (e *Engine) AddFunc(name string, fn any) *Engine {
	e.views.AddFunc(name, fn)
	return e
}

// Reload re-parses templates on every render. Useful in development.
func (e *Engine) Reload(enabled bool) *Engine {
	e.views.Reload(enabled)
	return e
}

// Load parses all templates. Render calls it lazily, but calling it at
// startup surfaces template errors before the first request.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.views.Load(); err != nil {
		return fmt.Errorf("templates: load: %w", err)
	}
	e.loaded = true
	return nil
}

// Render executes the named template and returns its output.
func (e *Engine) Render(name string, data any) (string, error) {
	e.mu.Lock()
	if !e.loaded {
		if err := e.views.Load(); err != nil {
			e.mu.Unlock()
			return "", fmt.Errorf("templates: load: %w", err)
		}
		e.loaded = true
	}
	e.mu.Unlock()

	var buf strings.Builder
	if err := e.views.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", name, err)
	}
	return buf.String(), nil
}
