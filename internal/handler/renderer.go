package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Renderer manages template parsing and rendering with isolated template sets.
// It supports two layouts:
//   - "public" layout for the home page
//   - "auth" layout for login, registration and the password reset steps
//
// Templates are organized as:
//   - layouts/public.html, layouts/auth.html - base layouts
//   - components/*.html - reusable components (shared across layouts)
//   - pages/public/*.html - public pages
//   - pages/auth/*.html - auth pages
//
// Pages are exposed as templ components so handlers render them the same way
// as any other component.
type Renderer struct {
	templates map[string]*template.Template
	fsys      fs.FS
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// FS is rooted at the templates directory: the embedded web.Templates in
	// production, os.DirFS in development.
	FS     fs.FS
	Logger *slog.Logger

	// IsDev reloads templates on every render.
	IsDev bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	if cfg.FS == nil {
		return nil, fmt.Errorf("renderer: templates filesystem is required")
	}
	r := &Renderer{
		templates: make(map[string]*template.Template),
		fsys:      cfg.FS,
		logger:    cfg.Logger,
		isDev:     cfg.IsDev,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// layouts lists the layout names. Pages under pages/<layout>/ render inside
// the layout of the same name.
var layouts = []string{"public", "auth"}

func (r *Renderer) loadTemplates() error {
	// Component templates are shared across layouts.
	var componentFiles []string
	err := fs.WalkDir(r.fsys, "components", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".html") {
			componentFiles = append(componentFiles, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk components dir: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, layout := range layouts {
		base, err := template.New(layout).Funcs(TemplateFuncs()).ParseFS(r.fsys, path.Join("layouts", layout+".html"))
		if err != nil {
			return fmt.Errorf("failed to parse %s layout: %w", layout, err)
		}

		if len(componentFiles) > 0 {
			base, err = base.ParseFS(r.fsys, componentFiles...)
			if err != nil {
				return fmt.Errorf("failed to parse components into %s layout: %w", layout, err)
			}
		}

		pages, err := fs.Glob(r.fsys, path.Join("pages", layout, "*.html"))
		if err != nil {
			return fmt.Errorf("failed to glob %s pages: %w", layout, err)
		}

		for _, page := range pages {
			pageTmpl, err := base.Clone()
			if err != nil {
				return fmt.Errorf("failed to clone %s template for %s: %w", layout, page, err)
			}

			pageTmpl, err = pageTmpl.ParseFS(r.fsys, page)
			if err != nil {
				return fmt.Errorf("failed to parse %s page %s: %w", layout, page, err)
			}

			// Store as "auth/login", "public/home", etc.
			pageName := strings.TrimSuffix(path.Base(page), path.Ext(page))
			templates[layout+"/"+pageName] = pageTmpl
		}
	}

	r.templates = templates
	r.logger.Debug("templates loaded", "count", len(templates))
	return nil
}

// Reload reloads all templates from the filesystem. Useful for development.
func (r *Renderer) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loadTemplates()
}

// lookup returns the root template of a page, reloading first in dev mode.
func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	root := tmpl.Lookup(r.getBaseTemplateName(name))
	if root == nil {
		return nil, fmt.Errorf("template %q has no %q layout", name, r.getBaseTemplateName(name))
	}
	return root, nil
}

// Component returns the named page as a templ component.
func (r *Renderer) Component(name string, data any) (templ.Component, error) {
	root, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return templ.FromGoHTML(root, data), nil
}

// Render renders a page to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	root, err := r.lookup(name)
	if err != nil {
		return err
	}
	return root.Execute(w, data)
}

// RenderHTML renders a page and returns the HTML as a string.
func (r *Renderer) RenderHTML(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTTP renders a page with status 200.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.RenderHTTPStatus(w, req, http.StatusOK, name, data)
}

// RenderHTTPStatus renders a page with the given status. Output is buffered,
// so a failing template still produces a clean 500.
func (r *Renderer) RenderHTTPStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	component, err := r.Component(name, data)
	if err != nil {
		r.logger.Error("template not found", "name", name, "error", err)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	templ.Handler(component,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(_ *http.Request, err error) http.Handler {
			r.logger.Error("template execution failed", "name", name, "error", err)
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "Template execution failed", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, req)
}

// getBaseTemplateName determines which layout template to execute.
func (r *Renderer) getBaseTemplateName(name string) string {
	layout, _, _ := strings.Cut(name, "/")
	return layout
}

// ListTemplates returns a list of all loaded template names.
// Useful for debugging.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}
