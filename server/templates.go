package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/logger"
)

const templatePattern = "*.html.tmpl"

// TemplateRenderer renders html templates for echo and can reparse them when
// their files change
type TemplateRenderer struct {
	mu        sync.RWMutex
	templates *template.Template
	source    fs.FS
}

var templateFuncs = template.FuncMap{
	"json":    toJSON,
	"version": GetVersionString,
	"join":    strings.Join,
}

// toJSON embeds a value in a <script> block
func toJSON(v interface{}) (template.JS, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(data), nil
}

// NewTemplateRenderer parses every *.html.tmpl file in source
func NewTemplateRenderer(source fs.FS) (*TemplateRenderer, error) {
	if source == nil {
		return nil, fmt.Errorf("server: template filesystem is required")
	}
	r := &TemplateRenderer{source: source}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reparses the templates. The previous set stays active on failure.
func (r *TemplateRenderer) Reload() error {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(r.source, templatePattern)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	r.mu.RLock()
	tmpl := r.templates
	r.mu.RUnlock()
	return tmpl.ExecuteTemplate(w, name, data)
}

// Watch reloads the templates whenever a file in dir is written, created or
// renamed. The watcher lives for the rest of the process.
func (r *TemplateRenderer) Watch(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if match, _ := filepath.Match(templatePattern, filepath.Base(event.Name)); !match {
					continue
				}
				if err := r.Reload(); err != nil {
					logger.Warn("Template reload failed: %v", err)
					continue
				}
				logger.Muted("Reloaded templates (%s)", filepath.Base(event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Template watcher: %v", err)
			}
		}
	}()

	logger.Info("🔥 Watching %s for template changes", dir)
	return nil
}
