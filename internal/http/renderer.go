package httpx

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

//go:embed views
var viewsFS embed.FS

// Page names.
const (
	PageLogin          = "login"
	PageHome           = "home"
	PageNoticeList     = "notice_list"
	PageNoticeRegister = "notice_register"
	PageAccessError    = "access_error"
)

// TemplateRenderer renders HTML pages. Each page is parsed into its own
// clone of the layout so pages can all define "content".
type TemplateRenderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	// TemplateFS holds layout.tmpl and pages/*.tmpl; nil uses the embedded views.
	TemplateFS fs.FS
	Logger     *slog.Logger
}

// NewTemplateRenderer parses the layout and every page template.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	fsys := cfg.TemplateFS
	if fsys == nil {
		sub, err := fs.Sub(viewsFS, "views")
		if err != nil {
			return nil, fmt.Errorf("open embedded views: %w", err)
		}
		fsys = sub
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	layout, err := template.New("layout").Funcs(templateFuncs()).ParseFS(fsys, "layout.tmpl")
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "layout"))
		return nil, err
	}

	files, err := fs.Glob(fsys, "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no page templates found")
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		t, err := template.Must(layout.Clone()).ParseFS(fsys, file)
		if err != nil {
			logger.Error("template parsing failed", slog.Any("error", err), slog.String("template", file))
			return nil, err
		}
		pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = t
	}
	return &TemplateRenderer{pages: pages, logger: logger}, nil
}

// Render writes page with status. Output is buffered so a template error
// never produces a half-written page.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	t, ok := r.pages[page]
	if !ok {
		err := fmt.Errorf("unknown page %q", page)
		r.logger.Error("template execution failed", slog.String("template", page), slog.Any("error", err))
		return err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", page), slog.Any("error", err))
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template", slog.String("template", page), slog.Any("error", err))
		return err
	}
	return nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	}
}
