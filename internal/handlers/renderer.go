package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

// standalone pages render without the navigation layout
var standalone = map[string]bool{
	"login.html":    true,
	"register.html": true,
}

var pages = []string{"login.html", "register.html", "movies.html", "my_list.html", "wrapped.html"}

// Renderer handles template rendering
type Renderer struct {
	templates map[string]*template.Template
	logger    *log.Logger
}

// NewRenderer parses every page once, each with its own copy of the layout
func NewRenderer(logger *log.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))

	for _, name := range pages {
		files := []string{"templates/layout.html", "templates/" + name}
		if standalone[name] {
			files = files[1:]
		}

		tmpl, err := template.New("").Funcs(funcMap()).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{
		templates: templates,
		logger:    logger,
	}, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatRuntime": FormatRuntime,
		"join":          strings.Join,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"formatAverage": func(avg *float64) string {
			if avg == nil {
				return "-"
			}
			return fmt.Sprintf("%.1f", *avg)
		},
	}
}

// FormatRuntime renders minutes as "2 h 15 min", "45 min" or "2 h".
// Zero means the runtime is unknown.
func FormatRuntime(minutes int) string {
	if minutes <= 0 {
		return "Unknown"
	}

	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%d h", h)
	default:
		return fmt.Sprintf("%d h %d min", h, m)
	}
}

// Render renders a template with data
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// RenderPage renders a page template and handles errors
func (r *Renderer) RenderPage(w http.ResponseWriter, name string, data any) {
	var buf strings.Builder
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Printf("Failed to render template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, buf.String())
}
