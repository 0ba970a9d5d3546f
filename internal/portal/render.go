package portal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/session"
)

//go:embed templates
var templateFS embed.FS

// page is what every template is executed with. Data carries the
// page-specific part.
type page struct {
	Title    string
	LoggedIn bool
	Session  session.Session
	Alert    string
	Notice   string
	Data     any
}

var templateFuncs = template.FuncMap{
	"longDate": func(t time.Time) string { return t.Format("Monday, Jan 2") },
	"dateTime": func(t time.Time) string { return t.Format("Jan 2, 2006 15:04") },
	"dateParam": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
}

// Renderer holds one parsed template set per page, each combining the
// layout, the shared partials and the page itself.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	partials, err := fs.Glob(templateFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("list partials: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		patterns := append([]string{"templates/layout.html"}, partials...)
		patterns = append(patterns, f)

		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, p page) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		rd.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
