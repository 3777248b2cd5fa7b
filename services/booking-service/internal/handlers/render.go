package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index",
	"book",
	"success",
	"check_status",
	"admin_login",
	"admin_dashboard",
	"not_found",
	"error",
}

// viewData is the single model every page template renders from.
type viewData struct {
	Title        string
	Flashes      []Flash
	Operator     *admin.Operator
	Form         map[string]string
	Appointment  *model.Appointment
	Appointments []model.Appointment
	Statuses     []string
	FreeTimes    []string
	Message      string
}

type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Option("missingkey=zero").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes page into a buffer first so a template failure still yields a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data viewData) {
	t, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown page template", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("render template", "page", page, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
