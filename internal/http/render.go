package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"khidma/internal/core"
	appweb "khidma/web"
)

var templateFuncs = template.FuncMap{
	"money":       func(m core.Money) string { return m.String() },
	"egp":         func(m core.Money) string { return m.EGP() },
	"amountValue": amountValue,
	"isNegative":  func(m core.Money) bool { return m.Cents < 0 },
	"monthLabel":  func(m core.Month) string { return m.ArabicLabel() },
	"arabic":      core.ArabicDigits,
	"inc":         func(i int) int { return i + 1 },
	"percent":     func(permille int64) string { return strconv.FormatFloat(float64(permille)/10, 'f', 1, 64) },
	"areaName":    areaName,
	"ratio":       func(f float64) string { return core.ArabicDigits(strconv.FormatFloat(f*100, 'f', 0, 64)) },
	"monthSelect": func(opts []core.MonthOption, selected string) monthSelect {
		return monthSelect{Options: opts, Selected: selected}
	},
}

// monthSelect feeds the shared month_options template.
type monthSelect struct {
	Options  []core.MonthOption
	Selected string
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// amountValue is the plain decimal used in form inputs: "1500" or "1500.5".
func amountValue(m core.Money) string {
	if m.Cents == 0 {
		return ""
	}
	return m.Decimal().String()
}

func areaName(areas []core.Area, id string) string {
	for _, a := range areas {
		if a.ID == id {
			return a.Name
		}
	}
	return "—"
}

// render executes a named template into a buffer first so a template error
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "template", name, "error", err)
		InternalServerError("تعذر عرض الصفحة").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderHTML executes a template into a string for response builders and
// the PDF renderer.
func (s *Server) renderHTML(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// page is embedded in every full page view model.
type page struct {
	Title  string
	Active string
}
