package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"khidma/internal/importer"
	applog "khidma/internal/log"
)

// Import kinds.
const (
	importCollections = "collections"
	importSponsors    = "sponsors"
	importCases       = "cases"
)

// importForm is posted by both preview and run; the source is re-read on
// every request.
type importForm struct {
	Kind     string
	Source   string
	Range    string
	Name     string
	Amount   string
	Month    string
	Phone    string
	Child    string
	Guardian string
	Area     string
	Fixed    string
	Sponsor  string
}

type importView struct {
	page
	SheetsEnabled bool
	Form          importForm
	Headers       []string
	Preview       []importer.PreviewRow
	Sample        []importer.Row
	Total         int
	Result        *importer.Result
}

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "import_page", importView{
		page:          page{Title: "استيراد البيانات", Active: "import"},
		SheetsEnabled: s.deps.Sheets != nil,
		Form:          importForm{Kind: importCollections, Source: "file"},
	})
}

// readImportForm parses the multipart form and loads the table from the
// uploaded file or the spreadsheet range.
func (s *Server) readImportForm(w http.ResponseWriter, r *http.Request) (importForm, importer.Table, *HTMXResponse) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return importForm{}, importer.Table{}, BadRequestError("الملف كبير جداً أو الطلب غير صالح")
	}
	f := importForm{
		Kind:     formValue(r, "kind"),
		Source:   formValue(r, "source"),
		Range:    formValue(r, "range"),
		Name:     formValue(r, "col_name"),
		Amount:   formValue(r, "col_amount"),
		Month:    formValue(r, "col_month"),
		Phone:    formValue(r, "col_phone"),
		Child:    formValue(r, "col_child"),
		Guardian: formValue(r, "col_guardian"),
		Area:     formValue(r, "col_area"),
		Fixed:    formValue(r, "col_fixed"),
		Sponsor:  formValue(r, "col_sponsor"),
	}
	switch f.Kind {
	case importCollections, importSponsors, importCases:
	default:
		return f, importer.Table{}, UnprocessableEntityError("نوع الاستيراد غير صالح")
	}

	if f.Source == "sheet" {
		if s.deps.Sheets == nil {
			return f, importer.Table{}, NotFoundError("القراءة من Google Sheets غير مفعلة")
		}
		if f.Range == "" {
			return f, importer.Table{}, UnprocessableEntityError("حدد النطاق")
		}
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		records, err := s.deps.Sheets.ReadRange(ctx, f.Range)
		if err != nil {
			slog.ErrorContext(ctx, "Sheet range read failed", "range", f.Range, "error", err)
			return f, importer.Table{}, ErrorResponse(http.StatusBadGateway, "تعذر قراءة الجدول")
		}
		t, err := importer.FromRecords(records)
		if err != nil {
			return f, importer.Table{}, UnprocessableEntityError(tableMessage(err))
		}
		return f, t, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return f, importer.Table{}, BadRequestError("اختر ملفاً")
	}
	defer file.Close()
	t, err := importer.Parse(file)
	if err != nil {
		return f, importer.Table{}, UnprocessableEntityError(tableMessage(err))
	}
	return f, t, nil
}

func tableMessage(err error) string {
	switch {
	case errors.Is(err, importer.ErrEmptyFile):
		return "الملف فارغ"
	case errors.Is(err, importer.ErrInvalidEncoding):
		return "الملف ليس بترميز UTF-8"
	case errors.Is(err, importer.ErrMissingHeader):
		return "لا يوجد صف عناوين"
	case errors.Is(err, importer.ErrMissingColumn):
		return "عمود غير محدد أو غير موجود في الملف"
	}
	return "تعذر قراءة الملف"
}

// handleImportPreview shows the file's columns and, for collections, how
// the first rows would be matched.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	f, t, resp := s.readImportForm(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	view := importView{Form: f, Headers: t.Headers, Total: len(t.Rows)}
	if f.Kind == importCollections && f.Name != "" && f.Amount != "" && f.Month != "" {
		rows, err := s.deps.Importer.PreviewCollections(r.Context(), t, importer.CollectionMapping{
			Name: f.Name, Amount: f.Amount, Month: f.Month,
		})
		if err != nil {
			s.importError(w, r, err)
			return
		}
		view.Preview = rows
	} else {
		n := min(len(t.Rows), importer.PreviewLimit)
		view.Sample = t.Rows[:n]
	}
	s.render(w, r, http.StatusOK, "import_preview", view)
}

func (s *Server) handleImportRun(w http.ResponseWriter, r *http.Request) {
	f, t, resp := s.readImportForm(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	var (
		res importer.Result
		err error
	)
	switch f.Kind {
	case importCollections:
		res, err = s.deps.Importer.ImportCollections(ctx, t, importer.CollectionMapping{
			Name: f.Name, Amount: f.Amount, Month: f.Month,
		})
	case importSponsors:
		res, err = s.deps.Importer.ImportSponsors(ctx, t, importer.SponsorMapping{
			Name: f.Name, Phone: f.Phone,
		})
	case importCases:
		res, err = s.deps.Importer.ImportCases(ctx, t, importer.CaseMapping{
			Child: f.Child, Guardian: f.Guardian, Area: f.Area, Fixed: f.Fixed, Sponsor: f.Sponsor,
		})
	}
	if err != nil {
		s.importError(w, r, err)
		return
	}
	s.deps.Metrics.Imported(f.Kind, res.Inserted, res.Skipped)
	if res.Inserted > 0 && f.Kind != importCollections {
		s.deps.Registry.Invalidate()
	}
	slog.InfoContext(ctx, "Import finished", "kind", f.Kind, "source", f.Source,
		"inserted", res.Inserted, "skipped", res.Skipped, "warnings", len(res.Warnings))

	html, err := s.renderHTML("import_result", importView{Form: f, Total: len(t.Rows), Result: &res})
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		InternalServerError("تعذر عرض النتيجة").Write(w)
		return
	}
	b := NewHTMXResponse().Notify("تم استيراد " + strconv.Itoa(res.Inserted) + " صف")
	if f.Kind == importCollections {
		b.CollectionSaved("")
	} else {
		b.RegistryChanged()
	}
	b.HTML(html).Write(w)
}

func (s *Server) importError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, importer.ErrMissingColumn) {
		UnprocessableEntityError(tableMessage(err)).Write(w)
		return
	}
	ctx := r.Context()
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Import failed", err,
		applog.ComponentImport, applog.OpImport, applog.NewFields())
	InternalServerError("فشل الاستيراد").Write(w)
}
