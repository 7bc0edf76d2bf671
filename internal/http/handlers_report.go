package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"khidma/internal/core"
	"khidma/internal/export"
	"khidma/internal/printing"
)

type reportView struct {
	page
	Areas      []core.Area
	Months     []core.MonthOption
	AreaID     string
	Month      core.Month
	Report     *core.AreaReport
	Words      string
	PDFEnabled bool
}

// loadReport reads the area and month from the query. The report is nil
// until an area is chosen.
func (s *Server) loadReport(ctx context.Context, r *http.Request) (reportView, error) {
	q := r.URL.Query()
	view := reportView{
		page:       page{Title: "تقرير المنطقة", Active: "report"},
		Months:     collectMonths(s.now()),
		AreaID:     q.Get("area"),
		Month:      ParseMonthValue(q, "month", core.CurrentMonth(s.now())),
		PDFEnabled: s.deps.Printer != nil,
	}
	areas, err := s.deps.Registry.Areas(ctx, false)
	if err != nil {
		return view, err
	}
	view.Areas = areas
	if view.AreaID == "" {
		return view, nil
	}
	rep, err := s.deps.Reports.AreaReport(ctx, view.AreaID, view.Month)
	if err != nil {
		return view, err
	}
	view.Report = &rep
	view.Words = export.AmountInWords(rep.GrandTotal)
	return view, nil
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("المنطقة غير موجودة").Write(w)
		return
	}
	if msg, ok := domainMessage(err); ok {
		UnprocessableEntityError(msg).Write(w)
		return
	}
	slog.ErrorContext(r.Context(), "Report load failed", "error", err)
	InternalServerError("تعذر تحميل التقرير").Write(w)
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadReport(r.Context(), r)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "report_page", view)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadReport(r.Context(), r)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	if view.Report == nil {
		UnprocessableEntityError("اختر المنطقة").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := export.AreaReport(&buf, *view.Report); err != nil {
		slog.ErrorContext(r.Context(), "Report workbook failed", "area_id", view.AreaID, "error", err)
		InternalServerError("تعذر إنشاء الملف").Write(w)
		return
	}
	writeDownload(w, export.ContentType, export.ReportFilename(*view.Report), buf.Bytes())
}

// handleReportPDF prints the report page through headless Chrome.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if s.deps.Printer == nil {
		NotFoundError("الطباعة بصيغة PDF غير مفعلة").Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	view, err := s.loadReport(ctx, r)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	if view.Report == nil {
		UnprocessableEntityError("اختر المنطقة").Write(w)
		return
	}
	html, err := s.renderHTML("report_print", view)
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		InternalServerError("تعذر عرض التقرير").Write(w)
		return
	}
	title := view.Report.Area.Name + " " + view.Month.ArabicLabel()
	pdf, err := s.deps.Printer.PDF(ctx, title, html)
	if err != nil {
		slog.ErrorContext(ctx, "PDF rendering failed", "area_id", view.AreaID, "error", err)
		if errors.Is(err, printing.ErrTimeout) {
			ErrorResponse(http.StatusGatewayTimeout, "انتهت مهلة إنشاء الملف").Write(w)
			return
		}
		InternalServerError("تعذر إنشاء ملف PDF").Write(w)
		return
	}
	name := strings.TrimSuffix(export.ReportFilename(*view.Report), ".xlsx") + ".pdf"
	writeDownload(w, "application/pdf", name, pdf)
}
