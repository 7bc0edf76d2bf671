package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"khidma/internal/core"
	"khidma/internal/export"
	applog "khidma/internal/log"
	"khidma/internal/ocr"
	"khidma/internal/services"
)

// collectValues is the state of the collect form.
type collectValues struct {
	SponsorID     string
	Month         string
	Amount        string
	Method        string
	ReceivedBy    string
	AdvanceType   string
	AdvanceMonths int
	Notes         string
	OCRRaw        string
}

// splitView is the sponsor panel of the collect form: what the sponsor
// owes and how the amount divides between the pledge and sadaqat.
type splitView struct {
	SponsorID  string
	Obligation core.Money
	Cases      []core.Sponsorship
	Fixed      core.Money
	Extra      core.Money
	Sadaqat    core.Money
}

type collectView struct {
	page
	Sponsors   []core.Sponsor
	Operators  []core.Operator
	Months     []core.MonthOption
	Form       collectValues
	Split      splitView
	OCREnabled bool
	Receipt    *ocr.Receipt
	Confidence float64
	Error      string
}

type collectDone struct {
	SponsorName  string
	Amount       core.Money
	Month        core.Month
	Placeholders int
}

func (s *Server) collectView(ctx context.Context) (collectView, error) {
	view := collectView{
		page:       page{Title: "تسجيل تحصيل", Active: "collect"},
		Months:     collectMonths(s.now()),
		OCREnabled: s.deps.OCR != nil,
		Form: collectValues{
			Month:         core.CurrentMonth(s.now()).String(),
			Method:        core.MethodInstapay,
			AdvanceType:   core.AdvanceMonthly,
			AdvanceMonths: 1,
		},
	}
	var err error
	if view.Sponsors, err = s.deps.Registry.Sponsors(ctx); err != nil {
		return view, err
	}
	if view.Operators, err = s.deps.Registry.Operators(ctx); err != nil {
		return view, err
	}
	return view, nil
}

func (s *Server) handleCollectPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.collectView(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Collect page load failed", "error", err)
		InternalServerError("تعذر تحميل البيانات").Write(w)
		return
	}
	if id := r.URL.Query().Get("sponsor_id"); id != "" {
		view.Form.SponsorID = id
		if view.Split, err = s.split(r.Context(), id, core.Money{}); err != nil {
			slog.WarnContext(r.Context(), "Sponsor split failed", "sponsor_id", id, "error", err)
		}
	}
	s.render(w, r, http.StatusOK, "collect_page", view)
}

// handleCollectSponsor re-renders the sponsor panel when the sponsor or
// the amount changes.
func (s *Server) handleCollectSponsor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("sponsor_id")
	if id == "" {
		s.render(w, r, http.StatusOK, "collect_split", splitView{})
		return
	}
	split, err := s.split(r.Context(), id, amountOrZero(q.Get("amount")))
	if err != nil {
		slog.ErrorContext(r.Context(), "Sponsor split failed", "sponsor_id", id, "error", err)
		InternalServerError("تعذر تحميل حالات الكفيل").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "collect_split", split)
}

func (s *Server) split(ctx context.Context, sponsorID string, amount core.Money) (splitView, error) {
	cases, err := s.deps.Collections.SponsorCases(ctx, sponsorID)
	if err != nil {
		return splitView{}, err
	}
	v := splitView{SponsorID: sponsorID, Cases: cases, Obligation: core.Obligation(cases)}
	v.Fixed, v.Sadaqat = core.SplitPayment(amount, v.Obligation)
	return v, nil
}

// handleCollectOCR reads an uploaded transfer screenshot and returns the
// collect form pre-filled from it.
func (s *Server) handleCollectOCR(w http.ResponseWriter, r *http.Request) {
	if s.deps.OCR == nil {
		NotFoundError("قراءة الصور غير مفعلة").Write(w)
		return
	}
	file, hdr, resp := ParseUploadOrFail(w, r, "screenshot")
	if resp != nil {
		resp.Write(w)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, ocr.MaxImageBytes+1))
	if err != nil {
		BadRequestError("تعذر قراءة الملف").Write(w)
		return
	}
	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if err := ocr.CheckImage(mimeType, image); err != nil {
		UnprocessableEntityError("نوع الصورة غير مدعوم أو حجمها كبير").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	view, err := s.collectView(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Collect form load failed", "error", err)
		InternalServerError("تعذر تحميل البيانات").Write(w)
		return
	}
	view.Form.Month = ParseMonthValue(r.MultipartForm.Value, "month", core.CurrentMonth(s.now())).String()

	receipt, err := s.deps.OCR.Extract(ctx, mimeType, image)
	s.deps.Metrics.OCR(err == nil)
	if err != nil {
		slog.WarnContext(ctx, "Screenshot extraction failed", "error", err)
		view.Error = "فشل في قراءة الصورة"
		s.render(w, r, http.StatusOK, "collect_form", view)
		return
	}

	prefill := ocr.Match(receipt, view.Sponsors)
	view.Receipt = &prefill.Receipt
	view.Confidence = prefill.Confidence
	view.Form.Amount = amountValue(receipt.Amount)
	view.Form.Method = core.MethodInstapay
	view.Form.OCRRaw = receipt.Raw
	if prefill.Sponsor != nil {
		view.Form.SponsorID = prefill.Sponsor.ID
		if view.Split, err = s.split(ctx, prefill.Sponsor.ID, receipt.Amount); err != nil {
			slog.WarnContext(ctx, "Sponsor split failed", "sponsor_id", prefill.Sponsor.ID, "error", err)
		}
	}
	s.render(w, r, http.StatusOK, "collect_form", view)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	f := collectForm{
		SponsorID:     formValue(r, "sponsor_id"),
		Month:         formValue(r, "month"),
		Amount:        formValue(r, "amount"),
		Fixed:         formValue(r, "fixed"),
		Extra:         formValue(r, "extra"),
		Sadaqat:       formValue(r, "sadaqat"),
		Method:        formValue(r, "method"),
		ReceivedBy:    formValue(r, "received_by"),
		AdvanceType:   formValue(r, "advance_type"),
		AdvanceMonths: ParseIntValue(r.PostForm, "advance_months", 1),
		Notes:         formValue(r, "notes"),
		OCRRaw:        r.PostForm.Get("ocr_raw"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	month, _ := core.ParseMonth(f.Month)
	amount := amountOrZero(f.Amount)
	fixed, extra, sadaqat := amountOrZero(f.Fixed), amountOrZero(f.Extra), amountOrZero(f.Sadaqat)
	if fixed.IsZero() && extra.IsZero() && sadaqat.IsZero() {
		split, err := s.split(ctx, f.SponsorID, amount)
		if err != nil {
			slog.ErrorContext(ctx, "Sponsor split failed", "sponsor_id", f.SponsorID, "error", err)
			InternalServerError("تعذر حساب التوزيع").Write(w)
			return
		}
		fixed, sadaqat = split.Fixed, split.Sadaqat
	}
	advType, months := advanceMonths(f.AdvanceType, f.AdvanceMonths)

	sponsors, err := s.deps.Registry.Sponsors(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sponsor lookup failed", "error", err)
		InternalServerError("تعذر تحميل الكفلاء").Write(w)
		return
	}
	sponsor, ok := sponsorByID(sponsors, f.SponsorID)
	if !ok {
		UnprocessableEntityError("الكفيل غير موجود").Write(w)
		return
	}

	res, err := s.deps.Collections.SaveCollection(ctx, services.SaveCollectionRequest{
		SponsorID:     sponsor.ID,
		SponsorName:   sponsor.Name,
		Month:         month,
		Amount:        amount,
		Fixed:         fixed,
		Extra:         extra,
		Sadaqat:       sadaqat,
		ReceivedBy:    f.ReceivedBy,
		Method:        f.Method,
		OCRRaw:        f.OCRRaw,
		Notes:         f.Notes,
		AdvanceType:   advType,
		AdvanceMonths: months,
	})
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Collection save failed", err,
			applog.ComponentCollection, applog.OpCreate, applog.NewFields().Sponsor(sponsor.ID).Month(month.String()))
		// earlier rows of a multi-step save stay in place
		if res.CollectionID != "" {
			InternalServerError("تم حفظ الدفعة لكن فشلت بعض الخطوات التالية").Write(w)
			return
		}
		InternalServerError("فشل حفظ الدفعة").Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogCollectionRecorded(ctx,
		res.CollectionID, sponsor.ID, month.String(), amount.Cents, sadaqat.Cents)
	s.deps.Metrics.CollectionRecorded(amount.Cents)

	html, err := s.renderHTML("collect_done", collectDone{
		SponsorName:  sponsor.Name,
		Amount:       amount,
		Month:        month,
		Placeholders: res.Placeholders,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		html = ""
	}
	b := NewHTMXResponse().
		CollectionSaved(month.String()).
		Notify("تم تسجيل " + amount.EGP() + " من " + sponsor.Name).
		ResetForm()
	if sadaqat.Cents > 0 {
		b.SadaqatChanged(month.String())
	}
	b.HTML(html).Write(w)
}

// handleCollectionsExport downloads the month's collections as a workbook.
func (s *Server) handleCollectionsExport(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthValue(r.URL.Query(), "month", core.CurrentMonth(s.now()))
	rows, err := s.deps.Collections.MonthSheet(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Collections export load failed", "month", month.String(), "error", err)
		InternalServerError("تعذر تحميل التحصيلات").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := export.Collections(&buf, month, rows); err != nil {
		slog.ErrorContext(r.Context(), "Collections export failed", "month", month.String(), "error", err)
		InternalServerError("تعذر إنشاء الملف").Write(w)
		return
	}
	writeDownload(w, export.ContentType, export.CollectionsFilename(month), buf.Bytes())
}

func writeDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
