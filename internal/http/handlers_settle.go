package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"khidma/internal/core"
	applog "khidma/internal/log"
	"khidma/internal/services"
)

// Settlement runs in four steps: pick the area and month, edit the table,
// distribute the month's sadaqat, print the reports.

// receivingCasesLimit bounds the case search of the sadaqat step.
const receivingCasesLimit = 30

type settleStep struct {
	page
	Step      int
	Month     core.Month
	Months    []core.MonthOption
	AreaID    string
	AreaName  string
	Areas     []core.Area
	Rows      []core.SettleRow
	Totals    core.SettleTotals
	Available []core.Sponsorship
	CaseTypes []core.CaseType
	Alloc     core.Allocation
	Operators []core.Operator
	Cases     []core.Case
	// Partial is set when the table is reloaded after a save that only
	// wrote some rows.
	Partial bool
}

func (s *Server) newSettleStep(r *http.Request, step int) settleStep {
	q := r.URL.Query()
	return settleStep{
		page:   page{Title: "التسوية الشهرية", Active: "settle"},
		Step:   step,
		Month:  ParseMonthValue(q, "month", core.CurrentMonth(s.now())),
		Months: core.SettleMonths(s.now()),
		AreaID: q.Get("area"),
	}
}

// settleQuery is the area and month carried from step to step.
func settleQuery(areaID string, month core.Month) string {
	v := url.Values{}
	v.Set("month", month.String())
	if areaID != "" {
		v.Set("area", areaID)
	}
	return v.Encode()
}

func (s *Server) loadAreas(r *http.Request, view *settleStep) error {
	areas, err := s.deps.Registry.Areas(r.Context(), true)
	if err != nil {
		return err
	}
	view.Areas = areas
	if view.AreaID == "" {
		view.AreaName = "يدوي"
	} else {
		view.AreaName = areaName(areas, view.AreaID)
	}
	return nil
}

func (s *Server) handleSettleAreaStep(w http.ResponseWriter, r *http.Request) {
	view := s.newSettleStep(r, 1)
	if err := s.loadAreas(r, &view); err != nil {
		slog.ErrorContext(r.Context(), "Areas load failed", "error", err)
		InternalServerError("تعذر تحميل المناطق").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "settle_area_page", view)
}

func (s *Server) handleSettleTableStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := s.newSettleStep(r, 2)
	view.CaseTypes = core.CaseTypes()
	view.Partial = r.URL.Query().Get("saved") == "partial"
	if err := s.loadAreas(r, &view); err != nil {
		slog.ErrorContext(ctx, "Areas load failed", "error", err)
		InternalServerError("تعذر تحميل المناطق").Write(w)
		return
	}
	var err error
	if view.Rows, err = s.deps.Settlement.LoadRows(ctx, view.AreaID, view.Month); err != nil {
		slog.ErrorContext(ctx, "Settlement rows load failed", "area_id", view.AreaID, "month", view.Month.String(), "error", err)
		InternalServerError("تعذر تحميل جدول التسوية").Write(w)
		return
	}
	if view.Available, err = s.deps.Settlement.AvailableSponsorships(ctx); err != nil {
		slog.ErrorContext(ctx, "Sponsorships load failed", "error", err)
		InternalServerError("تعذر تحميل الكفالات").Write(w)
		return
	}
	view.Totals = core.TotalSettlement(view.Rows)
	s.render(w, r, http.StatusOK, "settle_table_page", view)
}

// handleSettleRow returns a table row for a sponsorship picked from the
// add-row search. The rows already in the table come along as row=<id>.
func (s *Server) handleSettleRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	id := q.Get("sponsorship")
	if id == "" {
		UnprocessableEntityError("اختر الكفالة").Write(w)
		return
	}
	available, err := s.deps.Settlement.AvailableSponsorships(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sponsorships load failed", "error", err)
		InternalServerError("تعذر تحميل الكفالات").Write(w)
		return
	}
	var sp *core.Sponsorship
	for i := range available {
		if available[i].ID == id {
			sp = &available[i]
			break
		}
	}
	if sp == nil {
		NotFoundError("الكفالة غير موجودة").Write(w)
		return
	}
	existing := make([]core.SettleRow, 0, len(q["row"]))
	for _, rid := range q["row"] {
		existing = append(existing, core.SettleRow{SponsorshipID: rid})
	}
	rows, added := core.AddSettleRow(existing, *sp)
	if !added {
		UnprocessableEntityError("الكفالة موجودة في الجدول").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "settle_row", rows[len(rows)-1])
}

func (s *Server) handleSettleCreateCase(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	f := settleCaseForm{
		Month:        formValue(r, "month"),
		AreaID:       formValue(r, "area"),
		ChildName:    formValue(r, "child_name"),
		GuardianName: formValue(r, "guardian_name"),
		SponsorName:  formValue(r, "sponsor_name"),
		Type:         formValue(r, "type"),
		Fixed:        formValue(r, "fixed"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	if f.AreaID == "" {
		UnprocessableEntityError("اختر المنطقة لإضافة حالة جديدة").Write(w)
		return
	}
	row, err := s.deps.Settlement.CreateCaseRow(ctx, services.NewCaseRow{
		ChildName:    f.ChildName,
		GuardianName: f.GuardianName,
		SponsorName:  f.SponsorName,
		AreaID:       f.AreaID,
		Type:         core.CaseType(f.Type),
		Fixed:        amountOrZero(f.Fixed),
	})
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Settlement case create failed", err,
			applog.ComponentSettlement, applog.OpCreate, applog.NewFields())
		InternalServerError("فشل إضافة الحالة").Write(w)
		return
	}
	s.deps.Registry.Invalidate()
	html, err := s.renderHTML("settle_row", row)
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		InternalServerError("تعذر عرض الصف").Write(w)
		return
	}
	NewHTMXResponse().
		Notify("تمت إضافة " + row.ChildName).
		RegistryChanged().
		HTML(html).
		Write(w)
}

// parseSettleRows reads the table back from the posted form. Every row
// posts row=<sponsorship id> and its fields suffixed with that id.
func parseSettleRows(form url.Values) ([]core.SettleRow, error) {
	ids := form["row"]
	rows := make([]core.SettleRow, 0, len(ids))
	for _, id := range ids {
		get := func(k string) string { return sanitizeInput(form.Get(k + "_" + id)) }
		fixed, err := core.ParseAmountOrZero(get("fixed"))
		if err != nil {
			return nil, err
		}
		newFixed, err := core.ParseAmountOrZero(get("new_fixed"))
		if err != nil {
			return nil, err
		}
		extras, err := core.ParseAmountOrZero(get("extras"))
		if err != nil {
			return nil, err
		}
		newExtras, err := core.ParseAmountOrZero(get("new_extras"))
		if err != nil {
			return nil, err
		}
		rows = append(rows, core.SettleRow{
			SponsorshipID: id,
			SponsorID:     get("sponsor_id"),
			CaseID:        get("case_id"),
			ChildName:     get("child"),
			GuardianName:  get("guardian"),
			SponsorName:   get("sponsor_name"),
			Fixed:         fixed,
			NewFixed:      newFixed,
			Extras:        extras,
			NewExtras:     newExtras,
			ExtraAdjID:    get("extra_adj"),
			Included:      get("included") != "",
			Collected:     get("collected") != "",
			ReceivedBy:    get("received_by"),
		})
	}
	return rows, nil
}

func (s *Server) handleSettleSave(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	month, err := core.ParseMonth(r.PostForm.Get("month"))
	if err != nil {
		UnprocessableEntityError("الشهر غير صالح").Write(w)
		return
	}
	areaID := r.PostForm.Get("area")
	rows, err := parseSettleRows(r.PostForm)
	if err != nil {
		UnprocessableEntityError("أحد المبالغ غير صالح").Write(w)
		return
	}

	saveErr := s.deps.Settlement.Save(ctx, month, rows)
	if saveErr != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Settlement save incomplete", saveErr,
			applog.ComponentSettlement, applog.OpSettle, applog.NewFields().Area(areaID).Month(month.String()).Count(len(rows)))
	}
	totals, err := s.deps.Settlement.Finalize(ctx, areaID, month, rows)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Settlement finalize failed", err,
			applog.ComponentSettlement, applog.OpSettle, applog.NewFields().Area(areaID).Month(month.String()))
		InternalServerError("فشل حفظ إجمالي المنطقة").Write(w)
		return
	}
	if saveErr != nil {
		// The posted table is stale after a partial write. Reload it so the
		// next save sees the new adjustment ids and fixed amounts.
		NewHTMXResponse().
			Redirect("/settle/table?" + settleQuery(areaID, month) + "&saved=partial").
			Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogSettlementSaved(ctx, areaID, month.String(), totals.GrandTotal.Cents, totals.Count)
	s.deps.Metrics.SettlementFinalized()

	NewHTMXResponse().
		Notify("تم حفظ التسوية: " + totals.GrandTotal.EGP()).
		Redirect("/settle/sadaqat?" + settleQuery(areaID, month)).
		Write(w)
}

func (s *Server) handleSettleSadaqatStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := s.newSettleStep(r, 3)
	if err := s.loadAreas(r, &view); err != nil {
		slog.ErrorContext(ctx, "Areas load failed", "error", err)
		InternalServerError("تعذر تحميل المناطق").Write(w)
		return
	}
	var err error
	if view.Alloc, err = s.deps.Settlement.Allocation(ctx, view.Month); err != nil {
		slog.ErrorContext(ctx, "Allocation load failed", "month", view.Month.String(), "error", err)
		InternalServerError("تعذر تحميل الصدقات").Write(w)
		return
	}
	if view.Operators, err = s.deps.Registry.Operators(ctx); err != nil {
		slog.ErrorContext(ctx, "Operators load failed", "error", err)
		InternalServerError("تعذر تحميل المسؤولين").Write(w)
		return
	}
	if view.Cases, err = s.deps.Settlement.ReceivingCases(ctx, "", receivingCasesLimit); err != nil {
		slog.ErrorContext(ctx, "Cases load failed", "error", err)
		InternalServerError("تعذر تحميل الحالات").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "settle_sadaqat_page", view)
}

func (s *Server) handleSettleCaseSearch(w http.ResponseWriter, r *http.Request) {
	cases, err := s.deps.Settlement.ReceivingCases(r.Context(), sanitizeInput(r.URL.Query().Get("q")), receivingCasesLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Case search failed", "error", err)
		InternalServerError("تعذر البحث").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "settle_case_options", cases)
}

func (s *Server) handleSettleAddOutflow(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	f := outflowForm{
		Month:           formValue(r, "month"),
		CaseID:          formValue(r, "case_id"),
		RecipientName:   formValue(r, "recipient_name"),
		RecipientDetail: formValue(r, "recipient_detail"),
		Amount:          formValue(r, "amount"),
		Reason:          formValue(r, "reason"),
		ApprovedBy:      formValue(r, "approved_by"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	month, _ := core.ParseMonth(f.Month)
	e, err := s.deps.Settlement.AddOutflow(ctx, services.Outflow{
		Month:           month,
		CaseID:          f.CaseID,
		RecipientName:   f.RecipientName,
		RecipientDetail: f.RecipientDetail,
		Amount:          amountOrZero(f.Amount),
		Reason:          f.Reason,
		ApprovedBy:      f.ApprovedBy,
	})
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Outflow add failed", err,
			applog.ComponentSadaqat, applog.OpCreate, applog.NewFields())
		InternalServerError("فشل تسجيل الصرف").Write(w)
		return
	}
	slog.InfoContext(ctx, "Sadaqat outflow added", "id", e.ID, "month", month.String(), "amount_cents", e.Amount.Cents)
	s.writeAllocation(w, r, month, "تم تسجيل صرف "+e.Amount.EGP())
}

func (s *Server) handleSettleRemoveOutflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		UnprocessableEntityError("الشهر غير صالح").Write(w)
		return
	}
	if err := s.deps.Settlement.RemoveOutflow(ctx, r.PathValue("id")); err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Outflow remove failed", err,
			applog.ComponentSadaqat, applog.OpDelete, applog.NewFields())
		InternalServerError("فشل حذف الصرف").Write(w)
		return
	}
	s.writeAllocation(w, r, month, "تم حذف الصرف")
}

// writeAllocation re-renders the allocation panel after a change.
func (s *Server) writeAllocation(w http.ResponseWriter, r *http.Request, month core.Month, msg string) {
	ctx := r.Context()
	alloc, err := s.deps.Settlement.Allocation(ctx, month)
	if err != nil {
		slog.ErrorContext(ctx, "Allocation load failed", "month", month.String(), "error", err)
		InternalServerError("تعذر تحميل الصدقات").Write(w)
		return
	}
	html, err := s.renderHTML("settle_allocation", settleStep{Month: month, Alloc: alloc})
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		InternalServerError("تعذر عرض الصدقات").Write(w)
		return
	}
	NewHTMXResponse().
		SadaqatChanged(month.String()).
		Notify(msg).
		HTML(html).
		Write(w)
}

func (s *Server) handleSettleReportsStep(w http.ResponseWriter, r *http.Request) {
	view := s.newSettleStep(r, 4)
	if err := s.loadAreas(r, &view); err != nil {
		slog.ErrorContext(r.Context(), "Areas load failed", "error", err)
		InternalServerError("تعذر تحميل المناطق").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "settle_reports_page", view)
}
