package http

import (
	"log/slog"
	"net/http"

	"khidma/internal/core"
	applog "khidma/internal/log"
	"khidma/internal/services"
)

type sadaqatView struct {
	page
	Filter      core.MonthFilter
	Filters     []core.MonthOption
	EntryMonths []core.MonthOption
	EntryMonth  core.Month
	Causes      []string
	Cases       []core.Case
	Ledger      services.Ledger
}

func (s *Server) handleSadaqatPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := sadaqatView{
		page:        page{Title: "صندوق الصدقات", Active: "sadaqat"},
		Filter:      ParseMonthFilterValue(r.URL.Query(), "month", core.MonthFilter{All: true}),
		Filters:     core.MonthOptions(s.now(), 0, 24, true),
		EntryMonths: collectMonths(s.now()),
		EntryMonth:  core.CurrentMonth(s.now()),
		Causes:      core.Causes,
	}
	var err error
	if view.Ledger, err = s.deps.Sadaqat.Entries(ctx, view.Filter); err != nil {
		slog.ErrorContext(ctx, "Ledger load failed", "filter", view.Filter.String(), "error", err)
		InternalServerError("تعذر تحميل الصدقات").Write(w)
		return
	}
	if r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Target") == "ledger" {
		s.render(w, r, http.StatusOK, "sadaqat_ledger", view)
		return
	}
	if view.Cases, err = s.deps.Settlement.ReceivingCases(ctx, "", 0); err != nil {
		slog.ErrorContext(ctx, "Cases load failed", "error", err)
		InternalServerError("تعذر تحميل الحالات").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "sadaqat_page", view)
}

func (s *Server) handleAddSadaqat(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	f := sadaqatForm{
		Type:        formValue(r, "type"),
		Month:       formValue(r, "month"),
		Amount:      formValue(r, "amount"),
		Cause:       formValue(r, "cause"),
		DonorName:   formValue(r, "donor_name"),
		Description: formValue(r, "description"),
		Notes:       formValue(r, "notes"),
		CaseID:      formValue(r, "case_id"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	month, _ := core.ParseMonth(f.Month)
	e, err := s.deps.Sadaqat.AddEntry(ctx, services.NewEntry{
		Type:        core.TransactionType(f.Type),
		Amount:      amountOrZero(f.Amount),
		Cause:       f.Cause,
		DonorName:   f.DonorName,
		Description: f.Description,
		Notes:       f.Notes,
		CaseID:      f.CaseID,
		Month:       month,
	})
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Sadaqat entry failed", err,
			applog.ComponentSadaqat, applog.OpCreate, applog.NewFields().Month(month.String()))
		InternalServerError("فشل حفظ القيد").Write(w)
		return
	}
	slog.InfoContext(ctx, "Sadaqat entry added", "id", e.ID, "type", string(e.Type), "amount_cents", e.Amount.Cents)

	filter := ParseMonthFilterValue(r.PostForm, "filter", core.MonthFilter{All: true})
	ledger, err := s.deps.Sadaqat.Entries(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger load failed", "error", err)
		InternalServerError("تعذر تحميل الصدقات").Write(w)
		return
	}
	html, err := s.renderHTML("sadaqat_ledger", sadaqatView{Filter: filter, Ledger: ledger})
	if err != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", err)
		InternalServerError("تعذر عرض السجل").Write(w)
		return
	}
	label := "وارد"
	if e.Type == core.Outflow {
		label = "صرف"
	}
	NewHTMXResponse().
		SadaqatChanged(month.String()).
		Notify("تم تسجيل " + label + " " + e.Amount.EGP()).
		ResetForm().
		HTML(html).
		Write(w)
}
