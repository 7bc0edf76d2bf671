package http

import (
	"log/slog"
	"net/http"

	"khidma/internal/core"
)

type tahseelView struct {
	page
	Month     core.Month
	Months    []core.MonthOption
	Rows      []core.PendingRow
	Operators []core.Operator
	Total     core.Money
}

type tahseelDone struct {
	Month   core.Month
	Summary core.ConfirmationSummary
	Error   string
}

func (s *Server) handleTahseelPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := tahseelView{
		page:   page{Title: "التحصيل النقدي", Active: "tahseel"},
		Month:  ParseMonthValue(r.URL.Query(), "month", core.CurrentMonth(s.now())),
		Months: collectMonths(s.now()),
	}
	var err error
	if view.Rows, err = s.deps.Collections.PendingCollections(ctx, view.Month); err != nil {
		slog.ErrorContext(ctx, "Pending collections load failed", "month", view.Month.String(), "error", err)
		InternalServerError("تعذر تحميل المستحقات").Write(w)
		return
	}
	if view.Operators, err = s.deps.Registry.Operators(ctx); err != nil {
		slog.ErrorContext(ctx, "Operators load failed", "error", err)
		InternalServerError("تعذر تحميل المحصلين").Write(w)
		return
	}
	for _, row := range view.Rows {
		view.Total = view.Total.Add(row.Outstanding)
	}
	s.render(w, r, http.StatusOK, "tahseel_page", view)
}

// handleTahseelConfirm records the checked sponsors as paid in cash. Each
// row posts amount_<sponsor id> and operator_<sponsor id>.
func (s *Server) handleTahseelConfirm(w http.ResponseWriter, r *http.Request) {
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
	ids := r.PostForm["confirm"]
	if len(ids) == 0 {
		UnprocessableEntityError("اختر كفيلاً واحداً على الأقل").Write(w)
		return
	}

	confs := make([]core.Confirmation, 0, len(ids))
	for _, id := range ids {
		amount, err := core.ParseAmount(r.PostForm.Get("amount_" + id))
		if err != nil {
			name := sanitizeInput(r.PostForm.Get("name_" + id))
			UnprocessableEntityError("المبلغ غير صالح: " + name).Write(w)
			return
		}
		confs = append(confs, core.Confirmation{
			SponsorID:   id,
			SponsorName: sanitizeInput(r.PostForm.Get("name_" + id)),
			OperatorID:  r.PostForm.Get("operator_" + id),
			Amount:      amount,
		})
	}

	summary, err := s.deps.Collections.ConfirmCollections(ctx, confs, month)
	done := tahseelDone{Month: month, Summary: summary}
	if err != nil {
		slog.ErrorContext(ctx, "Some confirmations failed", "month", month.String(), "error", err)
		done.Error = "تعذر تأكيد بعض الدفعات"
	}
	s.deps.Metrics.CollectionRecorded(summary.Total.Cents)

	html, rerr := s.renderHTML("tahseel_done", done)
	if rerr != nil {
		slog.ErrorContext(ctx, "Template execution failed", "error", rerr)
		InternalServerError("تعذر عرض النتيجة").Write(w)
		return
	}
	b := NewHTMXResponse().CollectionSaved(month.String())
	if done.Error != "" {
		b.NotifyError(done.Error)
	} else {
		b.Notify("تم تأكيد " + summary.Total.EGP())
	}
	b.HTML(html).Write(w)
}
