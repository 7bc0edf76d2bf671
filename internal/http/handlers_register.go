package http

import (
	"errors"
	"log/slog"
	"net/http"

	"khidma/internal/core"
	applog "khidma/internal/log"
	"khidma/internal/services"
)

type registerView struct {
	page
	Areas     []core.Area
	Sponsors  []core.Sponsor
	Operators []core.Operator
	CaseTypes []core.CaseType
}

type registerDone struct {
	Kind    string
	Name    string
	Warning string
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := registerView{
		page:      page{Title: "تسجيل كفيل أو حالة", Active: "register"},
		CaseTypes: core.CaseTypes(),
	}
	var err error
	if view.Areas, err = s.deps.Registry.Areas(ctx, true); err == nil {
		if view.Sponsors, err = s.deps.Registry.Sponsors(ctx); err == nil {
			view.Operators, err = s.deps.Registry.Operators(ctx)
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "Register page load failed", "error", err)
		InternalServerError("تعذر تحميل البيانات").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "register_page", view)
}

func (s *Server) handleRegisterSponsor(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	f := sponsorForm{
		Name:        formValue(r, "name"),
		Phone:       formValue(r, "phone"),
		Frequency:   formValue(r, "frequency"),
		Responsible: formValue(r, "responsible"),
		Notes:       formValue(r, "notes"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	sp, err := s.deps.Registry.CreateSponsor(ctx, core.Sponsor{
		Name:                  f.Name,
		Phone:                 f.Phone,
		PaymentFrequency:      f.Frequency,
		ResponsibleOperatorID: f.Responsible,
		Notes:                 f.Notes,
	})
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Sponsor create failed", err,
			applog.ComponentRegistry, applog.OpCreate, applog.NewFields())
		InternalServerError("فشل حفظ الكفيل").Write(w)
		return
	}
	slog.InfoContext(ctx, "Sponsor registered", "sponsor_id", sp.ID, "legacy_id", sp.LegacyID)
	s.writeRegisterDone(w, r, registerDone{Kind: "sponsor", Name: sp.Name}, "تم تسجيل الكفيل "+sp.Name)
}

func (s *Server) handleRegisterCase(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	f := caseForm{
		ChildName:    formValue(r, "child_name"),
		GuardianName: formValue(r, "guardian_name"),
		AreaID:       formValue(r, "area_id"),
		Type:         formValue(r, "type"),
		SponsorID:    formValue(r, "sponsor_id"),
		Fixed:        formValue(r, "fixed"),
		Notes:        formValue(r, "notes"),
	}
	if err := s.validate.Struct(f); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	c := core.Case{
		ChildName:    f.ChildName,
		GuardianName: f.GuardianName,
		AreaID:       f.AreaID,
		Type:         core.CaseType(f.Type),
		Notes:        f.Notes,
	}
	id, err := s.deps.Registry.CreateCase(ctx, services.NewCase{
		Case:        c,
		SponsorID:   f.SponsorID,
		FixedAmount: amountOrZero(f.Fixed),
	})
	done := registerDone{Kind: "case", Name: c.ChildName}
	switch {
	case err == nil:
	case errors.Is(err, services.ErrSponsorshipFailed) && id != "":
		slog.WarnContext(ctx, "Case saved without sponsorship", "case_id", id, "error", err)
		done.Warning = "تم حفظ الحالة لكن تعذر ربطها بالكفيل"
	default:
		if msg, ok := domainMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Case create failed", err,
			applog.ComponentRegistry, applog.OpCreate, applog.NewFields())
		InternalServerError("فشل حفظ الحالة").Write(w)
		return
	}
	slog.InfoContext(ctx, "Case registered", "case_id", id, "sponsor_id", f.SponsorID)
	s.writeRegisterDone(w, r, done, "تم تسجيل الحالة "+c.ChildName)
}

func (s *Server) writeRegisterDone(w http.ResponseWriter, r *http.Request, done registerDone, msg string) {
	html, err := s.renderHTML("register_done", done)
	if err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err)
		InternalServerError("تعذر عرض النتيجة").Write(w)
		return
	}
	b := NewHTMXResponse().RegistryChanged().ResetForm()
	if done.Warning != "" {
		b.NotifyError(done.Warning)
	} else {
		b.Notify(msg)
	}
	b.HTML(html).Write(w)
}
