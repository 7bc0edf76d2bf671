package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"khidma/internal/core"
	"khidma/internal/services"
)

const (
	tabOverview  = "overview"
	tabSponsors  = "sponsors"
	tabSadaqat   = "sadaqat"
	tabLocations = "locations"
)

type tabOption struct {
	ID    string
	Label string
}

var dashboardTabs = []tabOption{
	{tabOverview, "نظرة عامة"},
	{tabSponsors, "أرصدة الكفلاء"},
	{tabSadaqat, "صندوق الصدقات"},
	{tabLocations, "التوزيع الشهري"},
}

type dashboardView struct {
	page
	Months   []core.MonthOption
	Filter   core.MonthFilter
	Tab      string
	Tabs     []tabOption
	D        core.Dashboard
	Sponsors []core.SponsorBalance
	Query    string
	Sort     string
	Ledger   services.Ledger
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboardView(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard load failed", "error", err)
		InternalServerError("تعذر تحميل البيانات").Write(w)
		return
	}
	view.Months = filterMonths(s.now())
	s.render(w, r, http.StatusOK, "dashboard_page", view)
}

// handleDashboardTab returns one tab for the given month, used by the tab
// bar, the month select and the sponsor search.
func (s *Server) handleDashboardTab(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboardView(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard tab load failed", "error", err, "tab", view.Tab)
		InternalServerError("تعذر تحميل البيانات").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard_tab", view)
}

func (s *Server) dashboardView(r *http.Request) (dashboardView, error) {
	q := r.URL.Query()
	view := dashboardView{
		page:   page{Title: "الرئيسية", Active: "home"},
		Filter: ParseMonthFilterValue(q, "month", core.MonthFilter{Month: core.WorkingMonth(s.now())}),
		Tab:    q.Get("tab"),
		Tabs:   dashboardTabs,
		Query:  sanitizeInput(q.Get("q")),
		Sort:   q.Get("sort"),
	}
	switch view.Tab {
	case tabSponsors, tabSadaqat, tabLocations:
	default:
		view.Tab = tabOverview
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := s.deps.Dashboard.Dashboard(ctx, view.Filter)
	if err != nil {
		return view, err
	}
	view.D = d
	view.Sponsors = core.FilterSponsorBalances(d.Sponsors, view.Query, view.Sort)
	if view.Tab == tabSadaqat {
		view.Ledger, err = s.deps.Sadaqat.Entries(ctx, view.Filter)
		if err != nil {
			return view, err
		}
	}
	return view, nil
}
