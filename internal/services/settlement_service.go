package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// SettlementService drives the monthly settlement workflow: editing the
// area table, allocating the month's sadaqat and recording the totals.
type SettlementService struct {
	store  ports.Store
	events ports.EventPublisher
	now    func() time.Time
}

func NewSettlementService(store ports.Store, events ports.EventPublisher) *SettlementService {
	return &SettlementService{store: store, events: events, now: time.Now}
}

// LoadRows builds the table for an area and month. An empty areaID is the
// manual mode, which starts with no rows.
func (s *SettlementService) LoadRows(ctx context.Context, areaID string, month core.Month) ([]core.SettleRow, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	if areaID == "" {
		return []core.SettleRow{}, nil
	}
	sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{AreaID: areaID})
	if err != nil {
		return nil, fmt.Errorf("load area sponsorships: %w", err)
	}
	adjs, err := s.store.ListAdjustments(ctx, month, core.OneTimeExtra)
	if err != nil {
		return nil, fmt.Errorf("load extras: %w", err)
	}
	return core.BuildSettleRows(sps, adjs), nil
}

// AvailableSponsorships lists every active sponsorship for the add-row
// search.
func (s *SettlementService) AvailableSponsorships(ctx context.Context) ([]core.Sponsorship, error) {
	sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{})
	if err != nil {
		return nil, fmt.Errorf("load sponsorships: %w", err)
	}
	return sps, nil
}

// NewCaseRow is a case created from inside the settlement table.
type NewCaseRow struct {
	ChildName    string
	GuardianName string
	SponsorName  string
	AreaID       string
	Type         core.CaseType
	Fixed        core.Money
}

// CreateCaseRow finds the sponsor by name (case-insensitive) or inserts it,
// then inserts the case and its sponsorship, and returns the new table row.
func (s *SettlementService) CreateCaseRow(ctx context.Context, in NewCaseRow) (core.SettleRow, error) {
	child := strings.TrimSpace(in.ChildName)
	sponsorName := strings.TrimSpace(in.SponsorName)
	if child == "" || sponsorName == "" {
		return core.SettleRow{}, core.ErrEmptyName
	}
	if in.Fixed.Cents <= 0 {
		return core.SettleRow{}, core.ErrInvalidAmount
	}

	sponsor, err := s.store.FindSponsorByName(ctx, sponsorName)
	switch {
	case errors.Is(err, core.ErrNotFound):
		next, err := s.store.NextLegacyID(ctx)
		if err != nil {
			return core.SettleRow{}, fmt.Errorf("next legacy id: %w", err)
		}
		sponsor = core.Sponsor{Name: sponsorName, LegacyID: next, IsActive: true, PaymentFrequency: core.AdvanceMonthly}
		sponsor.ID, err = s.store.CreateSponsor(ctx, sponsor)
		if err != nil {
			return core.SettleRow{}, fmt.Errorf("create sponsor: %w", err)
		}
	case err != nil:
		return core.SettleRow{}, fmt.Errorf("find sponsor: %w", err)
	}

	typ := in.Type
	if typ == "" {
		typ = core.CaseOrphan
	}
	c := core.Case{
		ChildName:    child,
		GuardianName: strings.TrimSpace(in.GuardianName),
		AreaID:       in.AreaID,
		Type:         typ,
		Status:       core.StatusActive,
	}
	caseID, err := s.store.CreateCase(ctx, c)
	if err != nil {
		return core.SettleRow{}, fmt.Errorf("create case: %w", err)
	}
	sp := core.Sponsorship{
		SponsorID:    sponsor.ID,
		CaseID:       caseID,
		FixedAmount:  in.Fixed,
		Status:       core.StatusActive,
		SponsorName:  sponsorName,
		ChildName:    child,
		GuardianName: c.GuardianName,
		AreaID:       in.AreaID,
	}
	sp.ID, err = s.store.CreateSponsorship(ctx, sp)
	if err != nil {
		return core.SettleRow{}, fmt.Errorf("create sponsorship: %w", err)
	}
	return core.NewSettleRow(sp), nil
}

// Save persists the edited table. Every planned write is attempted; errors
// are collected and returned together, and successful writes stay.
func (s *SettlementService) Save(ctx context.Context, month core.Month, rows []core.SettleRow) error {
	if err := month.Validate(); err != nil {
		return err
	}
	var errs []error
	for _, a := range core.PlanSettlement(month, rows) {
		if err := s.apply(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", a.Kind, a.SponsorshipID+a.AdjustmentID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SettlementService) apply(ctx context.Context, a core.SettleAction) error {
	switch a.Kind {
	case core.ActionUpdateExtra:
		return s.store.UpdateAdjustmentAmount(ctx, a.AdjustmentID, a.Amount)
	case core.ActionDeleteExtra:
		return s.store.DeleteAdjustment(ctx, a.AdjustmentID)
	case core.ActionInsertExtra:
		_, err := s.store.CreateAdjustment(ctx, a.Adjustment)
		return err
	case core.ActionRaiseFixed:
		if err := s.store.UpdateSponsorshipFixed(ctx, a.SponsorshipID, a.Amount); err != nil {
			return err
		}
		_, err := s.store.CreateAdjustment(ctx, a.Adjustment)
		return err
	}
	return fmt.Errorf("unknown settlement action %d", a.Kind)
}

// Allocation returns the month's sadaqat inflow against the outflows
// recorded so far.
func (s *SettlementService) Allocation(ctx context.Context, month core.Month) (core.Allocation, error) {
	in, err := s.store.ListSadaqat(ctx, ports.SadaqatFilter{Month: month, Type: core.Inflow})
	if err != nil {
		return core.Allocation{}, fmt.Errorf("load inflow: %w", err)
	}
	out, err := s.store.ListSadaqat(ctx, ports.SadaqatFilter{Month: month, Type: core.Outflow})
	if err != nil {
		return core.Allocation{}, fmt.Errorf("load outflows: %w", err)
	}
	var inflow core.Money
	for _, e := range in {
		inflow = inflow.Add(e.Amount)
	}
	return core.Allocate(inflow, out), nil
}

// Outflow is a sadaqat distribution added during settlement, either to a
// sponsored case or to an external recipient.
type Outflow struct {
	Month           core.Month
	CaseID          string
	RecipientName   string
	RecipientDetail string
	Amount          core.Money
	Reason          string
	ApprovedBy      string
}

// AddOutflow records a distribution of the month's sadaqat.
func (s *SettlementService) AddOutflow(ctx context.Context, o Outflow) (core.SadaqatEntry, error) {
	if err := o.Amount.Validate(); err != nil {
		return core.SadaqatEntry{}, err
	}
	if o.CaseID == "" && strings.TrimSpace(o.RecipientName) == "" {
		return core.SadaqatEntry{}, core.ErrEmptyName
	}
	e := core.SadaqatEntry{
		Type:       core.Outflow,
		Amount:     o.Amount,
		Month:      o.Month,
		Reason:     strings.TrimSpace(o.Reason),
		ApprovedBy: o.ApprovedBy,
		CreatedAt:  s.now().UTC(),
	}
	var c *core.Case
	if o.CaseID != "" {
		found, err := s.store.GetCase(ctx, o.CaseID)
		if err != nil {
			return core.SadaqatEntry{}, fmt.Errorf("load case: %w", err)
		}
		c = &found
		e.Cause = core.DestinationKafalaCase
		e.DestinationCaseID = o.CaseID
	} else {
		e.Cause = core.DestinationOneTime
	}
	e.DestinationDescription = core.OutflowDescription(c, strings.TrimSpace(o.RecipientName), strings.TrimSpace(o.RecipientDetail), e.Reason)
	if err := e.Validate(); err != nil {
		return core.SadaqatEntry{}, err
	}
	id, err := s.store.CreateSadaqat(ctx, e)
	if err != nil {
		return core.SadaqatEntry{}, fmt.Errorf("add outflow: %w", err)
	}
	e.ID = id
	return e, nil
}

func (s *SettlementService) RemoveOutflow(ctx context.Context, id string) error {
	if err := s.store.DeleteSadaqat(ctx, id); err != nil {
		return fmt.Errorf("remove outflow: %w", err)
	}
	return nil
}

// Finalize records the area's grand totals for the month and announces the
// settlement. The event is best effort.
func (s *SettlementService) Finalize(ctx context.Context, areaID string, month core.Month, rows []core.SettleRow) (core.SettleTotals, error) {
	totals := core.TotalSettlement(rows)
	if areaID == "" {
		return totals, nil
	}
	if err := s.store.UpsertDisbursement(ctx, core.Disbursement{
		AreaID:      areaID,
		Month:       month,
		FixedTotal:  totals.GrandFixed,
		ExtrasTotal: totals.GrandExtras,
	}); err != nil {
		return totals, fmt.Errorf("record disbursement: %w", err)
	}

	if s.events == nil {
		return totals, nil
	}
	if err := s.events.PublishSettlementSaved(ctx, ports.SettlementSaved{
		AreaID:      areaID,
		Month:       month.String(),
		FixedCents:  totals.GrandFixed.Cents,
		ExtrasCents: totals.GrandExtras.Cents,
		Rows:        totals.Count,
		Timestamp:   s.now().UTC(),
	}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish settlement event",
			"area_id", areaID, "month", month.String(), "error", err)
	}
	return totals, nil
}

// ReceivingCases lists the active cases that can receive sadaqat, with
// their area names, filtered by a child, guardian or area substring.
func (s *SettlementService) ReceivingCases(ctx context.Context, query string, limit int) ([]core.Case, error) {
	cases, err := s.store.ListCases(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	q := strings.TrimSpace(query)
	out := make([]core.Case, 0, len(cases))
	for _, c := range cases {
		if q != "" && !strings.Contains(c.ChildName, q) && !strings.Contains(c.GuardianName, q) && !strings.Contains(c.AreaName, q) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
