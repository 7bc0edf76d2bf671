package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// SadaqatService manages the general donation ledger.
type SadaqatService struct {
	store ports.Store
	now   func() time.Time
}

func NewSadaqatService(store ports.Store) *SadaqatService {
	return &SadaqatService{store: store, now: time.Now}
}

// Ledger is the sadaqat page: the filtered entries, newest first, with
// their totals and the per-cause breakdown.
type Ledger struct {
	Filter    core.MonthFilter
	Entries   []core.SadaqatEntry
	Summary   core.SadaqatSummary
	Breakdown []core.CauseTotal
	Inflows   []core.MonthGroup
	Outflows  []core.MonthGroup
}

// Entries loads the whole ledger once; the balance is computed over every
// month whatever the filter.
func (s *SadaqatService) Entries(ctx context.Context, filter core.MonthFilter) (Ledger, error) {
	all, err := s.store.ListSadaqat(ctx, ports.SadaqatFilter{})
	if err != nil {
		return Ledger{}, fmt.Errorf("load sadaqat: %w", err)
	}
	filtered := core.FilterSadaqat(all, filter)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return Ledger{
		Filter:    filter,
		Entries:   filtered,
		Summary:   core.SummarizeSadaqat(all, filter),
		Breakdown: core.CauseBreakdown(filtered),
		Inflows:   core.GroupByMonth(filtered, core.Inflow),
		Outflows:  core.GroupByMonth(filtered, core.Outflow),
	}, nil
}

// NewEntry is a manual ledger entry.
type NewEntry struct {
	Type        core.TransactionType
	Amount      core.Money
	Cause       string
	DonorName   string
	Description string
	Notes       string
	CaseID      string
	Month       core.Month
}

// AddEntry validates and inserts a manual entry. The donor is kept only on
// inflows; the description falls back to the notes.
func (s *SadaqatService) AddEntry(ctx context.Context, in NewEntry) (core.SadaqatEntry, error) {
	e := core.SadaqatEntry{
		Type:              in.Type,
		Amount:            in.Amount,
		Cause:             strings.TrimSpace(in.Cause),
		DestinationCaseID: in.CaseID,
		Month:             in.Month,
		CreatedAt:         s.now().UTC(),
	}
	if in.Type == core.Inflow {
		e.DonorName = strings.TrimSpace(in.DonorName)
	}
	e.DestinationDescription = strings.TrimSpace(in.Description)
	if e.DestinationDescription == "" {
		e.DestinationDescription = strings.TrimSpace(in.Notes)
	}
	if err := e.Validate(); err != nil {
		return core.SadaqatEntry{}, err
	}
	id, err := s.store.CreateSadaqat(ctx, e)
	if err != nil {
		return core.SadaqatEntry{}, fmt.Errorf("add sadaqat entry: %w", err)
	}
	e.ID = id
	return e, nil
}

// Summary totals the ledger for the filter.
func (s *SadaqatService) Summary(ctx context.Context, filter core.MonthFilter) (core.SadaqatSummary, error) {
	all, err := s.store.ListSadaqat(ctx, ports.SadaqatFilter{})
	if err != nil {
		return core.SadaqatSummary{}, fmt.Errorf("load sadaqat: %w", err)
	}
	return core.SummarizeSadaqat(all, filter), nil
}

// Breakdown groups the filtered entries by cause.
func (s *SadaqatService) Breakdown(ctx context.Context, filter core.MonthFilter) ([]core.CauseTotal, error) {
	all, err := s.store.ListSadaqat(ctx, ports.SadaqatFilter{})
	if err != nil {
		return nil, fmt.Errorf("load sadaqat: %w", err)
	}
	return core.CauseBreakdown(core.FilterSadaqat(all, filter)), nil
}
