package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"khidma/internal/core"
	"khidma/internal/match"
)

// PreviewLimit is the number of rows shown before importing.
const PreviewLimit = 20

// ImportedNote marks collections created by the importer.
const ImportedNote = "مستورد من Google Sheets"

// Skip reasons reported per row.
const (
	ReasonNoMatch       = "لم يُعثر على الكفيل"
	ReasonNoAmount      = "المبلغ غير صالح"
	ReasonNoMonth       = "الشهر غير صالح"
	ReasonNoName        = "الاسم فارغ"
	ReasonExists        = "موجود مسبقاً"
	ReasonNoArea        = "المنطقة غير موجودة"
	ReasonInsertFailed  = "فشل الحفظ"
	ReasonNoSponsorship = "لم تُنشأ كفالة"
)

// Store is what the importer reads and writes.
type Store interface {
	ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error)
	NextLegacyID(ctx context.Context) (int, error)
	CreateSponsor(ctx context.Context, s core.Sponsor) (string, error)
	ListAreas(ctx context.Context, activeOnly bool) ([]core.Area, error)
	CreateCase(ctx context.Context, c core.Case) (string, error)
	CreateSponsorship(ctx context.Context, sp core.Sponsorship) (string, error)
	CreateCollection(ctx context.Context, c core.Collection) (string, error)
}

// Skip explains why a row was not imported.
type Skip struct {
	Line   int
	Name   string
	Reason string
}

// Result counts what an import did.
type Result struct {
	Inserted int
	Skipped  int
	Skips    []Skip
	// Warnings are rows imported only in part.
	Warnings []Skip
}

func (r *Result) skip(row Row, name, reason string) {
	r.Skipped++
	r.Skips = append(r.Skips, Skip{Line: row.Line, Name: name, Reason: reason})
}

// Importer runs the three import kinds against the store.
type Importer struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// CollectionMapping names the columns holding each field.
type CollectionMapping struct {
	Name   string
	Amount string
	Month  string
}

func (m CollectionMapping) check(t Table) error {
	for _, c := range []string{m.Name, m.Amount, m.Month} {
		if c == "" || !t.HasColumn(c) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// PreviewRow is a row as it would be imported.
type PreviewRow struct {
	Line   int
	Name   string
	Amount core.Money
	Month  core.Month
	Match  *match.Result
	Reason string
}

// Importable reports whether the row will be inserted.
func (p PreviewRow) Importable() bool { return p.Reason == "" }

// PreviewCollections maps the first PreviewLimit rows.
func (im *Importer) PreviewCollections(ctx context.Context, t Table, m CollectionMapping) ([]PreviewRow, error) {
	return im.mapCollections(ctx, t, m, PreviewLimit)
}

// ImportCollections inserts a confirmed instapay collection for every row
// with a matched sponsor, an amount and a month.
func (im *Importer) ImportCollections(ctx context.Context, t Table, m CollectionMapping) (Result, error) {
	rows, err := im.mapCollections(ctx, t, m, 0)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for i, p := range rows {
		row := t.Rows[i]
		if !p.Importable() {
			res.skip(row, p.Name, p.Reason)
			continue
		}
		_, err := im.store.CreateCollection(ctx, core.Collection{
			SponsorID:     p.Match.ID,
			Month:         p.Month,
			Amount:        p.Amount,
			Fixed:         p.Amount,
			Method:        core.MethodInstapay,
			Status:        core.StatusConfirmed,
			Notes:         ImportedNote,
			AdvanceType:   core.AdvanceMonthly,
			AdvanceMonths: 1,
			CreatedAt:     im.now().UTC(),
		})
		if err != nil {
			slog.WarnContext(ctx, "Import collection failed", "line", row.Line, "error", err)
			res.skip(row, p.Name, ReasonInsertFailed)
			continue
		}
		res.Inserted++
	}
	slog.InfoContext(ctx, "Collections imported", "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

func (im *Importer) mapCollections(ctx context.Context, t Table, m CollectionMapping, limit int) ([]PreviewRow, error) {
	if err := m.check(t); err != nil {
		return nil, err
	}
	sponsors, err := im.store.ListSponsors(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load sponsors: %w", err)
	}
	candidates := match.Candidates(sponsors)

	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]PreviewRow, 0, len(rows))
	for _, row := range rows {
		p := PreviewRow{Line: row.Line, Name: row.Get(m.Name)}
		if r, ok := match.Best(p.Name, candidates); ok && p.Name != "" {
			p.Match = &r
		}
		amount, amountErr := core.ParseAmount(row.Get(m.Amount))
		p.Amount = amount
		month, monthErr := core.ParseMonth(row.Get(m.Month))
		p.Month = month
		switch {
		case p.Match == nil:
			p.Reason = ReasonNoMatch
		case amountErr != nil:
			p.Reason = ReasonNoAmount
		case monthErr != nil:
			p.Reason = ReasonNoMonth
		}
		out = append(out, p)
	}
	return out, nil
}

// SponsorMapping names the sponsor columns. Phone is optional.
type SponsorMapping struct {
	Name  string
	Phone string
}

// ImportSponsors inserts sponsors whose exact name is not already known,
// numbering them after the highest legacy id.
func (im *Importer) ImportSponsors(ctx context.Context, t Table, m SponsorMapping) (Result, error) {
	if m.Name == "" || !t.HasColumn(m.Name) {
		return Result{}, fmt.Errorf("%w: %q", ErrMissingColumn, m.Name)
	}
	existing, err := im.store.ListSponsors(ctx, false)
	if err != nil {
		return Result{}, fmt.Errorf("load sponsors: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[strings.TrimSpace(s.Name)] = true
	}
	next, err := im.store.NextLegacyID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("next legacy id: %w", err)
	}

	var res Result
	for _, row := range t.Rows {
		name := row.Get(m.Name)
		switch {
		case name == "":
			res.skip(row, name, ReasonNoName)
			continue
		case known[name]:
			res.skip(row, name, ReasonExists)
			continue
		}
		s := core.Sponsor{
			LegacyID:         next,
			Name:             name,
			PaymentFrequency: core.AdvanceMonthly,
			IsActive:         true,
			CreatedAt:        im.now().UTC(),
		}
		if m.Phone != "" {
			s.Phone = row.Get(m.Phone)
		}
		if err := s.Validate(); err != nil {
			res.skip(row, name, ReasonNoName)
			continue
		}
		if _, err := im.store.CreateSponsor(ctx, s); err != nil {
			slog.WarnContext(ctx, "Import sponsor failed", "line", row.Line, "error", err)
			res.skip(row, name, ReasonInsertFailed)
			continue
		}
		known[name] = true
		next++
		res.Inserted++
	}
	slog.InfoContext(ctx, "Sponsors imported", "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

// CaseMapping names the case columns. Guardian, Fixed and Sponsor are
// optional.
type CaseMapping struct {
	Child    string
	Guardian string
	Area     string
	Fixed    string
	Sponsor  string
}

// ImportCases inserts active orphan cases in known areas. When the row names
// a sponsor close enough to a known one and a positive fixed amount, a
// sponsorship is created too; otherwise the case is kept and a warning
// recorded.
func (im *Importer) ImportCases(ctx context.Context, t Table, m CaseMapping) (Result, error) {
	for _, c := range []string{m.Child, m.Area} {
		if c == "" || !t.HasColumn(c) {
			return Result{}, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	areas, err := im.store.ListAreas(ctx, false)
	if err != nil {
		return Result{}, fmt.Errorf("load areas: %w", err)
	}
	areaIDs := make(map[string]string, len(areas))
	for _, a := range areas {
		areaIDs[strings.TrimSpace(a.Name)] = a.ID
	}
	var candidates []match.Candidate
	if m.Sponsor != "" {
		sponsors, err := im.store.ListSponsors(ctx, true)
		if err != nil {
			return Result{}, fmt.Errorf("load sponsors: %w", err)
		}
		candidates = match.Candidates(sponsors)
	}

	var res Result
	for _, row := range t.Rows {
		child := row.Get(m.Child)
		if child == "" {
			res.skip(row, child, ReasonNoName)
			continue
		}
		areaID, ok := areaIDs[row.Get(m.Area)]
		if !ok {
			res.skip(row, child, ReasonNoArea)
			continue
		}
		c := core.Case{
			ChildName: child,
			AreaID:    areaID,
			Type:      core.CaseOrphan,
			Status:    core.StatusActive,
			CreatedAt: im.now().UTC(),
		}
		if m.Guardian != "" {
			c.GuardianName = row.Get(m.Guardian)
		}
		caseID, err := im.store.CreateCase(ctx, c)
		if err != nil {
			slog.WarnContext(ctx, "Import case failed", "line", row.Line, "error", err)
			res.skip(row, child, ReasonInsertFailed)
			continue
		}
		res.Inserted++

		if m.Sponsor == "" || row.Get(m.Sponsor) == "" {
			continue
		}
		if reason := im.sponsorCase(ctx, caseID, row, m, candidates); reason != "" {
			res.Warnings = append(res.Warnings, Skip{Line: row.Line, Name: child, Reason: reason})
		}
	}
	slog.InfoContext(ctx, "Cases imported",
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"warnings", len(res.Warnings))
	return res, nil
}

// sponsorCase links the imported case to the row's sponsor and returns a
// skip reason when it cannot.
func (im *Importer) sponsorCase(ctx context.Context, caseID string, row Row, m CaseMapping, candidates []match.Candidate) string {
	best, ok := match.Best(row.Get(m.Sponsor), candidates)
	if !ok {
		return ReasonNoMatch
	}
	var fixed core.Money
	if m.Fixed != "" {
		fixed, _ = core.ParseAmountOrZero(row.Get(m.Fixed))
	}
	if fixed.Cents <= 0 {
		return ReasonNoAmount
	}
	_, err := im.store.CreateSponsorship(ctx, core.Sponsorship{
		SponsorID:   best.ID,
		CaseID:      caseID,
		FixedAmount: fixed,
		Status:      core.StatusActive,
	})
	if err != nil {
		slog.WarnContext(ctx, "Import sponsorship failed", "line", row.Line, "error", err)
		return ReasonNoSponsorship
	}
	return ""
}
