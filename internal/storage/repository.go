package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// Repository implements ports.Store over sqlx. Queries are written with ?
// placeholders and rebound for the connected driver.
type Repository struct {
	db *sqlx.DB
}

var _ ports.Store = (*Repository)(nil)

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) q(query string) string {
	return r.db.Rebind(query)
}

func (r *Repository) get(ctx context.Context, dest any, query string, args ...any) error {
	err := r.db.GetContext(ctx, dest, r.q(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func (r *Repository) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	return r.db.SelectContext(ctx, dest, r.q(query), args...)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.q(query), args...)
}

// execOne runs a write that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// where joins conditions with AND; an empty list yields no clause.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// Lookups

func (r *Repository) ListAreas(ctx context.Context, activeOnly bool) ([]core.Area, error) {
	query := `SELECT id, name, is_active FROM areas`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name`

	var rows []areaRow
	if err := r.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	out := make([]core.Area, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetArea(ctx context.Context, id string) (core.Area, error) {
	var row areaRow
	if err := r.get(ctx, &row, `SELECT id, name, is_active FROM areas WHERE id = ?`, id); err != nil {
		return core.Area{}, fmt.Errorf("get area %s: %w", id, err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateArea(ctx context.Context, a core.Area) (string, error) {
	id := newID(a.ID)
	if _, err := r.exec(ctx, `INSERT INTO areas (id, name, is_active) VALUES (?, ?, ?)`,
		id, strings.TrimSpace(a.Name), a.IsActive); err != nil {
		return "", fmt.Errorf("create area: %w", err)
	}
	return id, nil
}

func (r *Repository) ListOperators(ctx context.Context) ([]core.Operator, error) {
	var rows []operatorRow
	if err := r.selectRows(ctx, &rows,
		`SELECT id, name, role FROM operators WHERE name <> ? ORDER BY name`,
		core.ExcludedOperatorName); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	out := make([]core.Operator, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CreateOperator(ctx context.Context, o core.Operator) (string, error) {
	id := newID(o.ID)
	if _, err := r.exec(ctx, `INSERT INTO operators (id, name, role) VALUES (?, ?, ?)`,
		id, strings.TrimSpace(o.Name), o.Role); err != nil {
		return "", fmt.Errorf("create operator: %w", err)
	}
	return id, nil
}

// Sponsors

const sponsorColumns = `id, legacy_id, name, phone, payment_frequency, is_active, notes,
	responsible_operator_id, paid_through_sponsor_id, created_at`

func (r *Repository) ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error) {
	query := `SELECT ` + sponsorColumns + ` FROM sponsors`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name`

	var rows []sponsorRow
	if err := r.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}
	out := make([]core.Sponsor, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetSponsor(ctx context.Context, id string) (core.Sponsor, error) {
	var row sponsorRow
	if err := r.get(ctx, &row, `SELECT `+sponsorColumns+` FROM sponsors WHERE id = ?`, id); err != nil {
		return core.Sponsor{}, fmt.Errorf("get sponsor %s: %w", id, err)
	}
	return row.toCore(), nil
}

func (r *Repository) FindSponsorByName(ctx context.Context, name string) (core.Sponsor, error) {
	var row sponsorRow
	if err := r.get(ctx, &row,
		`SELECT `+sponsorColumns+` FROM sponsors WHERE LOWER(TRIM(name)) = LOWER(?) ORDER BY created_at LIMIT 1`,
		strings.TrimSpace(name)); err != nil {
		return core.Sponsor{}, fmt.Errorf("find sponsor %q: %w", name, err)
	}
	return row.toCore(), nil
}

func (r *Repository) NextLegacyID(ctx context.Context) (int, error) {
	var next int
	if err := r.get(ctx, &next, `SELECT COALESCE(MAX(legacy_id), 0) + 1 FROM sponsors`); err != nil {
		return 0, fmt.Errorf("next legacy id: %w", err)
	}
	return next, nil
}

func (r *Repository) CreateSponsor(ctx context.Context, s core.Sponsor) (string, error) {
	id := newID(s.ID)
	freq := s.PaymentFrequency
	if freq == "" {
		freq = core.AdvanceMonthly
	}
	var legacy sql.NullInt64
	if s.LegacyID > 0 {
		legacy = sql.NullInt64{Int64: int64(s.LegacyID), Valid: true}
	}
	_, err := r.exec(ctx, `INSERT INTO sponsors
		(id, legacy_id, name, phone, payment_frequency, is_active, notes, responsible_operator_id, paid_through_sponsor_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, legacy, strings.TrimSpace(s.Name), nullString(s.Phone), freq, s.IsActive,
		nullString(s.Notes), nullString(s.ResponsibleOperatorID), nullString(s.PaidThroughSponsorID))
	if err != nil {
		return "", fmt.Errorf("create sponsor: %w", err)
	}
	return id, nil
}

// Cases

const caseSelect = `SELECT c.id, c.child_name, c.guardian_name, c.area_id,
	COALESCE(a.name, '') AS area_name, c.case_type, c.needs_level, c.is_medical_case,
	c.has_students, c.school_year, c.status, c.notes, c.created_at
	FROM cases c LEFT JOIN areas a ON a.id = c.area_id`

func (r *Repository) ListCases(ctx context.Context, areaID string) ([]core.Case, error) {
	conds := []string{"c.status = ?"}
	args := []any{core.StatusActive}
	if areaID != "" {
		conds = append(conds, "c.area_id = ?")
		args = append(args, areaID)
	}

	var rows []caseRow
	if err := r.selectRows(ctx, &rows, caseSelect+where(conds)+` ORDER BY c.child_name`, args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	out := make([]core.Case, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetCase(ctx context.Context, id string) (core.Case, error) {
	var row caseRow
	if err := r.get(ctx, &row, caseSelect+` WHERE c.id = ?`, id); err != nil {
		return core.Case{}, fmt.Errorf("get case %s: %w", id, err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateCase(ctx context.Context, c core.Case) (string, error) {
	id := newID(c.ID)
	typ := c.Type
	if typ == "" {
		typ = core.CaseOrphan
	}
	status := c.Status
	if status == "" {
		status = core.StatusActive
	}
	_, err := r.exec(ctx, `INSERT INTO cases
		(id, child_name, guardian_name, area_id, case_type, needs_level, is_medical_case, has_students, school_year, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(c.ChildName), nullString(strings.TrimSpace(c.GuardianName)), nullString(c.AreaID),
		string(typ), nullString(c.NeedsLevel), c.IsMedical, c.HasStudents, nullString(c.SchoolYear),
		status, nullString(c.Notes))
	if err != nil {
		return "", fmt.Errorf("create case: %w", err)
	}
	return id, nil
}

// Sponsorships

const sponsorshipSelect = `SELECT sp.id, sp.sponsor_id, sp.case_id, sp.fixed_amount, sp.status,
	COALESCE(s.name, '') AS sponsor_name,
	COALESCE(c.child_name, '') AS child_name,
	COALESCE(c.guardian_name, '') AS guardian_name,
	COALESCE(c.area_id, '') AS area_id
	FROM sponsorships sp
	LEFT JOIN sponsors s ON s.id = sp.sponsor_id
	LEFT JOIN cases c ON c.id = sp.case_id`

func (r *Repository) ListSponsorships(ctx context.Context, f ports.SponsorshipFilter) ([]core.Sponsorship, error) {
	conds := []string{"sp.status = ?"}
	args := []any{core.StatusActive}
	if f.SponsorID != "" {
		conds = append(conds, "sp.sponsor_id = ?")
		args = append(args, f.SponsorID)
	}
	if f.CaseID != "" {
		conds = append(conds, "sp.case_id = ?")
		args = append(args, f.CaseID)
	}
	if f.AreaID != "" {
		conds = append(conds, "c.area_id = ?", "c.status = ?")
		args = append(args, f.AreaID, core.StatusActive)
	}

	var rows []sponsorshipRow
	if err := r.selectRows(ctx, &rows, sponsorshipSelect+where(conds)+` ORDER BY sp.created_at, sp.id`, args...); err != nil {
		return nil, fmt.Errorf("list sponsorships: %w", err)
	}
	out := make([]core.Sponsorship, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CreateSponsorship(ctx context.Context, sp core.Sponsorship) (string, error) {
	id := newID(sp.ID)
	status := sp.Status
	if status == "" {
		status = core.StatusActive
	}
	if _, err := r.exec(ctx,
		`INSERT INTO sponsorships (id, sponsor_id, case_id, fixed_amount, status) VALUES (?, ?, ?, ?, ?)`,
		id, sp.SponsorID, sp.CaseID, sp.FixedAmount.Cents, status); err != nil {
		return "", fmt.Errorf("create sponsorship: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateSponsorshipFixed(ctx context.Context, id string, amount core.Money) error {
	if err := r.execOne(ctx, `UPDATE sponsorships SET fixed_amount = ? WHERE id = ?`, amount.Cents, id); err != nil {
		return fmt.Errorf("update sponsorship %s: %w", id, err)
	}
	return nil
}
