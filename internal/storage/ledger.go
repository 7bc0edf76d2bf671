package storage

import (
	"context"
	"fmt"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// Collections

const collectionColumns = `id, sponsor_id, amount, fixed_portion, extra_portion, sadaqat_portion,
	month_year, received_by_operator_id, payment_method, ocr_raw, status, notes,
	advance_type, advance_months, created_at`

func (r *Repository) CreateCollection(ctx context.Context, c core.Collection) (string, error) {
	id := newID(c.ID)
	status := c.Status
	if status == "" {
		status = core.StatusConfirmed
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.exec(ctx, `INSERT INTO collections
		(id, sponsor_id, amount, fixed_portion, extra_portion, sadaqat_portion, month_year,
		 received_by_operator_id, payment_method, ocr_raw, status, notes, advance_type, advance_months, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.SponsorID, c.Amount.Cents, c.Fixed.Cents, c.Extra.Cents, c.Sadaqat.Cents, c.Month.String(),
		nullString(c.ReceivedBy), nullString(c.Method), nullString(c.OCRRaw), status, nullString(c.Notes),
		nullString(c.AdvanceType), c.AdvanceMonths, created)
	if err != nil {
		return "", fmt.Errorf("create collection: %w", err)
	}
	return id, nil
}

func (r *Repository) GetCollection(ctx context.Context, id string) (core.Collection, error) {
	var row collectionRow
	if err := r.get(ctx, &row, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id); err != nil {
		return core.Collection{}, fmt.Errorf("get collection %s: %w", id, err)
	}
	return row.toCore(), nil
}

// ListCollections returns the month's collections; a zero month lists all.
func (r *Repository) ListCollections(ctx context.Context, month core.Month) ([]core.Collection, error) {
	var conds []string
	var args []any
	if !month.IsZero() {
		conds = append(conds, "month_year = ?")
		args = append(args, month.String())
	}
	return r.listCollections(ctx, where(conds)+` ORDER BY created_at, id`, args...)
}

func (r *Repository) ListUnsynced(ctx context.Context, limit int) ([]core.Collection, error) {
	return r.listCollections(ctx, ` WHERE synced_at IS NULL ORDER BY created_at, id LIMIT ?`, limit)
}

func (r *Repository) listCollections(ctx context.Context, tail string, args ...any) ([]core.Collection, error) {
	var rows []collectionRow
	if err := r.selectRows(ctx, &rows, `SELECT `+collectionColumns+` FROM collections`+tail, args...); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]core.Collection, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// DeleteSponsorCollections removes every collection of the sponsor in the
// month, detaching sadaqat rows that referenced them first.
func (r *Repository) DeleteSponsorCollections(ctx context.Context, sponsorID string, month core.Month) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sadaqat_pool SET source_collection_id = NULL
		WHERE source_collection_id IN (SELECT id FROM collections WHERE sponsor_id = ? AND month_year = ?)`),
		sponsorID, month.String()); err != nil {
		return fmt.Errorf("detach sadaqat: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE advance_payments SET collection_id = NULL
		WHERE collection_id IN (SELECT id FROM collections WHERE sponsor_id = ? AND month_year = ?)`),
		sponsorID, month.String()); err != nil {
		return fmt.Errorf("detach advances: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM collections WHERE sponsor_id = ? AND month_year = ?`),
		sponsorID, month.String()); err != nil {
		return fmt.Errorf("delete collections: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	if err := r.execOne(ctx, `UPDATE collections SET synced_at = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("mark collection %s synced: %w", id, err)
	}
	return nil
}

// Adjustments

func (r *Repository) ListAdjustments(ctx context.Context, month core.Month, typ core.AdjustmentType) ([]core.Adjustment, error) {
	var conds []string
	var args []any
	if !month.IsZero() {
		conds = append(conds, "month_year = ?")
		args = append(args, month.String())
	}
	if typ != "" {
		conds = append(conds, "adjustment_type = ?")
		args = append(args, string(typ))
	}

	var rows []adjustmentRow
	if err := r.selectRows(ctx, &rows, `SELECT id, sponsorship_id, case_id, sponsor_id, month_year,
		adjustment_type, amount, old_fixed_amount, applied FROM monthly_adjustments`+where(conds)+
		` ORDER BY created_at, id`, args...); err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	out := make([]core.Adjustment, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CreateAdjustment(ctx context.Context, a core.Adjustment) (string, error) {
	id := newID(a.ID)
	_, err := r.exec(ctx, `INSERT INTO monthly_adjustments
		(id, sponsorship_id, case_id, sponsor_id, month_year, adjustment_type, amount, old_fixed_amount, applied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(a.SponsorshipID), nullString(a.CaseID), nullString(a.SponsorID), a.Month.String(),
		string(a.Type), a.Amount.Cents, a.OldFixed.Cents, a.Applied)
	if err != nil {
		return "", fmt.Errorf("create adjustment: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateAdjustmentAmount(ctx context.Context, id string, amount core.Money) error {
	if err := r.execOne(ctx, `UPDATE monthly_adjustments SET amount = ? WHERE id = ?`, amount.Cents, id); err != nil {
		return fmt.Errorf("update adjustment %s: %w", id, err)
	}
	return nil
}

func (r *Repository) DeleteAdjustment(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM monthly_adjustments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete adjustment %s: %w", id, err)
	}
	return nil
}

// Sadaqat pool

func (r *Repository) ListSadaqat(ctx context.Context, f ports.SadaqatFilter) ([]core.SadaqatEntry, error) {
	var conds []string
	var args []any
	if !f.Month.IsZero() {
		conds = append(conds, "month_year = ?")
		args = append(args, f.Month.String())
	}
	if f.Type != "" {
		conds = append(conds, "transaction_type = ?")
		args = append(args, string(f.Type))
	}

	var rows []sadaqatRow
	if err := r.selectRows(ctx, &rows, `SELECT id, transaction_type, amount, source_type, source_collection_id,
		donor_name, destination_type, destination_case_id, destination_description, reason, approved_by,
		month_year, created_at FROM sadaqat_pool`+where(conds)+` ORDER BY created_at, id`, args...); err != nil {
		return nil, fmt.Errorf("list sadaqat: %w", err)
	}
	out := make([]core.SadaqatEntry, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CreateSadaqat(ctx context.Context, e core.SadaqatEntry) (string, error) {
	id := newID(e.ID)
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.exec(ctx, `INSERT INTO sadaqat_pool
		(id, transaction_type, amount, source_type, source_collection_id, donor_name, destination_type,
		 destination_case_id, destination_description, reason, approved_by, month_year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(e.Type), e.Amount.Cents, nullString(e.SourceType), nullString(e.SourceCollectionID),
		nullString(e.DonorName), nullString(e.Cause), nullString(e.DestinationCaseID),
		nullString(e.DestinationDescription), nullString(e.Reason), nullString(e.ApprovedBy),
		e.Month.String(), created)
	if err != nil {
		return "", fmt.Errorf("create sadaqat entry: %w", err)
	}
	return id, nil
}

func (r *Repository) DeleteSadaqat(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM sadaqat_pool WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sadaqat entry %s: %w", id, err)
	}
	return nil
}

// Advance payments

func (r *Repository) CreateAdvance(ctx context.Context, a core.AdvancePayment) (string, error) {
	id := newID(a.ID)
	status := a.Status
	if status == "" {
		status = core.StatusActive
	}
	_, err := r.exec(ctx, `INSERT INTO advance_payments
		(id, sponsor_id, case_id, collection_id, payment_type, amount, months_covered, start_month, paid_until, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.SponsorID, nullString(a.CaseID), nullString(a.CollectionID), a.PaymentType, a.Amount.Cents,
		a.MonthsCovered, a.StartMonth.String(), a.PaidUntil.Format(dateLayout), status)
	if err != nil {
		return "", fmt.Errorf("create advance payment: %w", err)
	}
	return id, nil
}

func (r *Repository) ListActiveAdvances(ctx context.Context) ([]core.AdvancePayment, error) {
	var rows []advanceRow
	if err := r.selectRows(ctx, &rows, `SELECT ap.id, ap.sponsor_id, ap.case_id, ap.collection_id,
		ap.payment_type, ap.amount, ap.months_covered, ap.start_month, ap.paid_until, ap.status,
		COALESCE(s.name, '') AS sponsor_name, COALESCE(c.child_name, '') AS child_name
		FROM advance_payments ap
		LEFT JOIN sponsors s ON s.id = ap.sponsor_id
		LEFT JOIN cases c ON c.id = ap.case_id
		WHERE ap.status = ? ORDER BY ap.paid_until`, core.StatusActive); err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	out := make([]core.AdvancePayment, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// Disbursements

// UpsertDisbursement records the settled totals of an area, replacing any
// earlier figures for the same month.
func (r *Repository) UpsertDisbursement(ctx context.Context, d core.Disbursement) error {
	_, err := r.exec(ctx, `INSERT INTO disbursements (id, area_id, month_year, fixed_total, extras_total)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (area_id, month_year) DO UPDATE SET
			fixed_total = excluded.fixed_total,
			extras_total = excluded.extras_total`,
		newID(""), d.AreaID, d.Month.String(), d.FixedTotal.Cents, d.ExtrasTotal.Cents)
	if err != nil {
		return fmt.Errorf("upsert disbursement %s/%s: %w", d.AreaID, d.Month, err)
	}
	return nil
}

func (r *Repository) ListDisbursements(ctx context.Context, month core.Month) ([]core.Disbursement, error) {
	var rows []disbursementRow
	if err := r.selectRows(ctx, &rows, `SELECT area_id, month_year, fixed_total, extras_total
		FROM disbursements WHERE month_year = ? ORDER BY area_id`, month.String()); err != nil {
		return nil, fmt.Errorf("list disbursements: %w", err)
	}
	out := make([]core.Disbursement, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}
