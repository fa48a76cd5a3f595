package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	activeClaimConstraint = "payment_cart_lines_active_key"
	externalRefConstraint = "payments_flow_external_ref_key"

	paymentColumns = `id, flow, owner_email, payer_name, amount, currency, status, external_ref,
		cart_line_ids, menu_item_ids, cart_purged_at, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var (
		rec         domain.PaymentRecord
		externalRef sql.NullString
		purgedAt    sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.Flow,
		&rec.OwnerEmail,
		&rec.PayerName,
		&rec.Amount,
		&rec.Currency,
		&rec.Status,
		&externalRef,
		pq.Array(&rec.CartLineIDs),
		pq.Array(&rec.MenuItemIDs),
		&purgedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ExternalRef = externalRef.String
	if purgedAt.Valid {
		t := purgedAt.Time
		rec.CartPurgedAt = &t
	}
	if rec.CartLineIDs == nil {
		rec.CartLineIDs = []string{}
	}
	if rec.MenuItemIDs == nil {
		rec.MenuItemIDs = []string{}
	}
	return &rec, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

func insertPayment(ctx context.Context, tx *sql.Tx, rec *domain.PaymentRecord) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, $11, $11)`
	_, err := tx.ExecContext(ctx, query,
		rec.ID,
		rec.Flow,
		rec.OwnerEmail,
		rec.PayerName,
		rec.Amount,
		rec.Currency,
		rec.Status,
		nullIfEmpty(rec.ExternalRef),
		pq.Array(rec.CartLineIDs),
		pq.Array(rec.MenuItemIDs),
		rec.CreatedAt,
	)
	return err
}

func insertReceipt(ctx context.Context, tx *sql.Tx, rec *domain.PaymentRecord) error {
	event := domain.NewReceiptEvent(rec)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		rec.ID, event.EventType(), payload)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// CreatePending stores a pending redirect payment and claims its cart lines.
// A line already claimed by another pending payment fails with ErrCartLineReserved.
func (r *PaymentRepository) CreatePending(ctx context.Context, rec *domain.PaymentRecord) error {
	if rec.Status != domain.PaymentStatusPending {
		return fmt.Errorf("%w: new record must be pending, got %s", domain.ErrIllegalTransition, rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPayment(ctx, tx, rec); err != nil {
		if isUniqueViolation(err, externalRefConstraint) {
			return domain.ErrDuplicateExternalRef
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	for _, lineID := range rec.CartLineIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payment_cart_lines (payment_id, cart_line_id) VALUES ($1, $2)
			 ON CONFLICT (payment_id, cart_line_id) DO NOTHING`,
			rec.ID, lineID)
		if err != nil {
			if isUniqueViolation(err, activeClaimConstraint) {
				return fmt.Errorf("%w: %s", domain.ErrCartLineReserved, lineID)
			}
			return fmt.Errorf("failed to claim cart line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ActiveClaims returns the subset of lineIDs held by a pending payment.
func (r *PaymentRepository) ActiveClaims(ctx context.Context, lineIDs []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cart_line_id FROM payment_cart_lines WHERE active AND cart_line_id = ANY($1) ORDER BY cart_line_id`,
		pq.Array(lineIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query cart line claims: %w", err)
	}
	defer rows.Close()

	claimed := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cart line claim: %w", err)
		}
		claimed = append(claimed, id)
	}
	return claimed, rows.Err()
}

// CreateCompleted stores a record that is already successful and queues its
// receipt. A record with the same flow and external reference is returned
// unchanged with created=false.
func (r *PaymentRepository) CreateCompleted(ctx context.Context, rec *domain.PaymentRecord) (*domain.PaymentRecord, bool, error) {
	if !rec.Status.IsTerminal() {
		return nil, false, fmt.Errorf("%w: completed record must be terminal, got %s", domain.ErrIllegalTransition, rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, $11, $11)
		ON CONFLICT (flow, external_ref) WHERE external_ref IS NOT NULL DO NOTHING
		RETURNING ` + paymentColumns
	stored, err := scanPayment(tx.QueryRowContext(ctx, query,
		rec.ID,
		rec.Flow,
		rec.OwnerEmail,
		rec.PayerName,
		rec.Amount,
		rec.Currency,
		rec.Status,
		nullIfEmpty(rec.ExternalRef),
		pq.Array(rec.CartLineIDs),
		pq.Array(rec.MenuItemIDs),
		rec.CreatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		existing, errGet := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE flow = $1 AND external_ref = $2`,
			rec.Flow, rec.ExternalRef))
		if errGet != nil {
			return nil, false, fmt.Errorf("failed to load existing payment: %w", errGet)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := insertReceipt(ctx, tx, stored); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, true, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrRecordNotFound
	}

	rec, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return rec, nil
}

func (r *PaymentRepository) ListByOwner(ctx context.Context, email string) ([]*domain.PaymentRecord, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE owner_email = $1 ORDER BY created_at DESC`, email)
}

func (r *PaymentRepository) ListByFlow(ctx context.Context, flow domain.PaymentFlow) ([]*domain.PaymentRecord, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE flow = $1 ORDER BY created_at DESC`, flow)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	records := []*domain.PaymentRecord{}
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Transition moves a pending record to target with a single conditional
// update. applied is false when the record was already terminal; in that case
// nothing is written. An applied transition releases the record's cart line
// claims and queues exactly one receipt in the same transaction.
func (r *PaymentRepository) Transition(ctx context.Context, id string, target domain.PaymentStatus) (*domain.PaymentRecord, bool, error) {
	if !domain.PaymentStatusPending.CanTransitionTo(target) {
		return nil, false, fmt.Errorf("%w: pending -> %s", domain.ErrIllegalTransition, target)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, domain.ErrRecordNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanPayment(tx.QueryRowContext(ctx,
		`UPDATE payments SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+paymentColumns,
		id, target))
	if errors.Is(err, sql.ErrNoRows) {
		current, errGet := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
		if errors.Is(errGet, sql.ErrNoRows) {
			return nil, false, domain.ErrRecordNotFound
		}
		if errGet != nil {
			return nil, false, fmt.Errorf("failed to get payment: %w", errGet)
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update payment status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_cart_lines SET active = FALSE WHERE payment_id = $1 AND active`, id); err != nil {
		return nil, false, fmt.Errorf("failed to release cart line claims: %w", err)
	}

	if err := insertReceipt(ctx, tx, rec); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rec, true, nil
}

func (r *PaymentRepository) MarkCartPurged(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET cart_purged_at = NOW() WHERE id = $1 AND cart_purged_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark cart purged: %w", err)
	}
	return nil
}
