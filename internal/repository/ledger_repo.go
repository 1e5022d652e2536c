package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/tipleague/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// nilScopeID stands in for NULL scope ids inside the composite uniqueness key,
// because PostgreSQL treats NULLs as distinct in plain unique constraints.
// Must match the expression index in the migration.
const nilScopeID = "00000000-0000-0000-0000-000000000000"

// LedgerRepository handles all database operations for ledger records and the
// settlement-applied markers.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetOrCreate returns the ledger record for (user, scope, period), lazily
// creating a zeroed one on first use. The insert-then-read runs as a single
// idempotent upsert so two concurrent first-writers cannot create duplicates:
// the composite uniqueness key resolves the race and both see the same row.
func (r *LedgerRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, h domain.ScopeHandle) (*domain.LedgerRecord, error) {
	// The conflict target must textually match the unique index expression,
	// so the nil-uuid sentinel is inlined rather than bound.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_records
			(id, user_id, scope_type, scope_id, period_key,
			 base_allowance, cumulative_profit, bets_count, wins_count, version,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 1, now(), now())
		ON CONFLICT (user_id, scope_type, (COALESCE(scope_id, '`+nilScopeID+`'::uuid)), period_key)
		DO NOTHING`,
		uuid.New(), userID, h.ScopeType, h.ScopeID, h.PeriodKey,
		domain.DefaultAllowance)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.GetOrCreate insert: %w: %v", domain.ErrStoreUnavailable, err)
	}

	var rec domain.LedgerRecord
	err = r.db.GetContext(ctx, &rec, `
		SELECT * FROM ledger_records
		WHERE user_id = $1
		  AND scope_type = $2
		  AND scope_id IS NOT DISTINCT FROM $3
		  AND period_key = $4`,
		userID, h.ScopeType, h.ScopeID, h.PeriodKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("ledger_repo.GetOrCreate read: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// GetForUpdate locks and returns the ledger record inside a transaction.
// Every budget mutation reads through this lock so validation and write form
// one atomic unit.
func (r *LedgerRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, h domain.ScopeHandle) (*domain.LedgerRecord, error) {
	var rec domain.LedgerRecord
	err := tx.GetContext(ctx, &rec, `
		SELECT * FROM ledger_records
		WHERE user_id = $1
		  AND scope_type = $2
		  AND scope_id IS NOT DISTINCT FROM $3
		  AND period_key = $4
		FOR UPDATE`,
		userID, h.ScopeType, h.ScopeID, h.PeriodKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("ledger_repo.GetForUpdate: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// GetByIDForUpdate locks and returns a ledger record by primary key. Used by
// settlement, which must post to the ticket's original period record.
func (r *LedgerRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.LedgerRecord, error) {
	var rec domain.LedgerRecord
	err := tx.GetContext(ctx, &rec, `SELECT * FROM ledger_records WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("ledger_repo.GetByIDForUpdate: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// UpdateCAS writes the mutated record back with a compare-and-swap on the
// version column. Zero rows affected means another writer got there first;
// callers must re-read and retry.
func (r *LedgerRepository) UpdateCAS(ctx context.Context, tx *sqlx.Tx, rec *domain.LedgerRecord) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ledger_records
		SET cumulative_profit = $1,
		    base_allowance    = $2,
		    bets_count        = $3,
		    wins_count        = $4,
		    version           = version + 1,
		    updated_at        = now()
		WHERE id = $5 AND version = $6`,
		rec.CumulativeProfit, rec.BaseAllowance, rec.BetsCount, rec.WinsCount,
		rec.ID, rec.Version)
	if err != nil {
		return fmt.Errorf("ledger_repo.UpdateCAS: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWriteConflict
	}
	rec.Version++
	return nil
}

// RecordSettlement inserts the settlement-applied marker for a ticket.
// Returns false when the marker already exists — the idempotence guard that
// prevents a ticket from ever being credited or debited twice.
func (r *LedgerRepository) RecordSettlement(ctx context.Context, tx *sqlx.Tx, ticketID, ledgerID uuid.UUID, outcome domain.Outcome) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_settlements (ticket_id, ledger_id, outcome, applied_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (ticket_id) DO NOTHING`,
		ticketID, ledgerID, string(outcome))
	if err != nil {
		return false, fmt.Errorf("ledger_repo.RecordSettlement: %w: %v", domain.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListByUser returns all of a user's ledger records, newest period first.
// Prior periods are immutable history and stay readable forever.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.LedgerRecord, error) {
	var recs []*domain.LedgerRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM ledger_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.ListByUser: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return recs, nil
}

// ListByScope returns every record for one scope and period, for backoffice
// standings views.
func (r *LedgerRepository) ListByScope(ctx context.Context, h domain.ScopeHandle, limit, offset int) ([]*domain.LedgerRecord, error) {
	var recs []*domain.LedgerRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM ledger_records
		WHERE scope_type = $1
		  AND scope_id IS NOT DISTINCT FROM $2
		  AND period_key = $3
		ORDER BY cumulative_profit DESC
		LIMIT $4 OFFSET $5`,
		h.ScopeType, h.ScopeID, h.PeriodKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.ListByScope: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return recs, nil
}

// AdminAdjustAllowance raises or lowers a record's base allowance directly.
// Used only by back-office; bumps the version like any other write.
func (r *LedgerRepository) AdminAdjustAllowance(ctx context.Context, id uuid.UUID, allowance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ledger_records
		SET base_allowance = $1,
		    version        = version + 1,
		    updated_at     = now()
		WHERE id = $2`,
		allowance, id)
	if err != nil {
		return fmt.Errorf("ledger_repo.AdminAdjustAllowance: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrLedgerNotFound
	}
	return nil
}

// BlockedCount returns how many records in the given period sit at or below
// the blocking threshold, for the back-office dashboard.
func (r *LedgerRepository) BlockedCount(ctx context.Context, scopeType domain.ScopeType, periodKey string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM ledger_records
		WHERE scope_type = $1
		  AND period_key = $2
		  AND base_allowance + cumulative_profit <= $3`,
		scopeType, periodKey, domain.BlockThreshold)
	if err != nil {
		return 0, fmt.Errorf("ledger_repo.BlockedCount: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// SettledAt returns when a ticket's settlement marker was applied, for
// reconciliation after an unknown-outcome timeout.
func (r *LedgerRepository) SettledAt(ctx context.Context, ticketID uuid.UUID) (*time.Time, error) {
	var ts time.Time
	err := r.db.GetContext(ctx, &ts,
		`SELECT applied_at FROM ledger_settlements WHERE ticket_id = $1`, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger_repo.SettledAt: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &ts, nil
}
