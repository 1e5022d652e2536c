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
)

// TicketRepository handles all database operations for prediction tickets and
// the results-feed staging table.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts a new ticket inside an existing transaction, so the ticket
// and its budget debit commit or roll back together.
func (r *TicketRepository) Create(ctx context.Context, tx *sqlx.Tx, t *domain.Ticket) error {
	query := `
		INSERT INTO tickets
			(id, user_id, scope_type, scope_id, period_key,
			 stake_amount, total_odds, potential_win, status, created_at)
		VALUES
			(:id, :user_id, :scope_type, :scope_id, :period_key,
			 :stake_amount, :total_odds, :potential_win, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("ticket_repo.Create: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetByID fetches a ticket by its primary key.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var t domain.Ticket
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tickets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket_repo.GetByID: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &t, nil
}

// GetForUpdate locks and returns a ticket inside a transaction. Settlement
// locks the ticket before the ledger row, always in that order.
func (r *TicketRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Ticket, error) {
	var t domain.Ticket
	err := tx.GetContext(ctx, &t, `SELECT * FROM tickets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket_repo.GetForUpdate: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &t, nil
}

// MarkSettled transitions a ticket pending → won/lost inside a transaction.
// Only rows still in pending are touched, so the terminal transition can
// happen exactly once; zero rows affected means it already happened.
func (r *TicketRepository) MarkSettled(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status domain.TicketStatus) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET status     = $1,
		    settled_at = now()
		WHERE id = $2 AND status = 'pending'`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("ticket_repo.MarkSettled: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// ListByUser returns a user's ticket history, paginated, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT * FROM tickets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.ListByUser: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return tickets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Results feed staging
// ──────────────────────────────────────────────────────────────────────────────

// PendingResult pairs a still-pending ticket with the outcome the external
// results ingester recorded for it.
type PendingResult struct {
	TicketID uuid.UUID      `db:"ticket_id"`
	Outcome  domain.Outcome `db:"outcome"`
}

// ListPendingWithResults returns pending tickets whose sporting outcome has
// arrived in the ticket_results staging table, oldest result first. The
// settlement sweep consumes this list.
func (r *TicketRepository) ListPendingWithResults(ctx context.Context, limit int) ([]PendingResult, error) {
	var results []PendingResult
	err := r.db.SelectContext(ctx, &results, `
		SELECT tr.ticket_id, tr.outcome
		FROM ticket_results tr
		JOIN tickets t ON t.id = tr.ticket_id
		WHERE t.status = 'pending'
		ORDER BY tr.recorded_at ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.ListPendingWithResults: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return results, nil
}

// StatusCounts returns the number of tickets per status, for the back-office
// dashboard.
func (r *TicketRepository) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int, error) {
	rows := []struct {
		Status domain.TicketStatus `db:"status"`
		Count  int                 `db:"count"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM tickets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.StatusCounts: %w: %v", domain.ErrStoreUnavailable, err)
	}
	counts := make(map[domain.TicketStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ListStuckPending returns tickets pending for longer than maxAge, for the
// back-office to chase missing results.
func (r *TicketRepository) ListStuckPending(ctx context.Context, maxAge time.Duration, limit int) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT * FROM tickets
		WHERE status = 'pending'
		  AND created_at < now() - $1::interval
		ORDER BY created_at ASC
		LIMIT $2`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())), limit)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.ListStuckPending: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return tickets, nil
}
