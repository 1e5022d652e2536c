package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/tipleague/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EntitlementRepository reads the subscription tier the account system
// maintains. Billing is out of scope here; the ledger only needs to know
// whether a premium entitlement is currently active.
type EntitlementRepository struct {
	db *sqlx.DB
}

// NewEntitlementRepository creates a new EntitlementRepository.
func NewEntitlementRepository(db *sqlx.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// Tier returns the user's current entitlement. A missing or expired
// subscription row degrades to the free tier — never to an error.
func (r *EntitlementRepository) Tier(ctx context.Context, userID uuid.UUID) (domain.EntitlementTier, error) {
	var t domain.EntitlementTier
	err := r.db.GetContext(ctx, &t, `
		SELECT tier, premium_active
		FROM subscriptions
		WHERE user_id = $1
		  AND (expires_at IS NULL OR expires_at > now())`,
		userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FreeTier, nil
		}
		return domain.FreeTier, fmt.Errorf("entitlement_repo.Tier: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return t, nil
}
