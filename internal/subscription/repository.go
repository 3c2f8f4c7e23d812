// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/streampix/subscription-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetActiveByUserID(ctx context.Context, userID string) (*Subscription, error)
	GetLatestByUserID(ctx context.Context, userID string) (*Subscription, error)
	ListDueForRenewal(ctx context.Context, date time.Time, limit int) ([]Subscription, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const subscriptionColumns = `
	id, user_id, plan, status, start_date, expiration_date,
	renewal_attempts, created_at, updated_at`

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions
			(id, user_id, plan, status, start_date, expiration_date, renewal_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, sub, query,
		sub.ID,
		sub.UserID,
		sub.Plan,
		sub.Status,
		sub.StartDate,
		sub.ExpirationDate,
		sub.RenewalAttempts,
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, sub *Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan = $2,
			status = $3,
			start_date = $4,
			expiration_date = $5,
			renewal_attempts = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &sub.UpdatedAt, query,
		sub.ID,
		sub.Plan,
		sub.Status,
		sub.StartDate,
		sub.ExpirationDate,
		sub.RenewalAttempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE id = $1`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) GetActiveByUserID(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE user_id = $1 AND status = $2
		ORDER BY start_date DESC
		LIMIT 1`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID, StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get active subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) GetLatestByUserID(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY start_date DESC
		LIMIT 1`, subscriptionColumns)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get latest subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) ListDueForRenewal(
	ctx context.Context,
	date time.Time,
	limit int,
) ([]Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE status = $1 AND expiration_date <= $2
		ORDER BY expiration_date ASC
		LIMIT $3`, subscriptionColumns)

	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, query, StatusActive, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions due for renewal: %w", err)
	}

	return subs, nil
}
