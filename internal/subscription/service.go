// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streampix/subscription-backend/internal/config"
	"github.com/streampix/subscription-backend/internal/core"
	"github.com/streampix/subscription-backend/internal/events"
)

// Payment is the wallet port. Implementations translate transport
// failures into core sentinel errors (ErrWalletNotFound,
// ErrInsufficientBalance, ErrWalletTransaction).
type Payment interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) error
}

// UserDirectory is the slice of the user service the orchestrator
// needs: existence checks only.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo    Repository
	cache   Cache
	payment Payment
	users   UserDirectory
	events  events.Publisher
	cfg     config.SubscriptionConfig
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	cache Cache,
	payment Payment,
	users UserDirectory,
	publisher events.Publisher,
	cfg config.SubscriptionConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		payment: payment,
		users:   users,
		events:  publisher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Create subscribes a user to a plan. Preconditions are checked in
// order and each short-circuits with its own error: the user must
// exist, must have a wallet, and must not already hold an ACTIVE
// subscription. If the user's most recent subscription is CANCELED the
// same row is reused through the plan-change path instead of inserting
// a new one.
func (s *Service) Create(
	ctx context.Context,
	userID string,
	plan Plan,
) (*Subscription, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("create subscription for user %s: %w", userID, core.ErrUserNotFound)
	}

	hasWallet, err := s.payment.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if !hasWallet {
		return nil, fmt.Errorf("create subscription for user %s: %w", userID, core.ErrWalletNotFound)
	}

	if _, err := s.repo.GetActiveByUserID(ctx, userID); err == nil {
		return nil, fmt.Errorf("create subscription for user %s: %w", userID, core.ErrActiveSubscriptionExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	latest, err := s.repo.GetLatestByUserID(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	if latest != nil && latest.Status == StatusCanceled {
		changed, err := s.applyPlanChange(ctx, latest, plan)
		if err != nil {
			return nil, err
		}
		s.cachePut(ctx, userID, changed)
		return changed, nil
	}

	now := time.Now()
	sub := &Subscription{
		ID:     uuid.New().String(),
		UserID: userID,
		Status: StatusPending,
	}
	sub.beginTerm(plan, now)

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"user_id", userID,
		"plan", plan,
	)

	// The row already exists at this point. A failed debit leaves it
	// PENDING for manual follow-up rather than rolling it back.
	err = s.payment.Debit(ctx, userID, plan.Price(),
		fmt.Sprintf("Subscription to %s", plan.Description()),
		sub.ID,
	)
	if err != nil {
		return nil, err
	}

	s.cachePut(ctx, userID, sub)
	s.events.Publish(ctx, events.RoutingCreated, events.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         userID,
		Plan:           plan.String(),
		Status:         sub.Status.String(),
	})

	return sub, nil
}

// changeKind classifies a plan change by price comparison. Equal
// prices split on plan identity: same plan is a reactivation, a
// different plan at the same price changes nothing financially.
type changeKind int

const (
	changeUpgrade changeKind = iota
	changeDowngrade
	changeReactivation
	changeNoChange
)

func resolveChange(oldPlan, newPlan Plan) changeKind {
	switch cmp := newPlan.Price().Cmp(oldPlan.Price()); {
	case cmp == 0 && oldPlan == newPlan:
		return changeReactivation
	case cmp > 0:
		return changeUpgrade
	case cmp < 0:
		return changeDowngrade
	default:
		return changeNoChange
	}
}

// applyPlanChange reuses a CANCELED subscription row for the requested
// plan. Financial side effects depend on the change kind:
//
//   - upgrade: debit only the price difference, status PENDING
//   - downgrade: refund the difference, then debit the full new price,
//     status PENDING
//   - reactivation: no payment, status ACTIVE
//   - same price, different plan: no payment, status PENDING
//
// Every kind then resets the billing term and persists exactly once.
func (s *Service) applyPlanChange(
	ctx context.Context,
	sub *Subscription,
	newPlan Plan,
) (*Subscription, error) {
	oldPlan := sub.Plan
	kind := resolveChange(oldPlan, newPlan)

	switch kind {
	case changeUpgrade:
		difference := newPlan.Price().Sub(oldPlan.Price())
		s.logger.Info("plan upgrade, charging difference",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"from", oldPlan,
			"to", newPlan,
			"amount", difference,
		)
		sub.Status = StatusPending

		err := s.payment.Debit(ctx, sub.UserID, difference,
			fmt.Sprintf("Plan upgrade: %s to %s (difference)",
				oldPlan.Description(), newPlan.Description()),
			sub.ID,
		)
		if err != nil {
			return nil, err
		}

	case changeDowngrade:
		difference := oldPlan.Price().Sub(newPlan.Price())
		s.logger.Info("plan downgrade, refunding difference",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"from", oldPlan,
			"to", newPlan,
			"refund", difference,
		)
		sub.Status = StatusPending

		err := s.payment.Credit(ctx, sub.UserID, difference,
			fmt.Sprintf("Refund of difference: change from %s to %s",
				oldPlan.Description(), newPlan.Description()),
			sub.ID,
		)
		if err != nil {
			return nil, err
		}

		err = s.payment.Debit(ctx, sub.UserID, newPlan.Price(),
			fmt.Sprintf("Charge for new plan after downgrade: %s",
				newPlan.Description()),
			sub.ID,
		)
		if err != nil {
			return nil, err
		}

	case changeReactivation:
		s.logger.Info("plan reactivation, no payment needed",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"plan", newPlan,
		)
		sub.Status = StatusActive

	case changeNoChange:
		s.logger.Info("plan change at same price, no payment needed",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"from", oldPlan,
			"to", newPlan,
		)
		sub.Status = StatusPending
	}

	sub.beginTerm(newPlan, time.Now())

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.RoutingPlanChanged, events.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Plan:           newPlan.String(),
		PreviousPlan:   oldPlan.String(),
		Status:         sub.Status.String(),
	})

	return sub, nil
}

// GetActive returns the user's active subscription, reading through
// the cache and repopulating it on a miss.
func (s *Service) GetActive(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("cache read failed, falling back to store",
			"user_id", userID,
			"error", err,
		)
	}
	if cached != nil {
		return cached, nil
	}

	sub, err := s.repo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("active subscription for user %s: %w", userID, core.ErrSubscriptionNotFound)
		}
		return nil, err
	}

	s.cachePut(ctx, userID, sub)
	return sub, nil
}

// Cancel marks a subscription CANCELED and evicts the user's cache
// entry. Repeated cancellation is rejected, not absorbed.
func (s *Service) Cancel(ctx context.Context, subscriptionID string) error {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("cancel subscription %s: %w", subscriptionID, core.ErrSubscriptionNotFound)
		}
		return err
	}

	if sub.Status == StatusCanceled {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, core.ErrSubscriptionCanceled)
	}

	sub.Status = StatusCanceled
	sub.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, sub); err != nil {
		return err
	}

	if err := s.cache.Remove(ctx, sub.UserID); err != nil {
		// TTL bounds how long the stale entry can survive.
		s.logger.Warn("cache eviction failed after cancel",
			"user_id", sub.UserID,
			"error", err,
		)
	}

	s.logger.Info("subscription canceled",
		"subscription_id", subscriptionID,
		"user_id", sub.UserID,
	)
	s.events.Publish(ctx, events.RoutingCanceled, events.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Plan:           sub.Plan.String(),
		Status:         sub.Status.String(),
	})

	return nil
}

// UpdateStatus is an administrative override: any status may follow
// any other. Setting the status a subscription already has is a no-op.
func (s *Service) UpdateStatus(
	ctx context.Context,
	subscriptionID string,
	statusName string,
) error {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("update status of subscription %s: %w", subscriptionID, core.ErrSubscriptionNotFound)
		}
		return err
	}

	newStatus, err := ParseStatus(statusName)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	if sub.Status == newStatus {
		s.logger.Info("status unchanged, skipping update",
			"subscription_id", subscriptionID,
			"status", newStatus,
		)
		return nil
	}

	sub.Status = newStatus
	sub.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, sub); err != nil {
		return err
	}

	s.cachePut(ctx, sub.UserID, sub)

	s.logger.Info("subscription status updated",
		"subscription_id", subscriptionID,
		"status", newStatus,
	)
	s.events.Publish(ctx, events.RoutingStatusUpdated, events.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Plan:           sub.Plan.String(),
		Status:         newStatus.String(),
	})

	return nil
}

// cachePut writes through to the cache and only logs failures; the
// store is authoritative and the next read-through repopulates.
func (s *Service) cachePut(ctx context.Context, userID string, sub *Subscription) {
	if err := s.cache.Put(ctx, userID, sub); err != nil {
		s.logger.Warn("cache write failed",
			"user_id", userID,
			"subscription_id", sub.ID,
			"error", err,
		)
	}
}
