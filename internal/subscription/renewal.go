// AngelaMos | 2026
// renewal.go

package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/streampix/subscription-backend/internal/events"
)

// RenewDue renews every ACTIVE subscription whose expiration date has
// passed, up to the configured batch size. Each subscription is
// processed independently: one failed payment never aborts the batch.
// Failed renewals increment the attempt counter and suspend the
// subscription once the counter reaches the configured maximum.
// Returns the successfully renewed subscriptions and the number of due
// subscriptions processed; failures surface through logs.
func (s *Service) RenewDue(ctx context.Context) ([]Subscription, int, error) {
	due, err := s.repo.ListDueForRenewal(
		ctx,
		time.Now(),
		s.cfg.RenewalBatchSize,
	)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("renewal batch started", "due", len(due))

	var renewed []Subscription
	var failures, suspended int

	for i := range due {
		sub := &due[i]

		if err := s.renewOne(ctx, sub); err != nil {
			failures++
			s.logger.Error("subscription renewal failed",
				"subscription_id", sub.ID,
				"user_id", sub.UserID,
				"attempt", sub.RenewalAttempts+1,
				"max_attempts", s.cfg.MaxRenewalAttempts,
				"error", err,
			)

			if s.penalize(ctx, sub) {
				suspended++
			}
			continue
		}

		renewed = append(renewed, *sub)
		s.events.Publish(ctx, events.RoutingRenewed, events.SubscriptionEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			Plan:           sub.Plan.String(),
			Status:         sub.Status.String(),
		})
	}

	s.logger.Info("renewal batch completed",
		"success", len(renewed),
		"failures", failures,
		"suspended", suspended,
	)

	return renewed, len(due), nil
}

func (s *Service) renewOne(ctx context.Context, sub *Subscription) error {
	err := s.payment.Debit(ctx, sub.UserID, sub.Plan.Price(),
		fmt.Sprintf("Renewal of %s", sub.Plan.Description()),
		sub.ID,
	)
	if err != nil {
		return err
	}

	sub.Status = StatusPending
	sub.beginTerm(sub.Plan, time.Now())

	return s.repo.Update(ctx, sub)
}

// penalize records a failed renewal attempt and suspends the
// subscription when the counter hits the maximum. A failure persisting
// the penalty is logged and swallowed so the batch keeps moving.
// Reports whether the subscription was suspended.
func (s *Service) penalize(ctx context.Context, sub *Subscription) bool {
	sub.RenewalAttempts++
	sub.UpdatedAt = time.Now()

	wasSuspended := false
	if sub.RenewalAttempts >= s.cfg.MaxRenewalAttempts {
		s.logger.Warn("subscription exceeded max renewal attempts, suspending",
			"subscription_id", sub.ID,
			"attempts", sub.RenewalAttempts,
		)
		sub.Status = StatusSuspended
		wasSuspended = true
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		s.logger.Error("failed to persist renewal penalty",
			"subscription_id", sub.ID,
			"error", err,
		)
		return wasSuspended
	}

	if wasSuspended {
		s.events.Publish(ctx, events.RoutingSuspended, events.SubscriptionEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			Plan:           sub.Plan.String(),
			Status:         sub.Status.String(),
		})
	}

	return wasSuspended
}
