// AngelaMos | 2026
// entity.go

package subscription

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a subscription. PENDING means a
// payment confirmation is outstanding; SUSPENDED means renewal failed
// too many times and the row stays frozen until an operator intervenes.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCanceled  Status = "CANCELED"
	StatusSuspended Status = "SUSPENDED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusCanceled, StatusSuspended:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid subscription status %q", s)
	}
}

func (s Status) String() string {
	return string(s)
}

type Subscription struct {
	ID              string    `db:"id"              json:"id"`
	UserID          string    `db:"user_id"         json:"user_id"`
	Plan            Plan      `db:"plan"            json:"plan"`
	Status          Status    `db:"status"          json:"status"`
	StartDate       time.Time `db:"start_date"      json:"start_date"`
	ExpirationDate  time.Time `db:"expiration_date" json:"expiration_date"`
	RenewalAttempts int       `db:"renewal_attempts" json:"renewal_attempts"`
	CreatedAt       time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"      json:"updated_at"`
}

// beginTerm resets the billing window: one month of service starting
// today, renewal counter back to zero.
func (s *Subscription) beginTerm(plan Plan, now time.Time) {
	s.Plan = plan
	s.StartDate = now
	s.ExpirationDate = now.AddDate(0, 1, 0)
	s.UpdatedAt = now
	s.RenewalAttempts = 0
}
