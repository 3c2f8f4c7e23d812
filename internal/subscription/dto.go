// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"
)

type CreateSubscriptionRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Plan   string `json:"plan"    validate:"required,oneof=BASIC PREMIUM FAMILY"`
}

type UpdateStatusRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	Status         string `json:"status"          validate:"required"`
}

type SubscriptionResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Plan            string    `json:"plan"`
	PlanPrice       string    `json:"plan_price"`
	Status          string    `json:"status"`
	StartDate       string    `json:"start_date"`
	ExpirationDate  string    `json:"expiration_date"`
	RenewalAttempts int       `json:"renewal_attempts"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RenewalResponse struct {
	Processed    int                    `json:"processed"`
	RenewedCount int                    `json:"renewed_count"`
	Renewed      []SubscriptionResponse `json:"renewed"`
}

const dateLayout = "2006-01-02"

func ToSubscriptionResponse(s *Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:              s.ID,
		UserID:          s.UserID,
		Plan:            s.Plan.String(),
		PlanPrice:       s.Plan.Price().StringFixed(2),
		Status:          s.Status.String(),
		StartDate:       s.StartDate.Format(dateLayout),
		ExpirationDate:  s.ExpirationDate.Format(dateLayout),
		RenewalAttempts: s.RenewalAttempts,
		UpdatedAt:       s.UpdatedAt,
	}
}

func ToSubscriptionResponseList(subs []Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, len(subs))
	for i := range subs {
		out[i] = ToSubscriptionResponse(&subs[i])
	}
	return out
}
