// AngelaMos | 2026
// plan.go

package subscription

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Plan is a fixed-price tier. The catalog is immutable and lives in
// code, not in the database.
type Plan string

const (
	PlanBasic   Plan = "BASIC"
	PlanPremium Plan = "PREMIUM"
	PlanFamily  Plan = "FAMILY"
)

var planCatalog = map[Plan]struct {
	price       decimal.Decimal
	description string
}{
	PlanBasic:   {decimal.NewFromFloat(19.90), "Basic plan"},
	PlanPremium: {decimal.NewFromFloat(39.90), "Premium plan"},
	PlanFamily:  {decimal.NewFromFloat(59.90), "Family plan"},
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planCatalog[p]; !ok {
		return "", fmt.Errorf("invalid plan %q", s)
	}
	return p, nil
}

func (p Plan) Price() decimal.Decimal {
	return planCatalog[p].price
}

func (p Plan) Description() string {
	return planCatalog[p].description
}

func (p Plan) String() string {
	return string(p)
}
