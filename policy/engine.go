package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// Engine is the OPA policy engine resolving caller tiers.
type Engine struct {
	query rego.PreparedEvalQuery
	now   func() time.Time
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.search_policy.tier"),
		rego.Module("search_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, now: time.Now}, nil
}

// Tier evaluates the tier for a caller. Anonymous callers are always standard.
func (e *Engine) Tier(ctx context.Context, user *domain.UserInfo) (domain.Tier, error) {
	if user == nil || user.ID == "" {
		return domain.TierStandard, nil
	}

	input := map[string]interface{}{
		"user_id":       user.ID,
		"price_id":      user.StripePriceID,
		"period_end_ms": user.StripeCurrentPeriodEnd,
		"now_ms":        e.now().UnixMilli(),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.TierStandard, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.TierStandard, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok && domain.Tier(s) == domain.TierElevated {
		return domain.TierElevated, nil
	}
	return domain.TierStandard, nil
}

// DefaultPolicy grants the elevated tier to subscribers whose billing period,
// plus one day of grace, has not yet ended.
const DefaultPolicy = `
package search_policy

import rego.v1

default tier := "standard"

grace_ms := 86400000

tier := "elevated" if {
	input.price_id != ""
	input.period_end_ms + grace_ms > input.now_ms
}
`
