// Package plans resolves plan references to validity periods.
package plans

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/voipdesk/planwatch/internal/domain"
)

// DefaultValidityDays is used when a plan is unset or unknown.
const DefaultValidityDays = 30

// validityByName is the built-in plan table. The catalog, when configured,
// takes precedence over it.
var validityByName = map[string]int{
	"sip trial":     1,
	"sip basico":    20,
	"sip premium":   25,
	"sip exclusive": 25,
}

// ValidityDays maps a plan name to its validity period in days. Total over
// all inputs: empty or unknown names fall back to DefaultValidityDays.
func ValidityDays(plan string) int {
	if plan == "" {
		return DefaultValidityDays
	}
	if days, ok := validityByName[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return days
	}
	return DefaultValidityDays
}

// Builtin returns a copy of the built-in plan table.
func Builtin() map[string]int {
	out := make(map[string]int, len(validityByName))
	for name, days := range validityByName {
		out[name] = days
	}
	return out
}

// Resolver resolves a subscriber's plan reference to a validity period,
// consulting the catalog first when one is configured.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver. repo may be nil, in which case only the
// built-in table is used.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the validity period for a subscriber, always >= 1.
// Precedence: explicit per-subscriber override, catalog entry, built-in
// table, default. Non-positive values at any level fall through to the
// next one.
func (r *Resolver) Resolve(ctx context.Context, sub domain.Subscriber) int {
	if sub.PlanValidityDays != nil && *sub.PlanValidityDays > 0 {
		return *sub.PlanValidityDays
	}

	if r.repo != nil && sub.Plan != "" {
		plan, err := r.repo.GetByName(ctx, sub.Plan)
		switch {
		case err == nil && plan.ValidityDays >= 1:
			return plan.ValidityDays
		case err != nil && !errors.Is(err, ErrPlanNotFound):
			slog.Warn("plan catalog lookup failed, using built-in table",
				"plan", sub.Plan,
				"error", err,
			)
		}
	}

	return ValidityDays(sub.Plan)
}
