package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voipdesk/planwatch/internal/domain"
)

func TestValidityDays(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want int
	}{
		{"trial plan", "sip trial", 1},
		{"basic plan", "sip basico", 20},
		{"premium plan", "sip premium", 25},
		{"exclusive plan", "sip exclusive", 25},
		{"case and whitespace are normalized", "  SIP Premium ", 25},
		{"empty plan uses default", "", 30},
		{"unknown plan uses default", "sip enterprise", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidityDays(tt.plan))
		})
	}
}

// mockRepository implements Repository for testing.
type mockRepository struct {
	plans map[string]*domain.Plan
	err   error
}

func (m *mockRepository) GetByName(_ context.Context, name string) (*domain.Plan, error) {
	if m.err != nil {
		return nil, m.err
	}
	if plan, ok := m.plans[name]; ok {
		return plan, nil
	}
	return nil, ErrPlanNotFound
}

func (m *mockRepository) List(_ context.Context) ([]domain.Plan, error) {
	return nil, nil
}

func intPtr(n int) *int { return &n }

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit override wins over everything", func(t *testing.T) {
		r := NewResolver(&mockRepository{plans: map[string]*domain.Plan{
			"sip trial": {Name: "sip trial", ValidityDays: 99},
		}})
		sub := domain.Subscriber{Plan: "sip trial", PlanValidityDays: intPtr(45)}
		assert.Equal(t, 45, r.Resolve(ctx, sub))
	})

	t.Run("non-positive override falls through to the plan name", func(t *testing.T) {
		r := NewResolver(nil)
		sub := domain.Subscriber{Plan: "sip basico", PlanValidityDays: intPtr(0)}
		assert.Equal(t, 20, r.Resolve(ctx, sub))
	})

	t.Run("catalog entry wins over built-in table", func(t *testing.T) {
		r := NewResolver(&mockRepository{plans: map[string]*domain.Plan{
			"sip premium": {Name: "sip premium", ValidityDays: 60},
		}})
		sub := domain.Subscriber{Plan: "sip premium"}
		assert.Equal(t, 60, r.Resolve(ctx, sub))
	})

	t.Run("missing catalog entry falls back to built-in table", func(t *testing.T) {
		r := NewResolver(&mockRepository{plans: map[string]*domain.Plan{}})
		sub := domain.Subscriber{Plan: "sip premium"}
		assert.Equal(t, 25, r.Resolve(ctx, sub))
	})

	t.Run("catalog failure falls back to built-in table", func(t *testing.T) {
		r := NewResolver(&mockRepository{err: errors.New("connection refused")})
		sub := domain.Subscriber{Plan: "sip trial"}
		assert.Equal(t, 1, r.Resolve(ctx, sub))
	})

	t.Run("no repo and empty plan uses default", func(t *testing.T) {
		r := NewResolver(nil)
		assert.Equal(t, DefaultValidityDays, r.Resolve(ctx, domain.Subscriber{}))
	})

	t.Run("invalid catalog validity falls back to built-in table", func(t *testing.T) {
		r := NewResolver(&mockRepository{plans: map[string]*domain.Plan{
			"sip basico": {Name: "sip basico", ValidityDays: 0},
		}})
		sub := domain.Subscriber{Plan: "sip basico"}
		assert.Equal(t, 20, r.Resolve(ctx, sub))
	})
}
