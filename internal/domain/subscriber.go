package domain

import "time"

// Subscriber is an account holder on the PBX platform. Records are owned by
// the subscriber store; this service only reads them.
type Subscriber struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Plan is the named plan the subscriber is enrolled in.
	Plan string `json:"plan"`
	// PlanValidityDays is an explicit per-subscriber validity override.
	// When nil the validity is resolved from the plan name.
	PlanValidityDays *int       `json:"plan_validity_days,omitempty"`
	EnrolledAt       *time.Time `json:"enrolled_at,omitempty"`
	DeletedAt        *time.Time `json:"-"`
}

// HasPlanData reports whether the subscriber carries enough data for an
// expiration evaluation: an enrollment date and either a plan name or an
// explicit validity override.
func (s Subscriber) HasPlanData() bool {
	if s.EnrolledAt == nil {
		return false
	}
	return s.Plan != "" || s.PlanValidityDays != nil
}
