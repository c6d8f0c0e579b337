package domain

import "time"

// Plan is a catalog entry mapping a plan name to its validity period.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ValidityDays int       `json:"validity_days"`
	CreatedAt    time.Time `json:"created_at"`
}
