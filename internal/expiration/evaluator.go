// Package expiration computes plan expiration status from an enrollment
// date and a validity period.
package expiration

import (
	"fmt"
	"math"
	"time"
)

// Status classifies how close a subscription is to its expiration date.
type Status string

// Expiration statuses, ordered active -> warning -> expired.
const (
	StatusActive  Status = "active"
	StatusWarning Status = "warning"
	StatusExpired Status = "expired"
)

// WarningWindowDays is the number of days before expiration during which a
// subscription is reported as "warning".
const WarningWindowDays = 7

// Info is the computed expiration state for one subscriber. It is derived
// fresh on every evaluation and never persisted.
type Info struct {
	// ExpirationDate is the last valid instant of the subscription:
	// enrollment day + (validityDays - 1), at end of day. The enrollment
	// day itself counts as day 1 of validity.
	ExpirationDate      time.Time `json:"expiration_date"`
	IsExpired           bool      `json:"is_expired"`
	DaysUntilExpiration int       `json:"days_until_expiration"`
	Status              Status    `json:"status"`
	StatusText          string    `json:"status_text"`
	ProgressPercentage  float64   `json:"progress_percentage"`
}

// Evaluate computes the expiration state of a subscription enrolled at
// enrolledAt with the given validity period, as seen at instant now.
// All date arithmetic happens on calendar days in now's location, so the
// time of day of either input never skews the result. validityDays below 1
// is treated as 1.
func Evaluate(enrolledAt time.Time, validityDays int, now time.Time) Info {
	if validityDays < 1 {
		validityDays = 1
	}

	loc := now.Location()
	today := startOfDay(now, loc)
	enrollDay := startOfDay(enrolledAt.In(loc), loc)

	expirationDay := enrollDay.AddDate(0, 0, validityDays-1)
	expirationDate := endOfDay(expirationDay)

	daysUntil := daysBetween(today, expirationDay)
	isExpired := today.After(expirationDate)

	daysElapsed := daysBetween(enrollDay, today)
	progress := float64(daysElapsed) / float64(validityDays) * 100
	progress = math.Min(math.Max(progress, 0), 100)

	status, text := classify(isExpired, daysUntil)

	return Info{
		ExpirationDate:      expirationDate,
		IsExpired:           isExpired,
		DaysUntilExpiration: daysUntil,
		Status:              status,
		StatusText:          text,
		ProgressPercentage:  progress,
	}
}

func classify(isExpired bool, daysUntil int) (Status, string) {
	switch {
	case isExpired:
		days := -daysUntil
		if days == 1 {
			return StatusExpired, "Vencido há 1 dia"
		}
		return StatusExpired, fmt.Sprintf("Vencido há %d dias", days)
	case daysUntil <= WarningWindowDays:
		switch daysUntil {
		case 0:
			return StatusWarning, "Vence hoje"
		case 1:
			return StatusWarning, "Vence amanhã"
		default:
			return StatusWarning, fmt.Sprintf("Vence em %d dias", daysUntil)
		}
	default:
		return StatusActive, fmt.Sprintf("%d dias restantes", daysUntil)
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(dayStart time.Time) time.Time {
	y, m, d := dayStart.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), dayStart.Location())
}

// daysBetween counts calendar days from one midnight to another. Rounding
// absorbs the one-hour skew of DST transitions.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
