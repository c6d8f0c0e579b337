//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createSubscriber inserts a subscriber row and returns its id.
func createSubscriber(t *testing.T, name, plan string, validityDays *int, enrolledAt *time.Time) string {
	t.Helper()

	var id string
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO subscribers (name, plan, plan_validity_days, enrolled_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		name, plan, validityDays, enrolledAt,
	).Scan(&id)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM subscribers WHERE id = $1`, id)
	})

	return id
}

// softDeleteSubscriber marks a subscriber as deleted.
func softDeleteSubscriber(t *testing.T, id string) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`UPDATE subscribers SET deleted_at = now() WHERE id = $1`, id)
	require.NoError(t, err)
}

// createPlan inserts a catalog plan row.
func createPlan(t *testing.T, name string, validityDays int) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO plans (name, validity_days) VALUES ($1, $2)`, name, validityDays)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM plans WHERE name = $1`, name)
	})
}

// countNotifications returns how many notifications exist for a subscriber,
// optionally filtered by title ("" matches all).
func countNotifications(t *testing.T, subscriberID, title string) int {
	t.Helper()

	var count int
	var err error
	if title == "" {
		err = testDB.QueryRow(context.Background(),
			`SELECT count(*) FROM notifications WHERE subscriber_id = $1`,
			subscriberID).Scan(&count)
	} else {
		err = testDB.QueryRow(context.Background(),
			`SELECT count(*) FROM notifications WHERE subscriber_id = $1 AND title = $2`,
			subscriberID, title).Scan(&count)
	}
	require.NoError(t, err)
	return count
}

// daysAgo returns a timestamp n days before now, at noon UTC to stay clear
// of midnight boundaries while the test runs.
func daysAgo(n int) *time.Time {
	ts := time.Now().UTC().AddDate(0, 0, -n)
	ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 12, 0, 0, 0, time.UTC)
	return &ts
}

func intPtr(v int) *int { return &v }
