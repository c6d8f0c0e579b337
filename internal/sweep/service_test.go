package sweep

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/expiration"
	"github.com/voipdesk/planwatch/internal/subscribers"
)

// mockSource implements SubscriberSource for testing.
type mockSource struct {
	subs    []domain.Subscriber
	listErr error
}

func (m *mockSource) ListActive(_ context.Context) ([]domain.Subscriber, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.subs, nil
}

func (m *mockSource) GetByID(_ context.Context, id string) (*domain.Subscriber, error) {
	for _, sub := range m.subs {
		if sub.ID == id {
			return &sub, nil
		}
	}
	return nil, subscribers.ErrSubscriberNotFound
}

// mockStore implements NotificationStore for testing.
type mockStore struct {
	created   []domain.Notification
	existing  map[string]bool // subscriberID + "|" + title
	createErr map[string]error
	existsErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		existing:  make(map[string]bool),
		createErr: make(map[string]error),
	}
}

func (m *mockStore) Create(_ context.Context, n *domain.Notification) (bool, error) {
	if err := m.createErr[n.SubscriberID]; err != nil {
		return false, err
	}
	key := n.SubscriberID + "|" + n.Title
	if m.existing[key] {
		return false, nil
	}
	m.existing[key] = true
	m.created = append(m.created, *n)
	return true, nil
}

func (m *mockStore) ExistsSince(_ context.Context, subscriberID, title string, _ time.Time) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[subscriberID+"|"+title], nil
}

// staticResolver implements ValidityResolver for testing.
type staticResolver struct{ days int }

func (r staticResolver) Resolve(_ context.Context, _ domain.Subscriber) int { return r.days }

func subscriber(id string, enrolledAt time.Time, plan string) domain.Subscriber {
	return domain.Subscriber{ID: id, Name: "Subscriber " + id, Plan: plan, EnrolledAt: &enrolledAt}
}

func newTestService(source *mockSource, store *mockStore, validity int, now time.Time) *Service {
	s := NewService(source, store, staticResolver{days: validity})
	s.now = func() time.Time { return now }
	return s
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		info      expiration.Info
		wantTitle string
		wantType  domain.NotificationType
		wantNone  bool
	}{
		{
			name:      "warning with several days left",
			info:      expiration.Info{Status: expiration.StatusWarning, DaysUntilExpiration: 5},
			wantTitle: titleExpiringSoon,
			wantType:  domain.NotificationTypeWarning,
		},
		{
			name:      "one day left",
			info:      expiration.Info{Status: expiration.StatusWarning, DaysUntilExpiration: 1},
			wantTitle: titleExpiresTomorrow,
			wantType:  domain.NotificationTypeWarning,
		},
		{
			name:      "expired",
			info:      expiration.Info{Status: expiration.StatusExpired, IsExpired: true, DaysUntilExpiration: -3},
			wantTitle: titleExpired,
			wantType:  domain.NotificationTypeError,
		},
		{
			name:     "expires today emits nothing",
			info:     expiration.Info{Status: expiration.StatusWarning, DaysUntilExpiration: 0},
			wantNone: true,
		},
		{
			name:     "active emits nothing",
			info:     expiration.Info{Status: expiration.StatusActive, DaysUntilExpiration: 20},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := decide(tt.info)
			if tt.wantNone {
				assert.Nil(t, pending)
				return
			}
			require.NotNil(t, pending)
			assert.Equal(t, tt.wantTitle, pending.Title)
			assert.Equal(t, tt.wantType, pending.Type)
		})
	}
}

func TestDecide_MessageIncludesDayCount(t *testing.T) {
	pending := decide(expiration.Info{Status: expiration.StatusWarning, DaysUntilExpiration: 6})
	require.NotNil(t, pending)
	assert.Contains(t, pending.Message, "Faltam 6 dias")
}

func TestService_Run_NotifiesDueSubscribers(t *testing.T) {
	now := time.Date(2024, time.June, 20, 10, 30, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		// 30-day validity: enrolled 23 days ago -> 6 days left -> warning
		subscriber("sub-warning", now.AddDate(0, 0, -23), "sip padrao"),
		// enrolled 28 days ago -> expires tomorrow
		subscriber("sub-tomorrow", now.AddDate(0, 0, -28), "sip padrao"),
		// enrolled 40 days ago -> expired
		subscriber("sub-expired", now.AddDate(0, 0, -40), "sip padrao"),
		// enrolled 5 days ago -> active, nothing due
		subscriber("sub-active", now.AddDate(0, 0, -5), "sip padrao"),
	}}
	store := newMockStore()

	svc := newTestService(source, store, 30, now)
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Evaluated)
	assert.Equal(t, 3, summary.Notified)
	assert.Equal(t, 0, summary.Failed)

	byID := make(map[string]domain.Notification)
	for _, n := range store.created {
		byID[n.SubscriberID] = n
	}

	require.Len(t, byID, 3)
	assert.Equal(t, titleExpiringSoon, byID["sub-warning"].Title)
	assert.Equal(t, domain.NotificationTypeWarning, byID["sub-warning"].Type)
	assert.Equal(t, titleExpiresTomorrow, byID["sub-tomorrow"].Title)
	assert.Equal(t, titleExpired, byID["sub-expired"].Title)
	assert.Equal(t, domain.NotificationTypeError, byID["sub-expired"].Type)

	for _, n := range store.created {
		assert.False(t, n.Read)
		assert.NotEmpty(t, n.ID)
	}
}

func TestService_Run_IdempotentSameDay(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-1", now.AddDate(0, 0, -40), "sip padrao"),
	}}
	store := newMockStore()
	svc := newTestService(source, store, 30, now)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Notified)

	// Second run later the same day: no new insert.
	svc.now = func() time.Time { return now.Add(6 * time.Hour) }
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 1, second.AlreadySent)
	assert.Len(t, store.created, 1)
}

func TestService_Run_SkipsSubscribersWithoutPlanData(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	enrolled := now.AddDate(0, 0, -40)
	source := &mockSource{subs: []domain.Subscriber{
		{ID: "no-enrollment", Plan: "sip padrao"},
		{ID: "no-plan", EnrolledAt: &enrolled},
		subscriber("complete", enrolled, "sip padrao"),
	}}
	store := newMockStore()

	summary, err := newTestService(source, store, 30, now).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SkippedNoData)
	assert.Equal(t, 1, summary.Evaluated)
	assert.Equal(t, 1, summary.Notified)
}

func TestService_Run_IsolatesPerSubscriberFailures(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-broken", now.AddDate(0, 0, -40), "sip padrao"),
		subscriber("sub-ok", now.AddDate(0, 0, -40), "sip padrao"),
	}}
	store := newMockStore()
	store.createErr["sub-broken"] = errors.New("write failed")

	summary, err := newTestService(source, store, 30, now).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Notified)
	require.Len(t, store.created, 1)
	assert.Equal(t, "sub-ok", store.created[0].SubscriberID)
}

func TestService_Run_UpstreamFailureIsFatal(t *testing.T) {
	source := &mockSource{listErr: errors.New("connection refused")}
	svc := newTestService(source, newMockStore(), 30, time.Now())

	summary, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "list subscribers")
}

func TestService_Preview_DoesNotWrite(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-expired", now.AddDate(0, 0, -40), "sip padrao"),
		{ID: "sub-no-data", Name: "No Data"},
	}}
	store := newMockStore()

	results, err := newTestService(source, store, 30, now).Preview(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Empty(t, store.created)

	require.NotNil(t, results[0].Info)
	assert.Equal(t, expiration.StatusExpired, results[0].Info.Status)
	require.NotNil(t, results[0].Pending)
	assert.Equal(t, titleExpired, results[0].Pending.Title)

	assert.Nil(t, results[1].Info)
	assert.NotEmpty(t, results[1].Error)
}

func TestService_PreviewSubscriber(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-1", now.AddDate(0, 0, -5), "sip padrao"),
	}}
	svc := newTestService(source, newMockStore(), 30, now)

	result, err := svc.PreviewSubscriber(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", result.SubscriberID)
	assert.Equal(t, 30, result.ValidityDays)
	require.NotNil(t, result.Info)
	assert.Equal(t, expiration.StatusActive, result.Info.Status)
	assert.Nil(t, result.Pending)

	_, err = svc.PreviewSubscriber(context.Background(), "missing")
	assert.ErrorIs(t, err, subscribers.ErrSubscriberNotFound)
}

func TestService_Run_ExistsCheckUsesStartOfDay(t *testing.T) {
	// A notification sent yesterday must not suppress today's.
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-1", now.AddDate(0, 0, -40), "sip padrao"),
	}}

	var gotSince time.Time
	store := &sinceCapturingStore{inner: newMockStore(), since: &gotSince}

	svc := NewService(source, store, staticResolver{days: 30})
	svc.now = func() time.Time { return now }

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	want := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, gotSince)
}

func TestService_Run_ExistsCheckUsesUTCDay(t *testing.T) {
	// The duplicate guard in the database keys on the UTC calendar day.
	// On a server ahead of UTC, local midnight falls before UTC midnight;
	// the pre-insert check must use the UTC boundary or the two disagree
	// about which day a notification belongs to.
	ahead := time.FixedZone("UTC+10", 10*60*60)
	// 06:00 local on June 21 is 20:00 UTC on June 20.
	now := time.Date(2024, time.June, 21, 6, 0, 0, 0, ahead)
	source := &mockSource{subs: []domain.Subscriber{
		subscriber("sub-1", now.AddDate(0, 0, -40), "sip padrao"),
	}}

	var gotSince time.Time
	store := &sinceCapturingStore{inner: newMockStore(), since: &gotSince}

	svc := NewService(source, store, staticResolver{days: 30})
	svc.now = func() time.Time { return now }

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	want := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, gotSince)
}

type sinceCapturingStore struct {
	inner *mockStore
	since *time.Time
}

func (s *sinceCapturingStore) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	return s.inner.Create(ctx, n)
}

func (s *sinceCapturingStore) ExistsSince(ctx context.Context, subscriberID, title string, since time.Time) (bool, error) {
	*s.since = since
	return s.inner.ExistsSince(ctx, subscriberID, title, since)
}

func TestService_Run_MessagesMatchDueDay(t *testing.T) {
	now := time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC)
	for days := 2; days <= 7; days++ {
		t.Run(fmt.Sprintf("%d days left", days), func(t *testing.T) {
			source := &mockSource{subs: []domain.Subscriber{
				subscriber("sub-1", now.AddDate(0, 0, days-30+1), "sip padrao"),
			}}
			store := newMockStore()

			_, err := newTestService(source, store, 30, now).Run(context.Background())
			require.NoError(t, err)
			require.Len(t, store.created, 1)
			assert.Contains(t, store.created[0].Message, fmt.Sprintf("Faltam %d dias", days))
		})
	}
}
