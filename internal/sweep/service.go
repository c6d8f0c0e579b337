// Package sweep implements the plan-expiration sweep: it classifies every
// active subscriber's subscription and emits at most one due notification
// per subscriber per day.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/expiration"
)

// Notification titles and messages. The title doubles as part of the
// idempotency key, so these strings must stay stable.
const (
	titleExpiringSoon    = "Seu plano está próximo do vencimento"
	titleExpiresTomorrow = "Seu Plano Vence Amanhã"
	titleExpired         = "Plano Vencido"

	messageExpiringSoon    = "Faltam %d dias para o vencimento do seu plano. Renove agora para evitar interrupções."
	messageExpiresTomorrow = "Seu Plano Vence Amanhã, Renove Agora"
	messageExpired         = "Seu Plano está vencido, renove agora e evite que seus ramais sejam excluídos!"
)

// SubscriberSource lists the subscribers to evaluate.
type SubscriberSource interface {
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
	GetByID(ctx context.Context, id string) (*domain.Subscriber, error)
}

// NotificationStore persists due notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) (created bool, err error)
	ExistsSince(ctx context.Context, subscriberID, title string, since time.Time) (bool, error)
}

// ValidityResolver resolves a subscriber's plan reference to validity days.
type ValidityResolver interface {
	Resolve(ctx context.Context, sub domain.Subscriber) int
}

// Service runs the expiration sweep.
type Service struct {
	subscribers SubscriberSource
	store       NotificationStore
	resolver    ValidityResolver
	now         func() time.Time
}

// NewService creates a new sweep service.
func NewService(subscribers SubscriberSource, store NotificationStore, resolver ValidityResolver) *Service {
	return &Service{
		subscribers: subscribers,
		store:       store,
		resolver:    resolver,
		now:         time.Now,
	}
}

// Summary reports the outcome of one sweep run.
type Summary struct {
	Evaluated     int `json:"evaluated"`
	Notified      int `json:"notified"`
	AlreadySent   int `json:"already_sent"`
	SkippedNoData int `json:"skipped_no_data"`
	Failed        int `json:"failed"`
}

// pendingNotification is a notification the sweep decided to emit.
type pendingNotification struct {
	Title   string
	Message string
	Type    domain.NotificationType
}

// decide picks at most one notification for the given expiration state.
// Rules are mutually exclusive and priority ordered: nearing expiration
// (warning, more than one day left), expires tomorrow, expired. Returns
// nil when nothing is due.
func decide(info expiration.Info) *pendingNotification {
	switch {
	case info.Status == expiration.StatusWarning && info.DaysUntilExpiration > 1:
		return &pendingNotification{
			Title:   titleExpiringSoon,
			Message: fmt.Sprintf(messageExpiringSoon, info.DaysUntilExpiration),
			Type:    domain.NotificationTypeWarning,
		}
	case info.DaysUntilExpiration == 1:
		return &pendingNotification{
			Title:   titleExpiresTomorrow,
			Message: messageExpiresTomorrow,
			Type:    domain.NotificationTypeWarning,
		}
	case info.IsExpired:
		return &pendingNotification{
			Title:   titleExpired,
			Message: messageExpired,
			Type:    domain.NotificationTypeError,
		}
	default:
		return nil
	}
}

// Run executes the sweep over all active subscribers. A failure to fetch
// the subscriber list fails the whole run; any per-subscriber failure is
// counted and skipped.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	start := s.now()

	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		recordRun("failed", s.now().Sub(start))
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	summary := &Summary{}
	for _, sub := range subs {
		if !sub.HasPlanData() {
			summary.SkippedNoData++
			continue
		}

		if err := s.sweepOne(ctx, sub, summary); err != nil {
			summary.Failed++
			slog.Warn("sweep failed for subscriber",
				"subscriber_id", sub.ID,
				"error", err,
			)
		}
	}

	recordRun("success", s.now().Sub(start))
	slog.Info("expiration sweep finished",
		"evaluated", summary.Evaluated,
		"notified", summary.Notified,
		"already_sent", summary.AlreadySent,
		"skipped_no_data", summary.SkippedNoData,
		"failed", summary.Failed,
	)

	return summary, nil
}

func (s *Service) sweepOne(ctx context.Context, sub domain.Subscriber, summary *Summary) error {
	now := s.now()
	validity := s.resolver.Resolve(ctx, sub)
	info := expiration.Evaluate(*sub.EnrolledAt, validity, now)
	summary.Evaluated++

	pending := decide(info)
	if pending == nil {
		recordOutcome("not_due")
		return nil
	}

	// The unique index keys on the UTC calendar day, so the fast path
	// must use the same day boundary regardless of server timezone.
	nowUTC := now.UTC()
	startOfToday := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	exists, err := s.store.ExistsSince(ctx, sub.ID, pending.Title, startOfToday)
	if err != nil {
		recordOutcome("error")
		return fmt.Errorf("check existing notification: %w", err)
	}
	if exists {
		summary.AlreadySent++
		recordOutcome("already_sent")
		return nil
	}

	created, err := s.store.Create(ctx, &domain.Notification{
		ID:           uuid.NewString(),
		SubscriberID: sub.ID,
		Title:        pending.Title,
		Message:      pending.Message,
		Type:         pending.Type,
		Read:         false,
		CreatedAt:    now,
	})
	if err != nil {
		recordOutcome("error")
		return fmt.Errorf("create notification: %w", err)
	}
	if !created {
		// Lost the race against a concurrent run; the unique index
		// already holds today's notification.
		summary.AlreadySent++
		recordOutcome("already_sent")
		return nil
	}

	summary.Notified++
	recordOutcome("notified")

	slog.Debug("notification created",
		"subscriber_id", sub.ID,
		"title", pending.Title,
		"status", info.Status,
		"days_until_expiration", info.DaysUntilExpiration,
	)

	return nil
}

// Result is one subscriber's entry in a read-only preview.
type Result struct {
	SubscriberID string               `json:"subscriber_id"`
	Name         string               `json:"name"`
	Plan         string               `json:"plan"`
	ValidityDays int                  `json:"validity_days,omitempty"`
	Info         *expiration.Info     `json:"expiration,omitempty"`
	Pending      *NotificationPreview `json:"pending_notification,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// NotificationPreview describes the notification a sweep run would emit.
type NotificationPreview struct {
	Title   string                  `json:"title"`
	Message string                  `json:"message"`
	Type    domain.NotificationType `json:"type"`
}

// Preview evaluates all active subscribers without writing anything.
func (s *Service) Preview(ctx context.Context) ([]Result, error) {
	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	results := make([]Result, 0, len(subs))
	for _, sub := range subs {
		results = append(results, s.previewOne(ctx, sub))
	}
	return results, nil
}

// PreviewSubscriber evaluates a single subscriber without writing anything.
func (s *Service) PreviewSubscriber(ctx context.Context, id string) (*Result, error) {
	sub, err := s.subscribers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := s.previewOne(ctx, *sub)
	return &result, nil
}

func (s *Service) previewOne(ctx context.Context, sub domain.Subscriber) Result {
	result := Result{
		SubscriberID: sub.ID,
		Name:         sub.Name,
		Plan:         sub.Plan,
	}

	if !sub.HasPlanData() {
		result.Error = "missing enrollment date or plan"
		return result
	}

	validity := s.resolver.Resolve(ctx, sub)
	info := expiration.Evaluate(*sub.EnrolledAt, validity, s.now())

	result.ValidityDays = validity
	result.Info = &info
	if pending := decide(info); pending != nil {
		result.Pending = &NotificationPreview{
			Title:   pending.Title,
			Message: pending.Message,
			Type:    pending.Type,
		}
	}
	return result
}
