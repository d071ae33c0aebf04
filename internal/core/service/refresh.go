package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/api/metrics"
	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

const (
	defaultRefreshBudget = 30 * time.Second
	summaryLimit         = 120
)

// RefreshService sweeps all stored primary accounts in the background,
// fetches their news through the dispatcher, and notifies about items not
// seen before. The sweep runs under a hard time budget: hitting it returns
// partial success instead of blocking the scheduler slot.
type RefreshService struct {
	repo     ports.AccountRepository
	dispatch *Dispatcher
	seen     ports.SeenNewsStore
	notifier ports.Notifier
	budget   time.Duration
	logger   zerolog.Logger
}

func NewRefreshService(repo ports.AccountRepository, dispatch *Dispatcher, seen ports.SeenNewsStore, notifier ports.Notifier, budget time.Duration, logger zerolog.Logger) *RefreshService {
	if budget <= 0 {
		budget = defaultRefreshBudget
	}
	return &RefreshService{
		repo:     repo,
		dispatch: dispatch,
		seen:     seen,
		notifier: notifier,
		budget:   budget,
		logger:   logger,
	}
}

// Run executes one full sweep. Per-account failures are logged and skipped;
// only storage failures and budget exhaustion surface as errors.
func (s *RefreshService) Run(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	accounts, err := s.repo.List(ctx)
	if err != nil {
		metrics.RefreshDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("refresh: list accounts: %w", err)
	}

	for _, account := range accounts {
		if account.IsExternal {
			continue
		}
		if ctx.Err() != nil {
			metrics.RefreshDuration.WithLabelValues("partial").Observe(time.Since(start).Seconds())
			return fmt.Errorf("refresh: %w: %w", domain.ErrPartialRefresh, ctx.Err())
		}
		if err := s.refreshAccount(ctx, account); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				metrics.RefreshDuration.WithLabelValues("partial").Observe(time.Since(start).Seconds())
				return fmt.Errorf("refresh: %w: %w", domain.ErrPartialRefresh, err)
			}
			s.logger.Warn().Err(err).
				Str("account", account.LocalID).
				Str("service", account.Service.String()).
				Msg("account refresh failed")
		}
	}

	metrics.RefreshDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return nil
}

func (s *RefreshService) refreshAccount(ctx context.Context, account *domain.Account) error {
	news, err := s.dispatch.News(ctx, account.LocalID)
	if err != nil {
		return err
	}

	var fresh []domain.Information
	for _, item := range news {
		seen, err := s.seen.Seen(ctx, account.LocalID, item.ID)
		if err != nil {
			return fmt.Errorf("seen-news lookup: %w", err)
		}
		if seen {
			continue
		}
		if err := s.seen.Mark(ctx, account.LocalID, item.ID); err != nil {
			return fmt.Errorf("seen-news mark: %w", err)
		}
		fresh = append(fresh, item)
	}

	return s.notify(ctx, account, fresh)
}

// notify emits one notification per account per sweep: a detailed one for a
// single new item, a count summary for several.
func (s *RefreshService) notify(ctx context.Context, account *domain.Account, fresh []domain.Information) error {
	switch {
	case len(fresh) == 0:
		return nil
	case len(fresh) == 1:
		item := fresh[0]
		metrics.NotificationsSentTotal.WithLabelValues("single").Inc()
		return s.notifier.Notify(ctx, ports.Notification{
			ID:       account.LocalID + ":" + item.ID,
			Title:    item.Title,
			Subtitle: account.DisplayName(),
			Body:     summarize(item.Content),
		})
	default:
		metrics.NotificationsSentTotal.WithLabelValues("grouped").Inc()
		return s.notifier.Notify(ctx, ports.Notification{
			ID:       account.LocalID + ":news",
			Title:    "Nouvelles actualités",
			Subtitle: account.DisplayName(),
			Body:     fmt.Sprintf("%d nouvelles actualités ont été publiées", len(fresh)),
		})
	}
}

// summarize trims content to a notification-sized excerpt on a rune
// boundary.
func summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryLimit {
		return content
	}
	return string(runes[:summaryLimit]) + "…"
}
