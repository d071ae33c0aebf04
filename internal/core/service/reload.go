package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/api/metrics"
	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// ReloadOrchestrator owns every vendor session in the process. Sessions live
// here and only here, keyed by account local ID; accounts themselves stay
// cold snapshots. All transitions of the per-account session state machine
// run under that account's lock, so two concurrent operations on the same
// account trigger at most one reload.
type ReloadOrchestrator struct {
	registry ports.Registry
	repo     ports.AccountRepository
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*accountSession
}

type accountSession struct {
	mu    sync.Mutex
	state domain.SessionState
}

func NewReloadOrchestrator(registry ports.Registry, repo ports.AccountRepository, logger zerolog.Logger) *ReloadOrchestrator {
	return &ReloadOrchestrator{
		registry: registry,
		repo:     repo,
		logger:   logger,
		sessions: make(map[string]*accountSession),
	}
}

func (o *ReloadOrchestrator) entry(localID string) *accountSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[localID]
	if !ok {
		s = &accountSession{}
		o.sessions[localID] = s
	}
	return s
}

// Ensure returns a live vendor session for the account, reloading when the
// current one is missing or expired. Sessionless services yield a nil handle
// with no error. When the reload rotates credentials, the new payload is
// persisted before the handle is released; a rotated token that only lives
// in memory is lost on the next crash.
func (o *ReloadOrchestrator) Ensure(ctx context.Context, account *domain.Account) (any, error) {
	adapter, ok := o.registry.Lookup(account.Service)
	if !ok {
		return nil, fmt.Errorf("ensure session for %s: %w", account.Service, domain.ErrServiceNotImplemented)
	}
	reloader, ok := adapter.(ports.SessionReloader)
	if !ok {
		return nil, nil
	}

	entry := o.entry(account.LocalID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if handle, live := entry.state.Live(); live {
		return handle, nil
	}

	payload, err := reloader.Reload(ctx, account)
	if err != nil {
		metrics.SessionReloadsTotal.WithLabelValues(account.Service.String(), "error").Inc()
		o.logger.Error().Err(err).
			Str("account", account.LocalID).
			Str("service", account.Service.String()).
			Msg("session reload failed")
		return nil, fmt.Errorf("reload %s session: %w", account.Service, err)
	}

	if payload.Authentication != nil {
		if err := o.repo.UpdateAuthentication(ctx, account.LocalID, payload.Authentication); err != nil {
			metrics.SessionReloadsTotal.WithLabelValues(account.Service.String(), "error").Inc()
			return nil, fmt.Errorf("persist rotated credentials for %s: %w", account.LocalID, err)
		}
		account.Authentication = payload.Authentication
	}

	entry.state.MarkLive(payload.Handle)
	metrics.SessionReloadsTotal.WithLabelValues(account.Service.String(), "ok").Inc()
	o.logger.Debug().
		Str("account", account.LocalID).
		Str("service", account.Service.String()).
		Msg("session reloaded")
	return payload.Handle, nil
}

// Expire records a vendor auth-expired signal for the account. The next
// Ensure goes through a full reload.
func (o *ReloadOrchestrator) Expire(localID string) {
	entry := o.entry(localID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.state.MarkExpired()
}

// Drop forgets the account's session entirely, e.g. on account removal.
func (o *ReloadOrchestrator) Drop(localID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, localID)
}
