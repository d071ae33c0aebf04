package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/api/metrics"
	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// Dispatcher routes every data operation to the adapter registered for the
// account's service tag. Capabilities are discovered by type assertion on
// the registry entry; a service without the capability yields an empty or
// neutral result rather than an error, except for mutations.
type Dispatcher struct {
	registry ports.Registry
	repo     ports.AccountRepository
	reloads  *ReloadOrchestrator
	logger   zerolog.Logger
}

func NewDispatcher(registry ports.Registry, repo ports.AccountRepository, reloads *ReloadOrchestrator, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, repo: repo, reloads: reloads, logger: logger}
}

func (d *Dispatcher) primaryAccount(ctx context.Context, localID string) (*domain.Account, error) {
	account, err := d.repo.FindByLocalID(ctx, localID)
	if err != nil {
		return nil, err
	}
	if account.IsExternal {
		return nil, fmt.Errorf("account %s: %w", localID, domain.ErrNotPrimary)
	}
	return account, nil
}

func (d *Dispatcher) externalAccount(ctx context.Context, localID string) (*domain.Account, error) {
	account, err := d.repo.FindByLocalID(ctx, localID)
	if err != nil {
		return nil, err
	}
	if !account.IsExternal {
		return nil, fmt.Errorf("account %s: %w", localID, domain.ErrNotExternal)
	}
	return account, nil
}

// withSession ensures a live session, runs fn, and retries exactly once
// through a fresh reload when the vendor rejects the session mid-flight.
func (d *Dispatcher) withSession(ctx context.Context, account *domain.Account, op string, fn func(session any) error) error {
	start := time.Now()
	service := account.Service.String()

	err := func() error {
		session, err := d.reloads.Ensure(ctx, account)
		if err != nil {
			return err
		}
		err = fn(session)
		if err == nil || !errors.Is(err, domain.ErrSessionExpired) {
			return err
		}

		d.reloads.Expire(account.LocalID)
		session, reloadErr := d.reloads.Ensure(ctx, account)
		if reloadErr != nil {
			return reloadErr
		}
		return fn(session)
	}()

	metrics.VendorFetchDuration.WithLabelValues(service, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VendorErrorsTotal.WithLabelValues(service, errorClass(err)).Inc()
		return err
	}
	metrics.VendorFetchesTotal.WithLabelValues(service, op).Inc()
	return nil
}

func errorClass(err error) string {
	var ve *domain.VendorError
	if errors.As(err, &ve) {
		return ve.Class.String()
	}
	return "other"
}

// ---------------------------------------------------------------------------
// Single-account operations (primary services)

// Homework returns the assignments of a primary account for the given week.
// Services without homework support yield an empty list.
func (d *Dispatcher) Homework(ctx context.Context, localID string, week int) ([]domain.Homework, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.HomeworkProvider)
	if !ok {
		return []domain.Homework{}, nil
	}

	var result []domain.Homework
	err = d.withSession(ctx, account, "homework", func(session any) error {
		var callErr error
		result, callErr = provider.HomeworkForWeek(ctx, account, session, week)
		return callErr
	})
	return result, err
}

// ToggleHomework flips the done flag through the vendor. Unlike read
// operations, a missing capability is an error: the mutation cannot be
// silently absorbed.
func (d *Dispatcher) ToggleHomework(ctx context.Context, localID string, homework domain.Homework, done bool) (*domain.Homework, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.HomeworkProvider)
	if !ok {
		return nil, fmt.Errorf("toggle homework on %s: %w", account.Service, domain.ErrServiceNotImplemented)
	}

	var result *domain.Homework
	err = d.withSession(ctx, account, "toggle_homework", func(session any) error {
		var callErr error
		result, callErr = provider.SetHomeworkDone(ctx, account, session, homework, done)
		return callErr
	})
	return result, err
}

// News returns the school news feed of a primary account.
func (d *Dispatcher) News(ctx context.Context, localID string) ([]domain.Information, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.NewsProvider)
	if !ok {
		return []domain.Information{}, nil
	}

	var result []domain.Information
	err = d.withSession(ctx, account, "news", func(session any) error {
		var callErr error
		result, callErr = provider.News(ctx, account, session)
		return callErr
	})
	return result, err
}

// AcknowledgeNews round-trips a read acknowledgement and returns the merged
// item.
func (d *Dispatcher) AcknowledgeNews(ctx context.Context, localID string, info domain.Information) (*domain.Information, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.NewsProvider)
	if !ok {
		return nil, fmt.Errorf("acknowledge news on %s: %w", account.Service, domain.ErrServiceNotImplemented)
	}

	var result *domain.Information
	err = d.withSession(ctx, account, "acknowledge_news", func(session any) error {
		var callErr error
		result, callErr = provider.AcknowledgeNews(ctx, account, session, info)
		return callErr
	})
	return result, err
}

// Menu returns the canteen menu for a date. Nil with no error means the
// service publishes no menu.
func (d *Dispatcher) Menu(ctx context.Context, localID string, date time.Time) (*domain.Menu, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.MenuProvider)
	if !ok {
		return nil, nil
	}

	var result *domain.Menu
	err = d.withSession(ctx, account, "menu", func(session any) error {
		var callErr error
		result, callErr = provider.Menu(ctx, account, session, date)
		return callErr
	})
	return result, err
}

// Timetable returns the week schedule of a primary account.
func (d *Dispatcher) Timetable(ctx context.Context, localID string, week int) (domain.Timetable, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.TimetableProvider)
	if !ok {
		return domain.Timetable{}, nil
	}

	var result domain.Timetable
	err = d.withSession(ctx, account, "timetable", func(session any) error {
		var callErr error
		result, callErr = provider.TimetableForWeek(ctx, account, session, week)
		return callErr
	})
	return result, err
}

// Grades returns the grade snapshot of a primary account.
func (d *Dispatcher) Grades(ctx context.Context, localID string) ([]domain.Grade, error) {
	account, err := d.primaryAccount(ctx, localID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.GradesProvider)
	if !ok {
		return []domain.Grade{}, nil
	}

	var result []domain.Grade
	err = d.withSession(ctx, account, "grades", func(session any) error {
		var callErr error
		result, callErr = provider.Grades(ctx, account, session)
		return callErr
	})
	return result, err
}

// ---------------------------------------------------------------------------
// Aggregate operations (fan-out over linked external accounts)

// fanOut runs fn once per linked external account concurrently. Results land
// in per-account slots so the concatenation order is the linking order
// regardless of which goroutine finishes first. A failing account
// contributes nothing and never fails the aggregate.
func fanOut[T any](ctx context.Context, d *Dispatcher, primary *domain.Account, op string, fn func(account *domain.Account, session any) ([]T, error)) []T {
	slots := make([][]T, len(primary.LinkedExternalLocalIDs))
	var wg sync.WaitGroup

	for i, externalID := range primary.LinkedExternalLocalIDs {
		account, err := d.externalAccount(ctx, externalID)
		if err != nil {
			d.logger.Warn().Err(err).
				Str("primary", primary.LocalID).
				Str("external", externalID).
				Msg("linked account unavailable")
			continue
		}

		wg.Add(1)
		go func(slot int, account *domain.Account) {
			defer wg.Done()
			err := d.withSession(ctx, account, op, func(session any) error {
				items, callErr := fn(account, session)
				if callErr != nil {
					return callErr
				}
				slots[slot] = items
				return nil
			})
			if err != nil {
				d.logger.Warn().Err(err).
					Str("account", account.LocalID).
					Str("service", account.Service.String()).
					Str("operation", op).
					Msg("linked account fetch failed")
			}
		}(i, account)
	}
	wg.Wait()

	var out []T
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}

// Balances aggregates the balances of every external account linked to the
// primary, in linking order.
func (d *Dispatcher) Balances(ctx context.Context, primaryLocalID string) ([]domain.Balance, error) {
	primary, err := d.primaryAccount(ctx, primaryLocalID)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, d, primary, "balances", func(account *domain.Account, session any) ([]domain.Balance, error) {
		provider, ok := d.capability(account.Service).(ports.BalanceProvider)
		if !ok {
			return nil, nil
		}
		return provider.Balances(ctx, account, session)
	}), nil
}

// History aggregates the reservation/payment ledgers of linked external
// accounts, in linking order.
func (d *Dispatcher) History(ctx context.Context, primaryLocalID string) ([]domain.ReservationHistory, error) {
	primary, err := d.primaryAccount(ctx, primaryLocalID)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, d, primary, "history", func(account *domain.Account, session any) ([]domain.ReservationHistory, error) {
		provider, ok := d.capability(account.Service).(ports.HistoryProvider)
		if !ok {
			return nil, nil
		}
		return provider.History(ctx, account, session)
	}), nil
}

// QRCodes aggregates the renderable card tokens of linked external accounts.
// Accounts whose vendor reports no token contribute nothing.
func (d *Dispatcher) QRCodes(ctx context.Context, primaryLocalID string) ([]domain.QRCode, error) {
	primary, err := d.primaryAccount(ctx, primaryLocalID)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, d, primary, "qrcodes", func(account *domain.Account, session any) ([]domain.QRCode, error) {
		provider, ok := d.capability(account.Service).(ports.QRCodeProvider)
		if !ok {
			return nil, nil
		}
		token, err := provider.QRCodeToken(ctx, account, session)
		if err != nil {
			return nil, err
		}
		if token == nil {
			return nil, nil
		}
		return []domain.QRCode{{AccountLocalID: account.LocalID, Token: *token}}, nil
	}), nil
}

// Bookings aggregates the bookable weeks of linked external accounts.
func (d *Dispatcher) Bookings(ctx context.Context, primaryLocalID string, week int) ([]domain.BookingTerminal, error) {
	primary, err := d.primaryAccount(ctx, primaryLocalID)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, d, primary, "bookings", func(account *domain.Account, session any) ([]domain.BookingTerminal, error) {
		provider, ok := d.capability(account.Service).(ports.BookingProvider)
		if !ok {
			return nil, nil
		}
		return provider.Bookings(ctx, account, session, week)
	}), nil
}

// BookDay toggles one bookable day on the external account that owns it.
func (d *Dispatcher) BookDay(ctx context.Context, externalLocalID, dayID string, date time.Time, booked bool) (*domain.BookingDay, error) {
	account, err := d.externalAccount(ctx, externalLocalID)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.registry.Lookup(account.Service)
	if !ok {
		return nil, domain.ErrServiceNotImplemented
	}
	provider, ok := adapter.(ports.BookingProvider)
	if !ok {
		return nil, fmt.Errorf("book day on %s: %w", account.Service, domain.ErrServiceNotImplemented)
	}

	var result *domain.BookingDay
	err = d.withSession(ctx, account, "book_day", func(session any) error {
		var callErr error
		result, callErr = provider.BookDay(ctx, account, session, dayID, date, booked)
		return callErr
	})
	return result, err
}

// capability returns the registered adapter, or nil when the service has
// none. Callers assert the capability interface on the result; a nil adapter
// fails every assertion, folding "no adapter" and "no capability" into the
// same neutral path.
func (d *Dispatcher) capability(service domain.Service) ports.Adapter {
	adapter, ok := d.registry.Lookup(service)
	if !ok {
		return nil
	}
	return adapter
}
