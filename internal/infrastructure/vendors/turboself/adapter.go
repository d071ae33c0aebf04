// Package turboself adapts the Turboself canteen service to the shared
// domain model.
package turboself

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// Adapter translates Turboself responses into domain objects. It never
// mutates accounts; refreshed sessions are returned through Reload.
type Adapter struct {
	auth Authenticator
	log  zerolog.Logger
}

func New(auth Authenticator, log zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServiceTurboself }

// Reload re-runs full credential authentication. Turboself has no token
// rotation, so the stored authentication is returned unchanged.
func (a *Adapter) Reload(ctx context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	auth, ok := account.Authentication.(domain.TurboselfAuth)
	if !ok {
		return nil, fmt.Errorf("turboself reload: %w", domain.ErrServiceUnauthenticated)
	}
	session, err := a.auth.Login(ctx, auth.Username, auth.Password)
	if err != nil {
		return nil, fmt.Errorf("turboself reload: %w", err)
	}
	return &ports.SessionPayload{Handle: session}, nil
}

func (a *Adapter) session(session any) (Session, error) {
	s, ok := session.(Session)
	if !ok {
		return nil, domain.ErrServiceUnauthenticated
	}
	return s, nil
}

func (a *Adapter) Balances(ctx context.Context, account *domain.Account, session any) ([]domain.Balance, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	balances, err := s.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("turboself balances: %w", err)
	}
	currency := a.currencySymbol(ctx, s)

	var lunchPriceCents int
	if host, err := s.Host(ctx); err == nil && host != nil {
		lunchPriceCents = host.LunchPriceCents
	}

	result := make([]domain.Balance, 0, len(balances))
	for _, b := range balances {
		balance := domain.Balance{
			Amount:   float64(b.EstimatedAmountCents) / 100,
			Currency: currency,
			Label:    b.Label,
		}
		if lunchPriceCents > 0 {
			remaining := b.EstimatedAmountCents / lunchPriceCents
			balance.Remaining = &remaining
		}
		result = append(result, balance)
	}
	return result, nil
}

func (a *Adapter) History(ctx context.Context, account *domain.Account, session any) ([]domain.ReservationHistory, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	history, err := s.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("turboself history: %w", err)
	}
	currency := a.currencySymbol(ctx, s)

	result := make([]domain.ReservationHistory, 0, len(history))
	for _, r := range history {
		result = append(result, domain.ReservationHistory{
			Amount:    float64(r.AmountCents) / 100,
			Timestamp: r.Date,
			Currency:  currency,
			Label:     r.Label,
		})
	}
	return result, nil
}

// QRCodeToken returns the host's card number, or nil when the establishment
// issues no cards.
func (a *Adapter) QRCodeToken(ctx context.Context, account *domain.Account, session any) (*string, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	host, err := s.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("turboself qrcode: %w", err)
	}
	if host == nil || host.CardNumber == nil {
		return nil, nil
	}
	token := strconv.FormatInt(*host.CardNumber, 10)
	return &token, nil
}

func (a *Adapter) Bookings(ctx context.Context, account *domain.Account, session any, week int) ([]domain.BookingTerminal, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	bookings, err := s.Bookings(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("turboself bookings: %w", err)
	}

	result := make([]domain.BookingTerminal, 0, len(bookings))
	for _, b := range bookings {
		days := make([]domain.BookingDay, 0, len(b.Days))
		for _, d := range b.Days {
			days = append(days, domain.BookingDay{
				ID:      d.ID,
				CanBook: d.CanBook,
				Date:    d.Date,
				Message: d.Message,
				Booked:  d.Booked,
			})
		}
		result = append(result, domain.BookingTerminal{
			ID:             b.ID,
			Week:           b.Week,
			From:           b.From,
			To:             b.To,
			TerminalLabel:  b.Terminal.Name,
			Days:           days,
			AccountLocalID: account.LocalID,
		})
	}
	return result, nil
}

func (a *Adapter) BookDay(ctx context.Context, account *domain.Account, session any, dayID string, date time.Time, booked bool) (*domain.BookingDay, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	count := 0
	if booked {
		count = 1
	}
	day, err := s.BookMeal(ctx, dayID, int(date.Weekday()), count)
	if err != nil {
		return nil, fmt.Errorf("turboself book day: %w", err)
	}
	return &domain.BookingDay{
		ID:      day.ID,
		CanBook: day.CanBook,
		Date:    day.Date,
		Message: day.Message,
		Booked:  day.Booked,
	}, nil
}

// currencySymbol falls back to euros when the establishment cannot be read:
// a missing symbol should not fail a balance fetch.
func (a *Adapter) currencySymbol(ctx context.Context, s Session) string {
	establishment, err := s.Establishment(ctx)
	if err != nil || establishment == nil || establishment.CurrencySymbol == "" {
		if err != nil {
			a.log.Debug().Err(err).Msg("turboself establishment lookup failed, defaulting currency")
		}
		return "€"
	}
	return establishment.CurrencySymbol
}
