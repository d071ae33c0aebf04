// Package izly adapts the Izly (CROUS) payment service to the shared domain
// model.
package izly

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

const operationsLimit = 10

type Adapter struct {
	auth Authenticator
	log  zerolog.Logger
}

func New(auth Authenticator, log zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServiceIzly }

// Reload refreshes the stored identification with its secret. The
// identification itself does not rotate.
func (a *Adapter) Reload(ctx context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	auth, ok := account.Authentication.(domain.IzlyAuth)
	if !ok {
		return nil, fmt.Errorf("izly reload: %w", domain.ErrServiceUnauthenticated)
	}
	session, err := a.auth.Refresh(ctx, auth.Identification, auth.Secret)
	if err != nil {
		return nil, fmt.Errorf("izly reload: %w", err)
	}
	a.log.Debug().Str("account", account.LocalID).Msg("izly session refreshed")
	return &ports.SessionPayload{Handle: session}, nil
}

func (a *Adapter) session(session any) (Session, error) {
	s, ok := session.(Session)
	if !ok {
		return nil, domain.ErrServiceUnauthenticated
	}
	return s, nil
}

func (a *Adapter) currency(account *domain.Account) string {
	if auth, ok := account.Authentication.(domain.IzlyAuth); ok && auth.Currency != "" {
		return auth.Currency
	}
	return "€"
}

// Balances returns the Self purse, plus a Cash entry only when the cash
// sub-purse is non-empty. Izly publishes no meal price, so Remaining is
// always nil.
func (a *Adapter) Balances(ctx context.Context, account *domain.Account, session any) ([]domain.Balance, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	balance, err := s.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("izly balances: %w", err)
	}
	currency := a.currency(account)

	result := []domain.Balance{{
		Amount:   balance.Value,
		Currency: currency,
		Label:    "Self",
	}}
	if balance.CashValue > 0 {
		result = append(result, domain.Balance{
			Amount:   balance.CashValue,
			Currency: currency,
			Label:    "Cash",
		})
	}
	return result, nil
}

// History returns the last payments followed by the last top-ups. Debits are
// negated so spends read negative, as everywhere else.
func (a *Adapter) History(ctx context.Context, account *domain.Account, session any) ([]domain.ReservationHistory, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	payments, err := s.Operations(ctx, OperationPayment, operationsLimit)
	if err != nil {
		return nil, fmt.Errorf("izly history: %w", err)
	}
	topUps, err := s.Operations(ctx, OperationTopUp, operationsLimit)
	if err != nil {
		return nil, fmt.Errorf("izly history: %w", err)
	}
	currency := a.currency(account)

	result := make([]domain.ReservationHistory, 0, len(payments)+len(topUps))
	for _, op := range payments {
		result = append(result, domain.ReservationHistory{
			Amount:    signedAmount(op),
			Timestamp: op.Date,
			Currency:  currency,
			Label:     "Paiement",
		})
	}
	for _, op := range topUps {
		result = append(result, domain.ReservationHistory{
			Amount:    signedAmount(op),
			Timestamp: op.Date,
			Currency:  currency,
			Label:     "Rechargement",
		})
	}
	return result, nil
}

func (a *Adapter) QRCodeToken(ctx context.Context, account *domain.Account, session any) (*string, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	token, err := s.QRPay(ctx)
	if err != nil {
		return nil, fmt.Errorf("izly qrcode: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	return &token, nil
}

func signedAmount(op Operation) float64 {
	if op.IsCredit {
		return op.Amount
	}
	return -op.Amount
}
