// Package ard adapts the ARD/GEC canteen payment service to the shared
// domain model.
package ard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// cafeteria wallets hold pocket money, not meal credit; no remaining-meal
// count is derived for them.
const cafeteriaWallet = "cafetaria"

type Adapter struct {
	auth Authenticator
	log  zerolog.Logger
}

func New(auth Authenticator, log zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServiceARD }

// Reload re-runs full credential authentication against the stored school.
func (a *Adapter) Reload(ctx context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	auth, ok := account.Authentication.(domain.ARDAuth)
	if !ok {
		return nil, fmt.Errorf("ard reload: %w", domain.ErrServiceUnauthenticated)
	}
	client, err := a.auth.Login(ctx, auth.SchoolID, auth.Username, auth.Password)
	if err != nil {
		return nil, fmt.Errorf("ard reload: %w", err)
	}
	return &ports.SessionPayload{Handle: client}, nil
}

func (a *Adapter) client(session any) (Client, error) {
	c, ok := session.(Client)
	if !ok {
		return nil, domain.ErrServiceUnauthenticated
	}
	return c, nil
}

func (a *Adapter) Balances(ctx context.Context, account *domain.Account, session any) ([]domain.Balance, error) {
	c, err := a.client(session)
	if err != nil {
		return nil, err
	}
	auth, _ := account.Authentication.(domain.ARDAuth)

	payments, err := c.OnlinePayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("ard balances: %w", err)
	}

	result := make([]domain.Balance, 0, len(payments.Wallets))
	for _, w := range payments.Wallets {
		balance := domain.Balance{
			Amount:   float64(w.AmountCents) / 100,
			Currency: "€",
			Label:    titleCase(w.Name),
		}
		if !strings.EqualFold(w.Name, cafeteriaWallet) && auth.MealPriceCents > 0 {
			remaining := w.AmountCents / auth.MealPriceCents
			balance.Remaining = &remaining
		}
		result = append(result, balance)
	}
	return result, nil
}

// History concatenates the three ARD ledgers in a fixed order (financial
// operations, then orders, then consumptions) so output is deterministic
// even though the sub-fetches run concurrently.
func (a *Adapter) History(ctx context.Context, account *domain.Account, session any) ([]domain.ReservationHistory, error) {
	c, err := a.client(session)
	if err != nil {
		return nil, err
	}

	payments, err := c.OnlinePayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("ard history: %w", err)
	}
	if payments.UID == "" {
		return nil, domain.NewVendorError(domain.ServiceARD, "history", domain.VendorDataShape,
			fmt.Errorf("payments response missing account uid"))
	}

	var (
		wg           sync.WaitGroup
		financial    []FinancialOperation
		orders       []Order
		consumptions []Consumption
		errFinancial, errOrders, errConsumptions error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		financial, errFinancial = c.FinancialHistory(ctx, payments.UID)
	}()
	go func() {
		defer wg.Done()
		orders, errOrders = c.OrdersHistory(ctx, payments.UID)
	}()
	go func() {
		defer wg.Done()
		consumptions, errConsumptions = c.ConsumptionsHistory(ctx, payments.UID)
	}()
	wg.Wait()

	for _, err := range []error{errFinancial, errOrders, errConsumptions} {
		if err != nil {
			return nil, fmt.Errorf("ard history: %w", err)
		}
	}

	result := make([]domain.ReservationHistory, 0, len(financial)+len(orders)+len(consumptions))
	for _, item := range financial {
		result = append(result, domain.ReservationHistory{
			Amount:    float64(item.CreditCents-item.DebitCents) / 100,
			Timestamp: time.Unix(item.OperationDate, 0),
			Currency:  "€",
			Label:     item.OperationName,
		})
	}
	for _, item := range orders {
		result = append(result, domain.ReservationHistory{
			Amount:    float64(item.AmountCents) / 100,
			Timestamp: time.Unix(item.OrderDate, 0),
			Currency:  "€",
			Label:     fmt.Sprintf("Transaction n°%d", item.OrderReference),
		})
	}
	for _, item := range consumptions {
		result = append(result, domain.ReservationHistory{
			Amount:    -float64(item.AmountCents) / 100,
			Timestamp: time.Unix(item.ConsumptionDate, 0),
			Currency:  "€",
			Label:     item.Description,
		})
	}
	return result, nil
}

// titleCase renders wallet names the way the app displays them: first letter
// upper, rest lower.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
