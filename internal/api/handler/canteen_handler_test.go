package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
	"github.com/papillon/aggregator/internal/core/service"
)

// fakeCanteenAdapter is a sessionless external adapter serving canned
// canteen data.
type fakeCanteenAdapter struct {
	balances  []domain.Balance
	history   []domain.ReservationHistory
	qrToken   *string
	terminals []domain.BookingTerminal
}

func (f *fakeCanteenAdapter) Service() domain.Service { return domain.ServiceTurboself }

func (f *fakeCanteenAdapter) Balances(ctx context.Context, account *domain.Account, session any) ([]domain.Balance, error) {
	return f.balances, nil
}

func (f *fakeCanteenAdapter) History(ctx context.Context, account *domain.Account, session any) ([]domain.ReservationHistory, error) {
	return f.history, nil
}

func (f *fakeCanteenAdapter) QRCodeToken(ctx context.Context, account *domain.Account, session any) (*string, error) {
	return f.qrToken, nil
}

func (f *fakeCanteenAdapter) Bookings(ctx context.Context, account *domain.Account, session any, week int) ([]domain.BookingTerminal, error) {
	return f.terminals, nil
}

func (f *fakeCanteenAdapter) BookDay(ctx context.Context, account *domain.Account, session any, dayID string, date time.Time, booked bool) (*domain.BookingDay, error) {
	return &domain.BookingDay{ID: dayID, CanBook: true, Date: date, Booked: booked}, nil
}

func newCanteenHandler(adapter ports.Adapter, accounts ...*domain.Account) *CanteenHandler {
	log := zerolog.Nop()
	repo := newStubAccountRepo(accounts...)
	registry := ports.Registry{adapter.Service(): adapter}
	reloads := service.NewReloadOrchestrator(registry, repo, log)
	return NewCanteenHandler(service.NewDispatcher(registry, repo, reloads, log))
}

func canteenFixtureAccounts() []*domain.Account {
	return []*domain.Account{
		{
			LocalID:                "primary-1",
			Service:                domain.ServicePronote,
			LinkedExternalLocalIDs: []string{"ts-1"},
		},
		{
			LocalID:        "ts-1",
			Service:        domain.ServiceTurboself,
			IsExternal:     true,
			Username:       "cafeteria-user",
			Authentication: domain.TurboselfAuth{Username: "cafeteria-user", Password: "pw"},
		},
	}
}

func TestCanteenHandler_Balances(t *testing.T) {
	e := newTestEcho()
	remaining := 4
	adapter := &fakeCanteenAdapter{balances: []domain.Balance{
		{Amount: 12.4, Currency: "EUR", Remaining: &remaining, Label: "Self"},
	}}
	handler := newCanteenHandler(adapter, canteenFixtureAccounts()...)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/balances", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Balances(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected one balance, got %d", len(resp))
	}
	if resp[0]["amount"] != 12.4 || resp[0]["currency"] != "EUR" || resp[0]["remaining"] != float64(4) {
		t.Fatalf("unexpected balance payload: %+v", resp[0])
	}
}

func TestCanteenHandler_Balances_NotPrimary(t *testing.T) {
	e := newTestEcho()
	handler := newCanteenHandler(&fakeCanteenAdapter{}, canteenFixtureAccounts()...)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/ts-1/balances", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ts-1")

	if err := handler.Balances(c); !errors.Is(err, domain.ErrNotPrimary) {
		t.Fatalf("expected ErrNotPrimary, got %v", err)
	}
}

func TestCanteenHandler_QRCodes_NoToken(t *testing.T) {
	e := newTestEcho()
	handler := newCanteenHandler(&fakeCanteenAdapter{qrToken: nil}, canteenFixtureAccounts()...)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/qrcodes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.QRCodes(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty list, got %s", body)
	}
}

func TestCanteenHandler_Bookings_InvalidWeek(t *testing.T) {
	e := newTestEcho()
	handler := newCanteenHandler(&fakeCanteenAdapter{}, canteenFixtureAccounts()...)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/bookings?week=-3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	err := handler.Bookings(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestCanteenHandler_BookDay(t *testing.T) {
	e := newTestEcho()
	handler := newCanteenHandler(&fakeCanteenAdapter{}, canteenFixtureAccounts()...)

	body := strings.NewReader(`{"date":"2026-03-11T00:00:00Z","booked":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/ts-1/bookings/day-3", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "dayID")
	c.SetParamValues("ts-1", "day-3")

	if err := handler.BookDay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "day-3" || resp["booked"] != true {
		t.Fatalf("unexpected booking result: %+v", resp)
	}
}

func TestCanteenHandler_BookDay_MissingDate(t *testing.T) {
	e := newTestEcho()
	handler := newCanteenHandler(&fakeCanteenAdapter{}, canteenFixtureAccounts()...)

	body := strings.NewReader(`{"booked":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/ts-1/bookings/day-3", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "dayID")
	c.SetParamValues("ts-1", "day-3")

	err := handler.BookDay(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
