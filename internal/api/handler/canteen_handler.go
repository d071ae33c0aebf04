package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/service"
)

// CanteenHandler exposes the aggregate canteen/payment operations of a
// primary account's linked external accounts.
type CanteenHandler struct {
	dispatch *service.Dispatcher
}

func NewCanteenHandler(dispatch *service.Dispatcher) *CanteenHandler {
	return &CanteenHandler{dispatch: dispatch}
}

type balanceResponse struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Remaining *int    `json:"remaining"`
	Label     string  `json:"label,omitempty"`
}

type historyResponse struct {
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Currency  string    `json:"currency"`
	Label     string    `json:"label,omitempty"`
}

type qrCodeResponse struct {
	AccountLocalID string `json:"account_local_id"`
	Token          string `json:"token"`
}

type bookingDayResponse struct {
	ID      string    `json:"id"`
	CanBook bool      `json:"can_book"`
	Date    time.Time `json:"date"`
	Message string    `json:"message,omitempty"`
	Booked  bool      `json:"booked"`
}

type bookingTerminalResponse struct {
	ID             string               `json:"id"`
	Week           int                  `json:"week"`
	From           time.Time            `json:"from"`
	To             time.Time            `json:"to"`
	TerminalLabel  string               `json:"terminal_label,omitempty"`
	Days           []bookingDayResponse `json:"days"`
	AccountLocalID string               `json:"account_local_id"`
}

type bookDayRequest struct {
	Date   time.Time `json:"date" validate:"required"`
	Booked bool      `json:"booked"`
}

// Balances aggregates the balances of all linked external accounts.
func (h *CanteenHandler) Balances(c echo.Context) error {
	balances, err := h.dispatch.Balances(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{
			Amount:    b.Amount,
			Currency:  b.Currency,
			Remaining: b.Remaining,
			Label:     b.Label,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// History aggregates the payment/reservation ledgers of linked accounts.
func (h *CanteenHandler) History(c echo.Context) error {
	history, err := h.dispatch.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]historyResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, historyResponse{
			Amount:    entry.Amount,
			Timestamp: entry.Timestamp,
			Currency:  entry.Currency,
			Label:     entry.Label,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// QRCodes aggregates the renderable card tokens of linked accounts.
func (h *CanteenHandler) QRCodes(c echo.Context) error {
	codes, err := h.dispatch.QRCodes(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]qrCodeResponse, 0, len(codes))
	for _, code := range codes {
		out = append(out, qrCodeResponse{AccountLocalID: code.AccountLocalID, Token: code.Token})
	}
	return c.JSON(http.StatusOK, out)
}

// Bookings aggregates the bookable weeks of linked accounts. The week query
// parameter defaults to the vendor's current week when absent.
func (h *CanteenHandler) Bookings(c echo.Context) error {
	week := 0
	if raw := c.QueryParam("week"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid week")
		}
		week = parsed
	}

	terminals, err := h.dispatch.Bookings(c.Request().Context(), c.Param("id"), week)
	if err != nil {
		return err
	}

	out := make([]bookingTerminalResponse, 0, len(terminals))
	for _, terminal := range terminals {
		out = append(out, toBookingTerminalResponse(terminal))
	}
	return c.JSON(http.StatusOK, out)
}

// BookDay toggles the bookable day in the path on the external account in
// the path.
func (h *CanteenHandler) BookDay(c echo.Context) error {
	var req bookDayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	day, err := h.dispatch.BookDay(c.Request().Context(), c.Param("id"), c.Param("dayID"), req.Date, req.Booked)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingDayResponse(*day))
}

func toBookingTerminalResponse(terminal domain.BookingTerminal) bookingTerminalResponse {
	days := make([]bookingDayResponse, 0, len(terminal.Days))
	for _, day := range terminal.Days {
		days = append(days, toBookingDayResponse(day))
	}
	return bookingTerminalResponse{
		ID:             terminal.ID,
		Week:           terminal.Week,
		From:           terminal.From,
		To:             terminal.To,
		TerminalLabel:  terminal.TerminalLabel,
		Days:           days,
		AccountLocalID: terminal.AccountLocalID,
	}
}

func toBookingDayResponse(day domain.BookingDay) bookingDayResponse {
	return bookingDayResponse{
		ID:      day.ID,
		CanBook: day.CanBook,
		Date:    day.Date,
		Message: day.Message,
		Booked:  day.Booked,
	}
}
