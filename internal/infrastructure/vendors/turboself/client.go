package turboself

import (
	"context"
	"time"
)

// Vendor-native shapes. Amounts are integer minor units (cents) exactly as
// the Turboself API reports them; scaling to decimal happens in the adapter.

// AccountBalance is one balance line on the host's account.
type AccountBalance struct {
	EstimatedAmountCents int    `json:"estimatedAmount"`
	Label                string `json:"label"`
}

// Establishment describes the school's canteen configuration.
type Establishment struct {
	CurrencySymbol string `json:"currencySymbol"`
}

// Host is the canteen identity of the student. CardNumber is nil when the
// establishment issues no cards; LunchPriceCents is zero when unknown.
type Host struct {
	CardNumber      *int64 `json:"cardNumber"`
	LunchPriceCents int    `json:"lunchPrice"`
}

// Reservation is one ledger entry.
type Reservation struct {
	Date        time.Time `json:"date"`
	AmountCents int       `json:"amount"`
	Label       string    `json:"label"`
}

// Terminal identifies a serving point.
type Terminal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookingWeek is one terminal's bookable week.
type BookingWeek struct {
	ID       string       `json:"id"`
	Week     int          `json:"week"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	Terminal Terminal     `json:"terminal"`
	Days     []BookingDay `json:"days"`
}

// BookingDay is a single bookable day.
type BookingDay struct {
	ID      string    `json:"id"`
	CanBook bool      `json:"canBook"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Booked  bool      `json:"booked"`
}

// Session is the capability contract of an authenticated Turboself client.
type Session interface {
	Balances(ctx context.Context) ([]AccountBalance, error)
	Establishment(ctx context.Context) (*Establishment, error)
	Host(ctx context.Context) (*Host, error)
	History(ctx context.Context) ([]Reservation, error)
	Bookings(ctx context.Context, week int) ([]BookingWeek, error)
	// BookMeal sets the reservation count for a day (1 = booked, 0 = not)
	// and returns the day as the vendor now sees it.
	BookMeal(ctx context.Context, dayID string, dayOfWeek, count int) (*BookingDay, error)
}

// Authenticator builds a live Session from stored credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (Session, error)
}
