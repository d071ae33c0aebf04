package domain

import "time"

// Balance is a canteen/payment balance snapshot produced by an adapter.
// Amount is in decimal currency units, already scaled from vendor minor
// units. Remaining is the number of meals the balance still covers; nil when
// no per-meal price is known, never zero as a placeholder, since zero is a
// valid "no meals left" value.
type Balance struct {
	Amount    float64
	Currency  string
	Remaining *int
	Label     string
}

// ReservationHistory is one ledger line from a canteen/payment account.
// Negative amounts are spends.
type ReservationHistory struct {
	Amount    float64
	Timestamp time.Time
	Currency  string
	Label     string
}

// QRCode associates a renderable card/session token with the external
// account it belongs to.
type QRCode struct {
	AccountLocalID string
	Token          string
}
