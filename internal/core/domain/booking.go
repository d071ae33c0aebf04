package domain

import "time"

// BookingTerminal is one canteen terminal's bookable week.
type BookingTerminal struct {
	ID             string
	Week           int
	From           time.Time
	To             time.Time
	TerminalLabel  string
	Days           []BookingDay
	AccountLocalID string
}

// BookingDay is a single bookable day on a terminal.
type BookingDay struct {
	ID      string
	CanBook bool
	Date    time.Time
	Message string
	Booked  bool
}
