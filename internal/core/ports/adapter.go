package ports

import (
	"context"
	"time"

	"github.com/papillon/aggregator/internal/core/domain"
)

// Adapter is the minimal contract every per-service module satisfies. The
// capabilities a service actually supports are expressed as the optional
// interfaces below; the dispatcher discovers them by type assertion on the
// registry entry, never by a secondary string key.
type Adapter interface {
	Service() domain.Service
}

// Registry maps each service tag to its single adapter. It is populated once
// at construction, making routing totality checkable at wiring time.
type Registry map[domain.Service]Adapter

// Lookup returns the adapter registered for s.
func (r Registry) Lookup(s domain.Service) (Adapter, bool) {
	a, ok := r[s]
	return a, ok
}

// SessionPayload is what a reload produces: a live vendor handle, plus the
// refreshed authentication material to persist. Authentication is nil when
// the stored credentials were consumed as-is (no rotation).
type SessionPayload struct {
	Handle         any
	Authentication domain.Authentication
}

// SessionReloader re-derives a live session from stored authentication.
// Implementations must not mutate the account; rotated credentials are
// returned for the orchestrator to persist. Adapters without this interface
// are sessionless (e.g. locally-scraped accounts).
type SessionReloader interface {
	Reload(ctx context.Context, account *domain.Account) (*SessionPayload, error)
}

// BalanceProvider fetches the balances of an external account.
type BalanceProvider interface {
	Balances(ctx context.Context, account *domain.Account, session any) ([]domain.Balance, error)
}

// HistoryProvider fetches the reservation/payment ledger of an external
// account.
type HistoryProvider interface {
	History(ctx context.Context, account *domain.Account, session any) ([]domain.ReservationHistory, error)
}

// QRCodeProvider fetches the card/session token renderable as a QR code.
// A nil token means "not available", never a placeholder value.
type QRCodeProvider interface {
	QRCodeToken(ctx context.Context, account *domain.Account, session any) (*string, error)
}

// BookingProvider lists meal bookings and toggles individual days.
type BookingProvider interface {
	Bookings(ctx context.Context, account *domain.Account, session any, week int) ([]domain.BookingTerminal, error)
	BookDay(ctx context.Context, account *domain.Account, session any, dayID string, date time.Time, booked bool) (*domain.BookingDay, error)
}

// HomeworkProvider fetches and mutates homework on a primary account.
type HomeworkProvider interface {
	HomeworkForWeek(ctx context.Context, account *domain.Account, session any, week int) ([]domain.Homework, error)
	// SetHomeworkDone round-trips the done flag through the vendor and
	// returns the updated object; the input is never mutated.
	SetHomeworkDone(ctx context.Context, account *domain.Account, session any, homework domain.Homework, done bool) (*domain.Homework, error)
}

// NewsProvider fetches school news and acknowledges items.
type NewsProvider interface {
	News(ctx context.Context, account *domain.Account, session any) ([]domain.Information, error)
	AcknowledgeNews(ctx context.Context, account *domain.Account, session any, info domain.Information) (*domain.Information, error)
}

// MenuProvider fetches the canteen menu for a date.
type MenuProvider interface {
	Menu(ctx context.Context, account *domain.Account, session any, date time.Time) (*domain.Menu, error)
}

// TimetableProvider fetches the week schedule of a primary account.
type TimetableProvider interface {
	TimetableForWeek(ctx context.Context, account *domain.Account, session any, week int) (domain.Timetable, error)
}

// GradesProvider fetches the grade snapshot of a primary account.
type GradesProvider interface {
	Grades(ctx context.Context, account *domain.Account, session any) ([]domain.Grade, error)
}
