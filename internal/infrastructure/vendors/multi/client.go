package multi

import (
	"context"
	"time"
)

// Actuality is one item of the instance's news feed.
type Actuality struct {
	PubDate time.Time `json:"pubDate"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Link    string    `json:"link"`
}

// Course describes the teaching unit behind a schedule event.
type Course struct {
	Label  string `json:"label"`
	Color  string `json:"color"`
	URL    string `json:"url"`
	Online bool   `json:"online"`
}

// Room is one location of a schedule event.
type Room struct {
	Label    string `json:"label"`
	Building string `json:"building"`
}

// Event is one planned slot of the schedule.
type Event struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"startDateTime"`
	End      time.Time `json:"endDateTime"`
	Course   Course    `json:"course"`
	Rooms    []Room    `json:"rooms"`
	Teachers []string  `json:"teachers"`
	Groups   []string  `json:"groups"`
}

// Session is the capability contract of an authenticated ESUP-Multi client.
type Session interface {
	Actualities(ctx context.Context) ([]Actuality, error)
	Schedules(ctx context.Context, startDate, endDate string) ([]Event, error)
}

// Authenticator exchanges a refresh token for a live session. The returned
// token replaces the consumed one and must be persisted: ESUP refresh tokens
// are one-shot.
type Authenticator interface {
	RefreshLogin(ctx context.Context, instanceURL, refreshToken string) (Session, string, error)
}
