// Package multi adapts ESUP-Multi university portals to the shared domain
// model.
package multi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// newsAuthor is the fixed byline of the instance news feed.
const newsAuthor = "Actualités"

type Adapter struct {
	auth Authenticator
	log  zerolog.Logger
}

func New(auth Authenticator, log zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServiceMulti }

// Reload exchanges the stored refresh token for a session. The rotated token
// is returned in the payload so it gets persisted before the old one is ever
// needed again; a consumed ESUP token cannot be replayed.
func (a *Adapter) Reload(ctx context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	auth, ok := account.Authentication.(domain.MultiAuth)
	if !ok {
		return nil, fmt.Errorf("multi reload: %w", domain.ErrServiceUnauthenticated)
	}

	session, newToken, err := a.auth.RefreshLogin(ctx, auth.InstanceURL, auth.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("multi reload: %w", err)
	}
	return &ports.SessionPayload{
		Handle: session,
		Authentication: domain.MultiAuth{
			InstanceURL:  auth.InstanceURL,
			RefreshToken: newToken,
		},
	}, nil
}

func (a *Adapter) session(session any) (Session, error) {
	s, ok := session.(Session)
	if !ok {
		return nil, domain.ErrServiceUnauthenticated
	}
	return s, nil
}

func (a *Adapter) News(ctx context.Context, account *domain.Account, session any) ([]domain.Information, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	actualities, err := s.Actualities(ctx)
	if err != nil {
		return nil, fmt.Errorf("multi news: %w", err)
	}

	result := make([]domain.Information, 0, len(actualities))
	for _, item := range actualities {
		info := domain.Information{
			ID:       item.PubDate.Format(time.RFC3339),
			Title:    item.Title,
			Date:     item.PubDate,
			Content:  item.Content,
			Author:   newsAuthor,
			Category: newsAuthor,
		}
		if item.Link != "" {
			info.Attachments = []domain.Attachment{{
				Type: domain.AttachmentLink,
				Name: item.Title,
				URL:  item.Link,
			}}
		}
		result = append(result, info)
	}
	return result, nil
}

// AcknowledgeNews is a local-only merge: ESUP has no read receipts, so the
// flags flip without a vendor round-trip.
func (a *Adapter) AcknowledgeNews(ctx context.Context, account *domain.Account, session any, info domain.Information) (*domain.Information, error) {
	updated := info
	updated.Read = true
	updated.Acknowledged = true
	return &updated, nil
}

func (a *Adapter) TimetableForWeek(ctx context.Context, account *domain.Account, session any, week int) (domain.Timetable, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	start, end := WeekRange(week)
	events, err := s.Schedules(ctx, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("multi timetable: %w", err)
	}

	timetable := make(domain.Timetable, 0, len(events))
	for _, e := range events {
		timetable = append(timetable, decodeEvent(e))
	}
	return timetable, nil
}

func decodeEvent(e Event) domain.TimetableClass {
	rooms := make([]string, 0, len(e.Rooms))
	buildings := make([]string, 0, len(e.Rooms))
	for _, r := range e.Rooms {
		rooms = append(rooms, r.Label)
		if r.Building != "" {
			buildings = append(buildings, r.Building)
		}
	}

	class := domain.TimetableClass{
		ID:              e.ID,
		Type:            domain.ClassLesson,
		Subject:         e.Course.Label,
		Title:           e.Course.Label,
		Start:           e.Start,
		End:             e.End,
		Room:            strings.Join(rooms, ", "),
		Building:        strings.Join(buildings, ", "),
		Teacher:         strings.Join(e.Teachers, ", "),
		Group:           strings.Join(e.Groups, ", "),
		BackgroundColor: e.Course.Color,
		Online:          e.Course.Online,
		Source:          "Multi",
		URL:             e.Course.URL,
	}
	if e.Course.Online {
		class.StatusText = "En ligne"
	}
	return class
}

// epochWeekStart is the Monday of the week containing the Unix epoch. Week
// numbers across the codebase count Monday-based weeks elapsed since then.
var epochWeekStart = time.Date(1969, time.December, 29, 0, 0, 0, 0, time.UTC)

// WeekRange converts an epoch week number to its [Monday, Sunday] date range.
func WeekRange(week int) (time.Time, time.Time) {
	start := epochWeekStart.AddDate(0, 0, week*7)
	return start, start.AddDate(0, 0, 6)
}

// WeekNumber converts a date to its epoch week number.
func WeekNumber(date time.Time) int {
	return int(date.UTC().Sub(epochWeekStart) / (7 * 24 * time.Hour))
}
