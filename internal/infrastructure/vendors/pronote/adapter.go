// Package pronote adapts Pronote school instances to the shared domain
// model.
package pronote

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

type Adapter struct {
	auth Authenticator
	log  zerolog.Logger
}

func New(auth Authenticator, log zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServicePronote }

// Reload restores a session through token authentication. Pronote rotates
// the device token on every login, so the payload carries the replacement
// for persistence; replaying a consumed token locks the device out.
func (a *Adapter) Reload(ctx context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	auth, ok := account.Authentication.(domain.PronoteAuth)
	if !ok {
		return nil, fmt.Errorf("pronote reload: %w", domain.ErrServiceUnauthenticated)
	}

	session, nextToken, err := a.auth.TokenLogin(ctx, auth.URL, auth.Username, auth.DeviceUUID, auth.NextTimeToken)
	if err != nil {
		return nil, fmt.Errorf("pronote reload: %w", err)
	}
	return &ports.SessionPayload{
		Handle: session,
		Authentication: domain.PronoteAuth{
			URL:           auth.URL,
			Username:      auth.Username,
			DeviceUUID:    auth.DeviceUUID,
			NextTimeToken: nextToken,
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

func (a *Adapter) HomeworkForWeek(ctx context.Context, account *domain.Account, session any, week int) ([]domain.Homework, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	assignments, err := s.HomeworkForWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("pronote homework: %w", err)
	}

	result := make([]domain.Homework, 0, len(assignments))
	for _, item := range assignments {
		result = append(result, decodeAssignment(item))
	}
	return result, nil
}

// SetHomeworkDone flips the done flag through the vendor. The updated object
// is rebuilt from the input; the input itself is never mutated.
func (a *Adapter) SetHomeworkDone(ctx context.Context, account *domain.Account, session any, homework domain.Homework, done bool) (*domain.Homework, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	if err := s.SetAssignmentDone(ctx, homework.ID, done); err != nil {
		return nil, fmt.Errorf("pronote set homework done: %w", err)
	}
	updated := homework
	updated.Done = done
	return &updated, nil
}

func (a *Adapter) News(ctx context.Context, account *domain.Account, session any) ([]domain.Information, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	items, err := s.News(ctx)
	if err != nil {
		return nil, fmt.Errorf("pronote news: %w", err)
	}

	result := make([]domain.Information, 0, len(items))
	for _, item := range items {
		result = append(result, domain.Information{
			ID:           item.ID,
			Title:        item.Title,
			Date:         item.Date,
			Content:      item.Content,
			Author:       item.Author,
			Category:     item.Category,
			Attachments:  decodeAttachments(item.Attachments),
			Read:         item.Read,
			Acknowledged: item.Acknowledged,
			Ref:          item.Ref,
		})
	}
	return result, nil
}

// AcknowledgeNews round-trips the acknowledgement through the vendor, then
// merges the flags locally so the caller sees the new state immediately.
func (a *Adapter) AcknowledgeNews(ctx context.Context, account *domain.Account, session any, info domain.Information) (*domain.Information, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	if info.Ref == "" {
		return nil, domain.NewVendorError(domain.ServicePronote, "acknowledge news", domain.VendorDataShape,
			fmt.Errorf("news item %q has no vendor reference", info.ID))
	}
	if err := s.AcknowledgeNews(ctx, info.Ref); err != nil {
		return nil, fmt.Errorf("pronote acknowledge news: %w", err)
	}

	updated := info
	updated.Read = true
	updated.Acknowledged = true
	return &updated, nil
}

func (a *Adapter) Menu(ctx context.Context, account *domain.Account, session any, date time.Time) (*domain.Menu, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	day, err := s.Menu(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("pronote menu: %w", err)
	}
	if day == nil {
		return nil, nil
	}

	return &domain.Menu{
		Date:   day.Date,
		Lunch:  decodeMeal(day.Lunch),
		Dinner: decodeMeal(day.Dinner),
	}, nil
}

func (a *Adapter) Grades(ctx context.Context, account *domain.Account, session any) ([]domain.Grade, error) {
	s, err := a.session(session)
	if err != nil {
		return nil, err
	}

	marks, err := s.Marks(ctx)
	if err != nil {
		return nil, fmt.Errorf("pronote grades: %w", err)
	}

	result := make([]domain.Grade, 0, len(marks))
	for _, m := range marks {
		result = append(result, domain.Grade{
			ID:          m.ID,
			SubjectName: m.SubjectName,
			SubjectID:   m.SubjectID,
			Description: m.Comment,
			Timestamp:   m.Date,
			Coefficient: m.Coefficient,
			IsBonus:     m.IsBonus,
			IsOptional:  m.IsOptional,
			OutOf:       gradeValue(m.OutOf),
			Student:     gradeValue(m.Value),
			Average:     gradeValue(m.Average),
			Min:         gradeValue(m.Min),
			Max:         gradeValue(m.Max),
		})
	}
	return result, nil
}

// gradeValue maps an optional vendor number to a grade slot. Absent numbers
// become disabled slots so the averaging engine never reads them.
func gradeValue(v *float64) domain.GradeValue {
	if v == nil {
		return domain.DisabledValue()
	}
	return domain.GradeValue{Value: *v}
}

func decodeAssignment(item Assignment) domain.Homework {
	hw := domain.Homework{
		ID:          item.ID,
		Subject:     item.Subject,
		Content:     item.Description,
		Due:         item.Due,
		Done:        item.Done,
		Attachments: decodeAttachments(item.Attachments),
		Exam:        item.Exam,
	}
	switch item.ReturnKind {
	case "paper":
		hw.ReturnType = domain.ReturnTypePaper
	case "file_upload":
		hw.ReturnType = domain.ReturnTypeFileUpload
	default:
		hw.ReturnType = domain.ReturnTypeUnspecified
	}
	return hw
}

func decodeAttachments(in []Attachment) []domain.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(in))
	for _, att := range in {
		kind := domain.AttachmentFile
		if att.Kind == "link" {
			kind = domain.AttachmentLink
		}
		out = append(out, domain.Attachment{Type: kind, Name: att.Name, URL: att.URL})
	}
	return out
}

func decodeMeal(meal *MenuMeal) *domain.Meal {
	if meal == nil {
		return nil
	}
	return &domain.Meal{
		Entry:   decodeFood(meal.Entry),
		Main:    decodeFood(meal.Main),
		Side:    decodeFood(meal.Side),
		Dessert: decodeFood(meal.Dessert),
	}
}

func decodeFood(in []MenuFood) []domain.FoodItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.FoodItem, 0, len(in))
	for _, f := range in {
		out = append(out, domain.FoodItem{Name: f.Name, Allergens: f.Allergens})
	}
	return out
}
