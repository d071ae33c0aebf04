package pronote

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
)

type stubSession struct {
	assignments []Assignment
	news        []NewsItem
	menu        *MenuDay
	marks       []Mark

	doneCalls map[string]bool
	ackedRefs []string
}

func (s *stubSession) HomeworkForWeek(context.Context, int) ([]Assignment, error) {
	return s.assignments, nil
}

func (s *stubSession) SetAssignmentDone(_ context.Context, id string, done bool) error {
	if s.doneCalls == nil {
		s.doneCalls = map[string]bool{}
	}
	s.doneCalls[id] = done
	return nil
}

func (s *stubSession) News(context.Context) ([]NewsItem, error) { return s.news, nil }

func (s *stubSession) AcknowledgeNews(_ context.Context, ref string) error {
	s.ackedRefs = append(s.ackedRefs, ref)
	return nil
}

func (s *stubSession) Menu(context.Context, time.Time) (*MenuDay, error) { return s.menu, nil }

func (s *stubSession) Marks(context.Context) ([]Mark, error) { return s.marks, nil }

type stubAuthenticator struct {
	session   Session
	nextToken string
	err       error

	lastURL   string
	lastToken string
}

func (a *stubAuthenticator) TokenLogin(_ context.Context, instanceURL, _, _, token string) (Session, string, error) {
	a.lastURL, a.lastToken = instanceURL, token
	return a.session, a.nextToken, a.err
}

func testAccount() *domain.Account {
	return &domain.Account{
		LocalID: "pronote-1",
		Service: domain.ServicePronote,
		Authentication: domain.PronoteAuth{
			URL:           "https://demo.index-education.net/pronote",
			Username:      "jdoe",
			DeviceUUID:    "uuid-1",
			NextTimeToken: "tok-old",
		},
	}
}

func ptr(v float64) *float64 { return &v }

// ---------------------------------------------------------------------------
// Reload

func TestReload_RotatesNextTimeToken(t *testing.T) {
	auth := &stubAuthenticator{session: &stubSession{}, nextToken: "tok-new"}
	adapter := New(auth, zerolog.Nop())

	payload, err := adapter.Reload(context.Background(), testAccount())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.lastToken != "tok-old" {
		t.Errorf("stored token not consumed: %q", auth.lastToken)
	}
	rotated, ok := payload.Authentication.(domain.PronoteAuth)
	if !ok {
		t.Fatal("expected a rotated PronoteAuth payload")
	}
	if rotated.NextTimeToken != "tok-new" {
		t.Errorf("expected rotated token tok-new, got %q", rotated.NextTimeToken)
	}
	if rotated.URL == "" || rotated.Username == "" || rotated.DeviceUUID == "" {
		t.Errorf("identity fields must be preserved: %+v", rotated)
	}
}

func TestReload_WrongAuthType(t *testing.T) {
	adapter := New(&stubAuthenticator{}, zerolog.Nop())
	account := testAccount()
	account.Authentication = domain.TurboselfAuth{}

	_, err := adapter.Reload(context.Background(), account)
	if !errors.Is(err, domain.ErrServiceUnauthenticated) {
		t.Errorf("expected ErrServiceUnauthenticated, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Homework

func TestHomework_MapsAssignments(t *testing.T) {
	session := &stubSession{assignments: []Assignment{{
		ID:          "hw1",
		Subject:     "Mathématiques",
		Description: "Exercices 12 à 15",
		Due:         time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
		ReturnKind:  "file_upload",
		Exam:        true,
		Attachments: []Attachment{{Kind: "link", Name: "énoncé", URL: "https://example.edu/hw"}},
	}}}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	homework, err := adapter.HomeworkForWeek(context.Background(), testAccount(), session, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hw := homework[0]
	if hw.ReturnType != domain.ReturnTypeFileUpload {
		t.Errorf("unexpected return type %q", hw.ReturnType)
	}
	if !hw.Exam {
		t.Error("exam flag lost")
	}
	if len(hw.Attachments) != 1 || hw.Attachments[0].Type != domain.AttachmentLink {
		t.Errorf("attachment mapping wrong: %+v", hw.Attachments)
	}
}

func TestSetHomeworkDone_RoundTripsAndReturnsNewObject(t *testing.T) {
	session := &stubSession{}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())
	original := domain.Homework{ID: "hw1", Done: false}

	updated, err := adapter.SetHomeworkDone(context.Background(), testAccount(), session, original, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.doneCalls["hw1"] {
		t.Error("done flag never reached the vendor")
	}
	if !updated.Done {
		t.Error("returned object must carry the new flag")
	}
	if original.Done {
		t.Error("input object was mutated")
	}
}

// ---------------------------------------------------------------------------
// News

func TestAcknowledgeNews_RoundTripsRef(t *testing.T) {
	session := &stubSession{}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())
	info := domain.Information{ID: "n1", Ref: "ref-42"}

	updated, err := adapter.AcknowledgeNews(context.Background(), testAccount(), session, info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.ackedRefs) != 1 || session.ackedRefs[0] != "ref-42" {
		t.Errorf("vendor ref not used: %v", session.ackedRefs)
	}
	if !updated.Read || !updated.Acknowledged {
		t.Error("flags must be merged locally after the round-trip")
	}
	if info.Read {
		t.Error("input object was mutated")
	}
}

func TestAcknowledgeNews_MissingRef(t *testing.T) {
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	_, err := adapter.AcknowledgeNews(context.Background(), testAccount(), &stubSession{}, domain.Information{ID: "n1"})
	var vendorErr *domain.VendorError
	if !errors.As(err, &vendorErr) || vendorErr.Class != domain.VendorDataShape {
		t.Errorf("expected a data-shape vendor error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Menu

func TestMenu_MapsSittings(t *testing.T) {
	date := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	session := &stubSession{menu: &MenuDay{
		Date: date,
		Lunch: &MenuMeal{
			Main:    []MenuFood{{Name: "Poulet rôti", Allergens: []string{"gluten"}}},
			Dessert: []MenuFood{{Name: "Compote"}},
		},
	}}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	menu, err := adapter.Menu(context.Background(), testAccount(), session, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if menu.Dinner != nil {
		t.Error("absent sitting must stay nil")
	}
	if len(menu.Lunch.Main) != 1 || menu.Lunch.Main[0].Name != "Poulet rôti" {
		t.Errorf("lunch mapping wrong: %+v", menu.Lunch)
	}
}

func TestMenu_NoPublication(t *testing.T) {
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	menu, err := adapter.Menu(context.Background(), testAccount(), &stubSession{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if menu != nil {
		t.Errorf("expected nil menu, got %+v", menu)
	}
}

// ---------------------------------------------------------------------------
// Grades

func TestGrades_AbsentValuesBecomeDisabledSlots(t *testing.T) {
	session := &stubSession{marks: []Mark{{
		ID:          "g1",
		SubjectName: "Physique",
		SubjectID:   "PHY",
		Coefficient: 2,
		OutOf:       ptr(20),
		Value:       nil, // absent mark
		Average:     ptr(11.5),
	}}}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	grades, err := adapter.Grades(context.Background(), testAccount(), session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := grades[0]
	if !g.Student.Disabled || !math.IsNaN(g.Student.Value) {
		t.Errorf("absent mark must map to a disabled slot: %+v", g.Student)
	}
	if g.Student.Defined() {
		t.Error("disabled slot must never report as defined")
	}
	if !g.OutOf.Defined() || g.OutOf.Value != 20 {
		t.Errorf("out-of slot wrong: %+v", g.OutOf)
	}
	if !g.Average.Defined() || g.Average.Value != 11.5 {
		t.Errorf("average slot wrong: %+v", g.Average)
	}
}

func TestGrades_CarriesBonusAndOptionalFlags(t *testing.T) {
	session := &stubSession{marks: []Mark{{
		ID: "g1", SubjectName: "Sport", Coefficient: 1,
		IsBonus: true, IsOptional: true,
		OutOf: ptr(10), Value: ptr(8),
	}}}
	adapter := New(&stubAuthenticator{}, zerolog.Nop())

	grades, err := adapter.Grades(context.Background(), testAccount(), session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !grades[0].IsBonus || !grades[0].IsOptional {
		t.Errorf("flags lost: %+v", grades[0])
	}
}

func TestNoSession(t *testing.T) {
	adapter := New(&stubAuthenticator{}, zerolog.Nop())
	_, err := adapter.Grades(context.Background(), testAccount(), nil)
	if !errors.Is(err, domain.ErrServiceUnauthenticated) {
		t.Errorf("expected ErrServiceUnauthenticated, got %v", err)
	}
}
