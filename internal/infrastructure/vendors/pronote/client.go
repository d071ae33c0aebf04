package pronote

import (
	"context"
	"time"
)

// Attachment is a document or link joined to an assignment or a news item.
type Attachment struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Assignment is one homework entry as Pronote reports it.
type Assignment struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Due         time.Time    `json:"due"`
	Done        bool         `json:"done"`
	Attachments []Attachment `json:"attachments"`
	ReturnKind  string       `json:"returnKind"`
	Exam        bool         `json:"exam"`
}

// NewsItem is one school information entry. Ref is the opaque handle the
// acknowledge round-trip needs.
type NewsItem struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Date         time.Time    `json:"date"`
	Content      string       `json:"content"`
	Author       string       `json:"author"`
	Category     string       `json:"category"`
	Attachments  []Attachment `json:"attachments"`
	Read         bool         `json:"read"`
	Acknowledged bool         `json:"acknowledged"`
	Ref          string       `json:"ref"`
}

// MenuFood is one dish of a canteen sitting.
type MenuFood struct {
	Name      string   `json:"name"`
	Allergens []string `json:"allergens"`
}

// MenuMeal groups the courses of one sitting.
type MenuMeal struct {
	Entry   []MenuFood `json:"entry"`
	Main    []MenuFood `json:"main"`
	Side    []MenuFood `json:"side"`
	Dessert []MenuFood `json:"dessert"`
}

// MenuDay is the published menu for one date. Either sitting may be absent.
type MenuDay struct {
	Date   time.Time `json:"date"`
	Lunch  *MenuMeal `json:"lunch"`
	Dinner *MenuMeal `json:"dinner"`
}

// Mark is one grade as Pronote reports it. Nil pointers mean the slot was
// not published as a number (absent mark, hidden class average).
type Mark struct {
	ID          string    `json:"id"`
	SubjectName string    `json:"subjectName"`
	SubjectID   string    `json:"subjectId"`
	Comment     string    `json:"comment"`
	Date        time.Time `json:"date"`
	Coefficient float64   `json:"coefficient"`
	IsBonus     bool      `json:"isBonus"`
	IsOptional  bool      `json:"isOptional"`
	OutOf       *float64  `json:"outOf"`
	Value       *float64  `json:"value"`
	Average     *float64  `json:"average"`
	Min         *float64  `json:"min"`
	Max         *float64  `json:"max"`
}

// Session is the capability contract of an authenticated Pronote client.
type Session interface {
	HomeworkForWeek(ctx context.Context, week int) ([]Assignment, error)
	SetAssignmentDone(ctx context.Context, assignmentID string, done bool) error
	News(ctx context.Context) ([]NewsItem, error)
	AcknowledgeNews(ctx context.Context, ref string) error
	Menu(ctx context.Context, date time.Time) (*MenuDay, error)
	Marks(ctx context.Context) ([]Mark, error)
}

// Authenticator restores a session from the stored device token. Every
// successful login consumes the token and issues a replacement that must be
// persisted before the session is used.
type Authenticator interface {
	TokenLogin(ctx context.Context, instanceURL, username, deviceUUID, token string) (Session, string, error)
}
