package pronote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/vendorhttp"
)

// HTTPAuthenticator talks to the per-school Pronote gateway. The base URL is
// part of the stored authentication, so the client is built per login.
type HTTPAuthenticator struct {
	hc *http.Client
}

func NewHTTPAuthenticator(hc *http.Client) *HTTPAuthenticator {
	return &HTTPAuthenticator{hc: hc}
}

type tokenLoginResponse struct {
	SessionToken  string `json:"sessionToken"`
	NextTimeToken string `json:"nextTimeToken"`
}

func (a *HTTPAuthenticator) TokenLogin(ctx context.Context, instanceURL, username, deviceUUID, token string) (Session, string, error) {
	rest := vendorhttp.New(domain.ServicePronote, instanceURL, a.hc)

	var resp tokenLoginResponse
	body := map[string]string{
		"username":   username,
		"deviceUUID": deviceUUID,
		"token":      token,
	}
	if err := rest.Post(ctx, "/auth/token", "", body, &resp); err != nil {
		return nil, "", err
	}
	if resp.SessionToken == "" || resp.NextTimeToken == "" {
		return nil, "", domain.NewVendorError(domain.ServicePronote, "token login", domain.VendorDataShape,
			fmt.Errorf("login response missing session or next-time token"))
	}
	return &httpSession{rest: rest, token: resp.SessionToken}, resp.NextTimeToken, nil
}

type httpSession struct {
	rest  *vendorhttp.Client
	token string
}

func (s *httpSession) HomeworkForWeek(ctx context.Context, week int) ([]Assignment, error) {
	var out []Assignment
	err := s.rest.Get(ctx, fmt.Sprintf("/homework?week=%d", week), s.token, &out)
	return out, err
}

func (s *httpSession) SetAssignmentDone(ctx context.Context, assignmentID string, done bool) error {
	body := map[string]bool{"done": done}
	return s.rest.Post(ctx, "/homework/"+assignmentID+"/status", s.token, body, nil)
}

func (s *httpSession) News(ctx context.Context) ([]NewsItem, error) {
	var out []NewsItem
	err := s.rest.Get(ctx, "/news", s.token, &out)
	return out, err
}

func (s *httpSession) AcknowledgeNews(ctx context.Context, ref string) error {
	return s.rest.Post(ctx, "/news/"+ref+"/acknowledge", s.token, nil, nil)
}

func (s *httpSession) Menu(ctx context.Context, date time.Time) (*MenuDay, error) {
	var out MenuDay
	path := "/menu?date=" + date.Format("2006-01-02")
	if err := s.rest.Get(ctx, path, s.token, &out); err != nil {
		return nil, err
	}
	if out.Lunch == nil && out.Dinner == nil {
		return nil, nil
	}
	return &out, nil
}

func (s *httpSession) Marks(ctx context.Context) ([]Mark, error) {
	var out []Mark
	err := s.rest.Get(ctx, "/grades", s.token, &out)
	return out, err
}
