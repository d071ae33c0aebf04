package turboself

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/vendorhttp"
)

const defaultBaseURL = "https://api.turbo-self.com/v2"

// HTTPAuthenticator logs into the Turboself REST API.
type HTTPAuthenticator struct {
	rest *vendorhttp.Client
}

// NewHTTPAuthenticator returns an Authenticator against baseURL (the public
// API when empty).
func NewHTTPAuthenticator(baseURL string, hc *http.Client) *HTTPAuthenticator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPAuthenticator{rest: vendorhttp.New(domain.ServiceTurboself, baseURL, hc)}
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	HostID      string `json:"hostId"`
}

func (a *HTTPAuthenticator) Login(ctx context.Context, username, password string) (Session, error) {
	var resp loginResponse
	body := map[string]string{"username": username, "password": password}
	if err := a.rest.Post(ctx, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.HostID == "" {
		return nil, domain.NewVendorError(domain.ServiceTurboself, "login", domain.VendorDataShape,
			fmt.Errorf("login response missing token or host id"))
	}
	return &httpSession{rest: a.rest, token: resp.AccessToken, hostID: resp.HostID}, nil
}

type httpSession struct {
	rest   *vendorhttp.Client
	token  string
	hostID string
}

func (s *httpSession) Balances(ctx context.Context) ([]AccountBalance, error) {
	var out []AccountBalance
	err := s.rest.Get(ctx, "/hosts/"+s.hostID+"/balances", s.token, &out)
	return out, err
}

func (s *httpSession) Establishment(ctx context.Context) (*Establishment, error) {
	var out Establishment
	if err := s.rest.Get(ctx, "/hosts/"+s.hostID+"/establishment", s.token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpSession) Host(ctx context.Context) (*Host, error) {
	var out Host
	if err := s.rest.Get(ctx, "/hosts/"+s.hostID, s.token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpSession) History(ctx context.Context) ([]Reservation, error) {
	var out []Reservation
	err := s.rest.Get(ctx, "/hosts/"+s.hostID+"/history", s.token, &out)
	return out, err
}

func (s *httpSession) Bookings(ctx context.Context, week int) ([]BookingWeek, error) {
	var out []BookingWeek
	path := "/hosts/" + s.hostID + "/bookings"
	if week > 0 {
		path = fmt.Sprintf("%s?week=%d", path, week)
	}
	err := s.rest.Get(ctx, path, s.token, &out)
	return out, err
}

func (s *httpSession) BookMeal(ctx context.Context, dayID string, dayOfWeek, count int) (*BookingDay, error) {
	var out BookingDay
	body := map[string]int{"day": dayOfWeek, "reservations": count}
	if err := s.rest.Post(ctx, "/bookings/"+dayID, s.token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
