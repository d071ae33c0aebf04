package multi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/vendorhttp"
)

// HTTPAuthenticator logs into ESUP-Multi instances. Each account stores its
// own instance URL, so the client is built per login.
type HTTPAuthenticator struct {
	hc *http.Client
}

func NewHTTPAuthenticator(hc *http.Client) *HTTPAuthenticator {
	return &HTTPAuthenticator{hc: hc}
}

type refreshResponse struct {
	AuthToken        string `json:"authToken"`
	RefreshAuthToken string `json:"refreshAuthToken"`
}

func (a *HTTPAuthenticator) RefreshLogin(ctx context.Context, instanceURL, refreshToken string) (Session, string, error) {
	rest := vendorhttp.New(domain.ServiceMulti, instanceURL, a.hc)

	var resp refreshResponse
	body := map[string]string{"refreshAuthToken": refreshToken}
	if err := rest.Post(ctx, "/auth/refresh", "", body, &resp); err != nil {
		return nil, "", err
	}
	if resp.AuthToken == "" {
		return nil, "", domain.NewVendorError(domain.ServiceMulti, "refresh", domain.VendorDataShape,
			fmt.Errorf("refresh response missing auth token"))
	}
	return &httpSession{rest: rest, token: resp.AuthToken}, resp.RefreshAuthToken, nil
}

type httpSession struct {
	rest  *vendorhttp.Client
	token string
}

func (s *httpSession) Actualities(ctx context.Context) ([]Actuality, error) {
	var out []Actuality
	err := s.rest.Get(ctx, "/actualities", s.token, &out)
	return out, err
}

func (s *httpSession) Schedules(ctx context.Context, startDate, endDate string) ([]Event, error) {
	var wrapper struct {
		Plannings []struct {
			Events []Event `json:"events"`
		} `json:"plannings"`
	}
	path := fmt.Sprintf("/schedules?startDate=%s&endDate=%s", startDate, endDate)
	if err := s.rest.Get(ctx, path, s.token, &wrapper); err != nil {
		return nil, err
	}

	var events []Event
	for _, planning := range wrapper.Plannings {
		events = append(events, planning.Events...)
	}
	return events, nil
}
