package izly

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/vendorhttp"
)

const defaultBaseURL = "https://mon-espace.izly.fr/api"

// HTTPAuthenticator refreshes Izly identifications over the REST API.
type HTTPAuthenticator struct {
	rest *vendorhttp.Client
}

func NewHTTPAuthenticator(baseURL string, hc *http.Client) *HTTPAuthenticator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPAuthenticator{rest: vendorhttp.New(domain.ServiceIzly, baseURL, hc)}
}

type refreshResponse struct {
	SessionToken string `json:"sessionToken"`
}

func (a *HTTPAuthenticator) Refresh(ctx context.Context, identification, secret string) (Session, error) {
	var resp refreshResponse
	body := map[string]string{"identification": identification, "secret": secret}
	if err := a.rest.Post(ctx, "/auth/refresh", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.SessionToken == "" {
		return nil, domain.NewVendorError(domain.ServiceIzly, "refresh", domain.VendorDataShape,
			fmt.Errorf("refresh response missing session token"))
	}
	return &httpSession{rest: a.rest, token: resp.SessionToken}, nil
}

type httpSession struct {
	rest  *vendorhttp.Client
	token string
}

func (s *httpSession) Balance(ctx context.Context) (*BalanceInfo, error) {
	var out BalanceInfo
	if err := s.rest.Get(ctx, "/balance", s.token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *httpSession) Operations(ctx context.Context, kind OperationKind, limit int) ([]Operation, error) {
	kindName := "payment"
	if kind == OperationTopUp {
		kindName = "topup"
	}
	var out []Operation
	path := fmt.Sprintf("/operations?kind=%s&limit=%d", kindName, limit)
	err := s.rest.Get(ctx, path, s.token, &out)
	return out, err
}

func (s *httpSession) QRPay(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := s.rest.Post(ctx, "/qrpay", s.token, nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
