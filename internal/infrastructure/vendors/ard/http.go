package ard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/vendorhttp"
)

const defaultBaseURL = "https://espacenumerique.ard.fr/api"

// HTTPAuthenticator logs into the ARD family-space REST API.
type HTTPAuthenticator struct {
	rest *vendorhttp.Client
}

func NewHTTPAuthenticator(baseURL string, hc *http.Client) *HTTPAuthenticator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPAuthenticator{rest: vendorhttp.New(domain.ServiceARD, baseURL, hc)}
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *HTTPAuthenticator) Login(ctx context.Context, schoolID, username, password string) (Client, error) {
	var resp loginResponse
	body := map[string]string{"schoolId": schoolID, "username": username, "password": password}
	if err := a.rest.Post(ctx, "/login", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, domain.NewVendorError(domain.ServiceARD, "login", domain.VendorDataShape,
			fmt.Errorf("login response missing token"))
	}
	return &httpClient{rest: a.rest, token: resp.Token, schoolID: schoolID}, nil
}

type httpClient struct {
	rest     *vendorhttp.Client
	token    string
	schoolID string
}

func (c *httpClient) OnlinePayments(ctx context.Context) (*PaymentsInfo, error) {
	var wrapper struct {
		User PaymentsInfo `json:"user"`
	}
	if err := c.rest.Get(ctx, "/schools/"+c.schoolID+"/payments", c.token, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.User, nil
}

func (c *httpClient) FinancialHistory(ctx context.Context, uid string) ([]FinancialOperation, error) {
	var out []FinancialOperation
	err := c.rest.Get(ctx, "/users/"+uid+"/financial-history", c.token, &out)
	return out, err
}

func (c *httpClient) OrdersHistory(ctx context.Context, uid string) ([]Order, error) {
	var out []Order
	err := c.rest.Get(ctx, "/users/"+uid+"/orders", c.token, &out)
	return out, err
}

func (c *httpClient) ConsumptionsHistory(ctx context.Context, uid string) ([]Consumption, error) {
	var out []Consumption
	err := c.rest.Get(ctx, "/users/"+uid+"/consumptions", c.token, &out)
	return out, err
}
