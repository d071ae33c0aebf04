// Package vendorhttp is the thin JSON transport shared by the vendor
// clients. It normalizes transport and HTTP-level failures into the domain
// error taxonomy so adapters only deal with one error shape.
package vendorhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papillon/aggregator/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// Client wraps an http.Client with a base URL and a service tag used for
// error attribution.
type Client struct {
	http    *http.Client
	base    string
	service domain.Service
}

// New returns a Client for the given vendor base URL. A default timeout is
// applied when the caller passes a zero-value http.Client.
func New(service domain.Service, baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{http: hc, base: baseURL, service: service}
}

// Get performs a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path, bearer string, out any) error {
	return c.do(ctx, http.MethodGet, path, bearer, nil, out)
}

// Post performs a POST request with a JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path, bearer string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, bearer, body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return domain.NewVendorError(c.service, op, domain.VendorDataShape, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return domain.NewVendorError(c.service, op, domain.VendorTerminal, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewVendorError(c.service, op, domain.VendorTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.NewVendorError(c.service, op, domain.VendorDataShape, err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Normalized auth-expired signal; the dispatcher expires the session
		// and retries once through a reload.
		return fmt.Errorf("%s %s: %w", c.service, op, domain.ErrSessionExpired)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.NewVendorError(c.service, op, domain.VendorTransient,
			fmt.Errorf("vendor returned status %d", resp.StatusCode))
	default:
		return domain.NewVendorError(c.service, op, domain.VendorTerminal,
			fmt.Errorf("vendor returned status %d", resp.StatusCode))
	}
}
