// Package maru provides a Go SDK for the maru-server API.
//
// GET requests are retried with exponential backoff on transport failures
// and 5xx responses; 4xx responses are returned immediately. POST requests
// (Train) are never retried.
package maru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"maru/internal/httpapi"
	"maru/internal/util"
)

// Client talks to the maru-server HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Transient failures are retried with exponential backoff.
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient creates a new API client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	return c.get(ctx, "/api/health", &resp)
}

// Regions lists the districts with transaction data.
func (c *Client) Regions(ctx context.Context) ([]string, error) {
	var resp httpapi.RegionsResponse
	if err := c.get(ctx, "/api/regions", &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}

// Complexes lists the apartment complexes within a district.
func (c *Client) Complexes(ctx context.Context, region string) ([]string, error) {
	var resp httpapi.ComplexesResponse
	if err := c.get(ctx, "/api/complexes/"+url.PathEscape(region), &resp); err != nil {
		return nil, err
	}
	return resp.Complexes, nil
}

// Areas lists the unit sizes for a complex.
func (c *Client) Areas(ctx context.Context, region, complex string) ([]float64, error) {
	var resp httpapi.AreasResponse
	path := "/api/areas/" + url.PathEscape(region) + "/" + url.PathEscape(complex)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Areas, nil
}

// Train runs a training job for the selection and returns the run summary
// with its forward scenario. Train is not retried; a timeout or transport
// failure surfaces directly.
func (c *Client) Train(ctx context.Context, req httpapi.TrainRequest) (*httpapi.TrainResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/train", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp httpapi.TrainResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Runs lists the most recent training runs.
func (c *Client) Runs(ctx context.Context, limit int) ([]httpapi.RunJSON, error) {
	path := "/api/runs"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp httpapi.RunsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Scenario fetches the persisted forecast scenario of a run.
func (c *Client) Scenario(ctx context.Context, runID string) (*httpapi.ScenarioResponse, error) {
	var resp httpapi.ScenarioResponse
	if err := c.get(ctx, "/api/scenario/"+url.PathEscape(runID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get performs a GET request and decodes the JSON response into out.
// Transport failures and 5xx responses are retried; 4xx responses are not.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var clientErr error
	err := util.Retry(ctx, c.maxAttempts, c.baseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return apiError(resp)
		}
		if resp.StatusCode != http.StatusOK {
			clientErr = apiError(resp)
			return nil
		}
		clientErr = nil
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		return err
	}
	return clientErr
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
