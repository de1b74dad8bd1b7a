package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/pkg/config"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// Client talks to the institutional loans backend, the source of truth for
// every request. The gateway never assumes server-side filtering; List always
// returns the full role-visible collection.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a backend client. The configured timeout bounds every
// call so a hung transition cannot hold a pending-op token forever.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// List fetches the full request collection.
func (c *Client) List(ctx context.Context) ([]*models.Request, error) {
	var wires []wireRequest
	if err := c.do(ctx, http.MethodGet, "/requests", nil, &wires); err != nil {
		return nil, err
	}
	requests := make([]*models.Request, 0, len(wires))
	for _, w := range wires {
		req, err := decodeRequest(w)
		if err != nil {
			// One malformed row must not hide the rest; the backend
			// owns its own data quality.
			c.logger.Warn("skipping undecodable request", zap.Error(err))
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// Create submits a new draft and returns the request as the backend stored
// it, id and createdAt included.
func (c *Client) Create(ctx context.Context, draft models.Draft) (*models.Request, error) {
	var wire wireRequest
	if err := c.do(ctx, http.MethodPost, "/requests", encodeDraft(draft), &wire); err != nil {
		return nil, err
	}
	return decodeRequest(wire)
}

// UpdateStatus patches the status code of a request and returns the
// authoritative server copy.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Request, error) {
	code, ok := status.WireCode()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("status %s has no wire code", status))
	}
	var wire wireRequest
	if err := c.do(ctx, http.MethodPatch, "/requests/"+id, wireStatusPatch{StatusCode: code}, &wire); err != nil {
		return nil, err
	}
	return decodeRequest(wire)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return appErrors.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: backend returned %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
