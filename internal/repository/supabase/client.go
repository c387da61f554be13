// Package supabase implements domain.Store over the PostgREST API that
// Supabase exposes at {project}/rest/v1.
//
// Any transport error or non-2xx status is a failure. Error text comes from
// the PostgREST error body ("message", "details", "hint") when present.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/metrics"
)

const singleObjectMediaType = "application/vnd.pgrst.object+json"

// Client talks to one Supabase project
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. Calls are bounded by their context; the
// http.Client timeout is only a backstop for callers without a deadline.
func NewClient(projectURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(projectURL, "/") + "/rest/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// APIError is a non-2xx PostgREST response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Description())
}

// StatusCode returns the HTTP status of the rejected request
func (e *APIError) StatusCode() int { return e.Status }

// Description returns the store's own message, without transport decoration
func (e *APIError) Description() string {
	if e.Details != "" {
		return e.Message + " (" + e.Details + ")"
	}
	return e.Message
}

// Select returns the given columns of rows matching filter
func (c *Client) Select(ctx context.Context, table string, columns []string, filter *domain.Filter) ([]domain.Row, error) {
	req, err := c.newRequest(ctx, http.MethodGet, table, selectQuery(columns, filter), nil)
	if err != nil {
		return nil, err
	}

	var rows []domain.Row
	if err := c.do(req, "select", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	return rows, nil
}

// SelectOne returns exactly one row. PostgREST answers 406 when the filter
// matches zero or several rows; zero rows maps to domain.ErrNotFound.
func (c *Client) SelectOne(ctx context.Context, table string, columns []string, filter domain.Filter) (domain.Row, error) {
	req, err := c.newRequest(ctx, http.MethodGet, table, selectQuery(columns, &filter), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", singleObjectMediaType)

	var row domain.Row
	if err := c.do(req, "select_one", &row); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotAcceptable && strings.Contains(apiErr.Details, "0 rows") {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row, nil
}

// Insert posts all rows in one request and returns the ids PostgREST echoes back
func (c *Client) Insert(ctx context.Context, table string, rows []domain.Row) (domain.BatchInsertResult, error) {
	body, err := json.Marshal(rows)
	if err != nil {
		return domain.BatchInsertResult{}, fmt.Errorf("supabase: failed to marshal rows: %w", err)
	}

	q := url.Values{}
	q.Set("select", "id")
	req, err := c.newRequest(ctx, http.MethodPost, table, q, bytes.NewReader(body))
	if err != nil {
		return domain.BatchInsertResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	var inserted []struct {
		ID any `json:"id"`
	}
	if err := c.do(req, "insert", &inserted); err != nil {
		return domain.BatchInsertResult{}, err
	}

	result := domain.BatchInsertResult{Table: table, IDs: make([]string, 0, len(inserted))}
	for _, r := range inserted {
		result.IDs = append(result.IDs, fmt.Sprint(r.ID))
	}
	return result, nil
}

// Health checks that the REST endpoint answers with the configured key
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("supabase: failed to create health request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("supabase: health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, table string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// do executes req and decodes a 2xx body into dest
func (c *Client) do(req *http.Request, op string, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.StoreRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("supabase: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.StoreRequests.WithLabelValues(op, fmt.Sprint(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase: failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("supabase: failed to decode %s response: %w", op, err)
	}
	return nil
}

// selectQuery renders the PostgREST select and equality filter parameters
func selectQuery(columns []string, filter *domain.Filter) url.Values {
	q := url.Values{}
	if len(columns) > 0 {
		q.Set("select", strings.Join(columns, ","))
	} else {
		q.Set("select", "*")
	}
	if filter != nil {
		q.Set(filter.Column, "eq."+fmt.Sprint(filter.Value))
	}
	return q
}
