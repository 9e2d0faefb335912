// Package remote implements the HTTP client for the sync backend. Pushes go
// through per-table merge procedures exposed as RPC endpoints; pulls read
// table rows filtered by revision.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/wire"
)

// Client is the transport the push and pull pipelines talk through.
type Client interface {
	// Merge invokes one merge procedure with the given named parameters.
	Merge(ctx context.Context, proc string, params map[string]any) error
	// Pull returns rows of table with revision strictly greater than after,
	// ascending by revision, at most limit rows.
	Pull(ctx context.Context, table string, after int64, limit int) ([]wire.Row, error)
	// Ping reports whether the backend answers at all.
	Ping(ctx context.Context) error
}

// CallError is a non-2xx response from the backend.
type CallError struct {
	Status int
	Body   string
}

func (e *CallError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server returned status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// IsPermanent reports whether retrying the same payload can ever succeed.
// Endpoint-level rejections mean the payload itself is unacceptable; auth
// and server-side failures are worth retrying.
func (e *CallError) IsPermanent() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// IsPermanent reports whether err is a permanent endpoint rejection.
// Everything else (timeouts, 5xx, auth) is treated as transient.
func IsPermanent(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.IsPermanent()
}

// HTTPClient talks JSON over HTTP. Merge parameter maps are marshalled as-is,
// so nil values arrive as explicit JSON nulls; the merge procedures require
// every parameter to be present.
type HTTPClient struct {
	client  *http.Client
	log     logging.Logger
	baseURL string
	token   string
}

func NewHTTPClient(baseURL, token string, timeout time.Duration, log logging.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}
	return &HTTPClient{
		client:  client,
		log:     log,
		baseURL: baseURL,
		token:   token,
	}
}

func (c *HTTPClient) Merge(ctx context.Context, proc string, params map[string]any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding merge params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+proc, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	c.log.Debug(ctx, "calling merge procedure", "proc", proc)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrEndpointUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.callError(resp)
	}
	return nil
}

func (c *HTTPClient) Pull(ctx context.Context, table string, after int64, limit int) ([]wire.Row, error) {
	q := url.Values{}
	q.Set("revision", "gt."+strconv.FormatInt(after, 10))
	q.Set("order", "revision.asc")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	c.log.Debug(ctx, "pulling rows", "table", table, "after", after, "limit", limit)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrEndpointUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.callError(resp)
	}

	var rows []wire.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrEndpointUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.callError(resp)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *HTTPClient) callError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &CallError{Status: resp.StatusCode, Body: string(body)}
}
