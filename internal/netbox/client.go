package netbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/euphdk/netbox-api-export-import/internal/models"
)

// Config carries everything a client needs. It is passed in explicitly at
// construction so the engines stay testable against a fake server.
type Config struct {
	URL   string
	Token string

	PageSize      int
	RetryAttempts int
	RetryDelay    time.Duration
	RequestDelay  time.Duration

	InsecureSkipVerify bool
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	return c
}

// ErrTruncated marks a collection fetch that was cut short after the retry
// budget ran out. The caller still gets the records fetched so far.
var ErrTruncated = errors.New("netbox: fetch truncated")

// Client talks to one NetBox instance.
type Client struct {
	cfg   Config
	base  *url.URL
	http  *http.Client
	clock clock.Clock
}

func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("netbox: URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("netbox: invalid URL %q: %w", cfg.URL, err)
	}
	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		cfg:   cfg,
		base:  base,
		http:  &http.Client{Transport: transport, Timeout: 30 * time.Second},
		clock: clock.WallClock,
	}, nil
}

// URL returns the configured base URL.
func (c *Client) URL() string { return c.cfg.URL }

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// isTransient reports whether an error is worth retrying: network
// failures, server errors and explicit throttling. Everything else (auth,
// validation, missing endpoint) fails immediately.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// IsConflict reports whether a create was rejected because a matching
// record already exists on the target. NetBox signals this as a 400 with a
// uniqueness message rather than a 409, so both are accepted.
func IsConflict(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	if se.code == http.StatusConflict {
		return true
	}
	return se.code == http.StatusBadRequest &&
		(strings.Contains(se.body, "already exists") || strings.Contains(se.body, "unique"))
}

// unwrapRetry strips juju/retry's wrappers so callers see the underlying
// HTTP error; fatal errors come back from retry.Call as-is.
func unwrapRetry(err error) error {
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) || retry.IsRetryStopped(err) {
		return retry.LastError(err)
	}
	return err
}

// page is the envelope NetBox wraps list responses in.
type page struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results []models.Record `json:"results"`
}

// FetchAll retrieves every record of the collection at path, following the
// server's offset pagination until no next cursor remains. Each page
// request is retried with backoff; if one page exhausts its retries the
// records fetched so far are returned together with an ErrTruncated error
// so the caller can keep the partial result. A failure before the first
// record returns a plain error: the collection was never reachable.
func (c *Client) FetchAll(ctx context.Context, path string) ([]models.Record, error) {
	var all []models.Record
	offset := 0
	for {
		pg, err := c.fetchPage(ctx, path, offset)
		if err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("fetching %s: %w", path, err)
			}
			return all, fmt.Errorf("%w: %s at offset %d: %v", ErrTruncated, path, offset, err)
		}
		all = append(all, pg.Results...)
		if pg.Next == nil || *pg.Next == "" {
			return all, nil
		}
		offset += c.cfg.PageSize
		c.pause(ctx)
	}
}

func (c *Client) fetchPage(ctx context.Context, path string, offset int) (*page, error) {
	var pg page
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return c.getJSON(ctx, path, url.Values{
				"limit":  []string{strconv.Itoa(c.cfg.PageSize)},
				"offset": []string{strconv.Itoa(offset)},
			}, &pg)
		},
		IsFatalError: func(err error) bool { return !isTransient(err) },
		NotifyFunc: func(lastError error, attempt int) {
			log.Printf("  retrying %s offset %d (attempt %d): %v", path, offset, attempt, lastError)
		},
		Attempts:    c.cfg.RetryAttempts,
		Delay:       c.cfg.RetryDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})
	if err != nil {
		return nil, unwrapRetry(err)
	}
	return &pg, nil
}

// Create POSTs one record and returns the numeric id the target assigned.
func (c *Client) Create(ctx context.Context, path string, payload map[string]any) (int, error) {
	var created models.Record
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return c.send(ctx, http.MethodPost, c.endpoint(path, 0), payload, &created)
		},
		IsFatalError: func(err error) bool { return !isTransient(err) },
		Attempts:     c.cfg.RetryAttempts,
		Delay:        c.cfg.RetryDelay,
		BackoffFunc:  retry.DoubleDelay,
		Clock:        c.clock,
		Stop:         ctx.Done(),
	})
	if err != nil {
		return 0, unwrapRetry(err)
	}
	return recordID(created), nil
}

// Update PATCHes the record with the given id.
func (c *Client) Update(ctx context.Context, path string, id int, payload map[string]any) error {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return c.send(ctx, http.MethodPatch, c.endpoint(path, id), payload, nil)
		},
		IsFatalError: func(err error) bool { return !isTransient(err) },
		Attempts:     c.cfg.RetryAttempts,
		Delay:        c.cfg.RetryDelay,
		BackoffFunc:  retry.DoubleDelay,
		Clock:        c.clock,
		Stop:         ctx.Done(),
	})
	if err != nil {
		return unwrapRetry(err)
	}
	return nil
}

// Lookup finds an existing object by identifier, trying slug, then name,
// then a literal numeric id. Returns the object's id and whether anything
// matched.
func (c *Client) Lookup(ctx context.Context, path, ident string) (int, bool, error) {
	for _, field := range []string{"slug", "name"} {
		var pg page
		err := c.getJSON(ctx, path, url.Values{
			field:   []string{ident},
			"limit": []string{"1"},
		}, &pg)
		if err != nil {
			// Collections without the field reject the filter; try
			// the next one.
			var se *statusError
			if errors.As(err, &se) && se.code == http.StatusBadRequest {
				continue
			}
			return 0, false, err
		}
		if len(pg.Results) > 0 {
			return recordID(pg.Results[0]), true, nil
		}
	}
	if id, err := strconv.Atoi(ident); err == nil {
		return id, true, nil
	}
	return 0, false, nil
}

// pause sleeps the configured inter-request delay, giving up early on
// cancellation.
func (c *Client) pause(ctx context.Context) {
	if c.cfg.RequestDelay <= 0 {
		return
	}
	select {
	case <-c.clock.After(c.cfg.RequestDelay):
	case <-ctx.Done():
	}
}

func (c *Client) endpoint(path string, id int) string {
	u := *c.base
	p := "api/" + strings.Trim(path, "/") + "/"
	if id > 0 {
		p += strconv.Itoa(id) + "/"
	}
	ref, _ := url.Parse(p)
	return u.ResolveReference(ref).String()
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.endpoint(path, 0)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.send(ctx, http.MethodGet, u, nil, out)
}

func (c *Client) send(ctx context.Context, method, u string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// recordID digs the numeric id out of a decoded record. JSON numbers
// arrive as float64.
func recordID(rec models.Record) int {
	switch v := rec["id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
