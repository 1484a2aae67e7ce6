// Package catalog implements the remote place-catalog capability over its
// JSON HTTP API, including the authenticated session used by review mode.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/placesync/internal/domain"
)

// Client talks to the catalog service. Moderation operations require a prior
// Login on the same client: the session cookie lives in the client's jar and
// is discarded by Logout. Construct one client per run; there is no ambient
// shared session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.Catalog = (*Client)(nil)

// NewClient creates a catalog client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// credentials is the login request body.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a session cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	c.logger.Info("logging in to catalog", "email", email)
	return c.do(ctx, http.MethodPost, "/login", credentials{Email: email, Password: password}, nil)
}

// Logout discards the session server-side and clears the local cookie jar.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if jar, jarErr := cookiejar.New(nil); jarErr == nil {
		c.httpClient.Jar = jar
	}
	return err
}

// SearchDuplicates asks the catalog for entries within its proximity
// threshold of the record. The scan itself runs server-side.
func (c *Client) SearchDuplicates(ctx context.Context, rec domain.Record) ([]domain.DuplicateCandidate, error) {
	var results []searchResult
	if err := c.do(ctx, http.MethodPost, "/search/duplicates", newPlacePayload(rec), &results); err != nil {
		return nil, err
	}
	candidates := make([]domain.DuplicateCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, domain.DuplicateCandidate{
			ID:       r.ID,
			Title:    r.Title,
			Distance: r.Distance,
		})
	}
	return candidates, nil
}

// Create creates a new entry and returns the catalog-assigned ID.
func (c *Client) Create(ctx context.Context, rec domain.Record) (string, error) {
	var id string
	if err := c.do(ctx, http.MethodPost, "/entries", newPlacePayload(rec), &id); err != nil {
		return "", err
	}
	return id, nil
}

// FetchByID reads a single entry.
func (c *Client) FetchByID(ctx context.Context, id string) (domain.Record, error) {
	var entries []placePayload
	path := "/entries/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return domain.Record{}, err
	}
	if len(entries) == 0 {
		return domain.Record{}, domain.ErrNotFound
	}
	return entries[0].toRecord(), nil
}

// Update fully replaces the entry identified by rec.ID.
func (c *Client) Update(ctx context.Context, rec domain.Record) (string, error) {
	var id string
	path := "/entries/" + url.PathEscape(rec.ID)
	if err := c.do(ctx, http.MethodPut, path, updatePlacePayload(rec), &id); err != nil {
		return "", err
	}
	return id, nil
}

// Patch partially updates the entry; only non-empty fields travel.
func (c *Client) Patch(ctx context.Context, rec domain.Record) (string, error) {
	var id string
	path := "/entries/" + url.PathEscape(rec.ID)
	if err := c.do(ctx, http.MethodPatch, path, updatePlacePayload(rec), &id); err != nil {
		return "", err
	}
	return id, nil
}

// SetReviewState transitions the moderation state of the given entries.
func (c *Client) SetReviewState(ctx context.Context, ids []string, decision domain.ReviewDecision) error {
	if len(ids) == 0 {
		return nil
	}
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	path := "/places/" + strings.Join(escaped, ",") + "/review"
	return c.do(ctx, http.MethodPost, path, decision, nil)
}

// do performs one API call. A non-nil out receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.asAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// asAPIError maps a non-2xx response onto the domain error taxonomy. Status
// codes with precondition semantics become sentinels so callers can branch
// with errors.Is; other client errors stay row-local CatalogErrors; server
// errors escalate as plain errors and abort the run.
func (c *Client) asAPIError(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
		}
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrVersionConflict, msg)
		}
		return domain.ErrVersionConflict
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &domain.CatalogError{StatusCode: resp.StatusCode, Message: msg}
	}
	return fmt.Errorf("catalog unavailable: status %d: %s", resp.StatusCode, msg)
}

// readErrorMessage extracts the {"message": …} body the catalog sends with
// errors, falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(body))
}
