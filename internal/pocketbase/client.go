package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
)

const authPath = "/api/admins/auth-with-password"

// Session holds the token returned by Authenticate. The zero value is an
// unauthenticated session.
type Session struct {
	Token string
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Record is a record as returned by the store.
type Record map[string]any

func (r Record) Id() string {
	id, _ := r["id"].(string)
	return id
}

type Client struct {
	baseURL    string
	identity   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, identity string, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		identity:   identity,
		password:   password,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordsPath returns the create-record path of a collection.
func RecordsPath(collection string) string {
	return fmt.Sprintf("/api/collections/%s/records", collection)
}

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the admin identity and password for a session token.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	status, body, err := c.post(ctx, authPath, "", authRequest{Identity: c.identity, Password: c.password})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	if status != http.StatusOK {
		c.logger.ErrorContext(ctx, "authentication failed", "status_code", status, "response", string(body))
		return Session{}, &domain.StatusError{Kind: domain.ErrAuthentication, StatusCode: status, Body: string(body)}
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Session{}, fmt.Errorf("%w: failed to decode response: %w", domain.ErrAuthentication, err)
	}
	if resp.Token == "" {
		return Session{}, fmt.Errorf("%w: response has no token", domain.ErrAuthentication)
	}

	c.logger.InfoContext(ctx, "authentication successful")
	return Session{Token: resp.Token}, nil
}

// InsertRecord creates one record at path. Without an authenticated session
// no request is sent.
func (c *Client) InsertRecord(ctx context.Context, session Session, path string, record any) (Record, error) {
	if !session.Authenticated() {
		c.logger.ErrorContext(ctx, "insert attempted without authentication", "path", path)
		return nil, domain.ErrUnauthenticated
	}

	status, body, err := c.post(ctx, path, session.Token, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInsert, err)
	}

	if status != http.StatusOK {
		c.logger.ErrorContext(ctx, "insertion failed", "path", path, "status_code", status, "response", string(body))
		return nil, &domain.StatusError{Kind: domain.ErrInsert, StatusCode: status, Body: string(body)}
	}

	// the record exists once the store answered 200, whatever the body says
	created := Record{}
	if err := json.Unmarshal(body, &created); err != nil {
		c.logger.WarnContext(ctx, "failed to decode insertion response", "path", path, "error", err)
		return Record{}, nil
	}

	c.logger.DebugContext(ctx, "insertion successful", "path", path, "record_id", created.Id())
	return created, nil
}

func (c *Client) post(ctx context.Context, path string, token string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}
