// Package auth logs in to the service that owns the project being served.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultTimeout bounds a single login request
const DefaultTimeout = 30 * time.Second

// ErrMissingCredentials is returned when the username or password is empty
var ErrMissingCredentials = errors.New("username and password are required")

// Credentials is a username/password pair
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the result of a successful login
type Session struct {
	Username string `json:"username"`
	Secret   string `json:"sessionSecret"`
}

type loginRequest struct {
	Credentials
	ClientID string `json:"clientId,omitempty"`
}

// Client posts credentials to a login endpoint
type Client struct {
	url      string
	clientID string
	http     *http.Client
	log      log.Logger
}

// NewClient creates a login client for url
func NewClient(url, clientID string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Client{
		url:      url,
		clientID: clientID,
		http:     &http.Client{Timeout: DefaultTimeout},
		log:      logger,
	}
}

// Login authenticates creds. Any non-2xx response is an error.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	body, err := json.Marshal(loginRequest{Credentials: creds, ClientID: c.clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("login as %s rejected: %s: %s", creds.Username, resp.Status, bytes.TrimSpace(data))
	}

	session := &Session{Username: creds.Username}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, session); err != nil {
			return nil, fmt.Errorf("failed to decode login response: %w", err)
		}
	}
	c.log.Info("Logged in", "username", session.Username)
	return session, nil
}
