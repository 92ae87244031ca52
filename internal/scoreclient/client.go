// Package scoreclient talks to the scoreboard server: reading the top
// entries, submitting scores, account login and the live websocket feed.
//
// Failures are returned to the caller as-is; nothing is retried.
package scoreclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/patternrush/internal/leaderboard"
)

// ErrUnavailable reports that the server could not be reached.
var ErrUnavailable = errors.New("scoreboard unavailable")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Fields  []leaderboard.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("scoreboard returned %d: %s", e.Status, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("scoreboard returned %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, leaderboard.ErrInvalid) match rejected submissions.
func (e *APIError) Is(target error) bool {
	return target == leaderboard.ErrInvalid && e.Status == http.StatusBadRequest
}

// Client is a scoreboard API client. Token, when set, is sent as a bearer
// token so submissions are recorded under the account name.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

// New returns a Client for baseURL with bounded dial and request timeouts.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

// Leaderboard returns the top entries, highest score first.
func (c *Client) Leaderboard(ctx context.Context) ([]leaderboard.Entry, error) {
	var out []leaderboard.Entry
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit posts a score and returns the stored entry.
func (c *Client) Submit(ctx context.Context, sub leaderboard.Submission) (leaderboard.Entry, error) {
	var out leaderboard.Entry
	err := c.do(ctx, http.MethodPost, "/leaderboard", sub, &out)
	return out, err
}

// Session is an authenticated account.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Signup creates an account and stores its token on c.
func (c *Client) Signup(ctx context.Context, username, password string) (Session, error) {
	return c.auth(ctx, "/auth/signup", username, password)
}

// Login authenticates and stores the token on c.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	return c.auth(ctx, "/auth/login", username, password)
}

func (c *Client) auth(ctx context.Context, path, username, password string) (Session, error) {
	var out Session
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return Session{}, err
	}
	c.Token = out.Token
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var res struct {
			Message string                   `json:"message"`
			Errors  []leaderboard.FieldError `json:"errors"`
		}
		if json.Unmarshal(data, &res) == nil && res.Message != "" {
			apiErr.Message, apiErr.Fields = res.Message, res.Errors
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Watch subscribes to the live feed. The channel receives the top entries
// on connect and after every accepted submission; it is closed when ctx is
// done or the connection drops.
func (c *Client) Watch(ctx context.Context) (<-chan []leaderboard.Entry, error) {
	u, err := url.Parse(c.BaseURL + "/leaderboard/live")
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	hdr := http.Header{}
	if c.Token != "" {
		hdr.Set("Authorization", "Bearer "+c.Token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), hdr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make(chan []leaderboard.Entry, 1)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		// Unblocks ReadJSON below.
		_ = ws.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var top []leaderboard.Entry
			if err := ws.ReadJSON(&top); err != nil {
				return
			}
			select {
			case out <- top:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
