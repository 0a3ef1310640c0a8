// Package backend is the HTTP client of the ConectaBot API.
//
// Every call carries the bearer token and a fresh X-Request-ID. Failures are
// classified as pkg.ErrTransport (no response), pkg.ErrUnsuccessfulResponse
// (non-2xx, as *StatusError) or pkg.ErrMalformedBody; callers decide whether
// to absorb them.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 * 1024 * 1024

// API is the set of backend operations the services depend on.
type API interface {
	Email() string
	FetchConversations(ctx context.Context) ([]models.RawConversation, []error, error)
	FetchMessages(ctx context.Context, number string) ([]models.MessageUI, []error, error)
	SendMessage(ctx context.Context, number, text string) error
	Pause(ctx context.Context, number string) error
	Resume(ctx context.Context, number string) error
	DeleteConversation(ctx context.Context, number string) error
}

// Client talks to the ConectaBot API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
	email string
}

// NewClient creates a Client. When email is empty it is read from the token.
func NewClient(baseURL, token, email string, timeout time.Duration) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	c.SetCredentials(token, email)
	return c
}

// SetCredentials replaces the bearer token and caller email.
// An empty email is derived from the token's email claim.
func (c *Client) SetCredentials(token, email string) {
	if email == "" && token != "" {
		if fromToken, err := EmailFromToken(token); err == nil {
			email = fromToken
		} else {
			log.Printf("[backend] could not read email from token: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.email = email
}

// Email returns the caller email used in backend URLs.
func (c *Client) Email() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.email
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchConversations reads the active conversation snapshot.
// skipped lists entries dropped as malformed.
func (c *Client) FetchConversations(ctx context.Context) ([]models.RawConversation, []error, error) {
	path := "/api/whatsapp/conversaciones-activas?cliente=" + url.QueryEscape(c.Email())

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}
	return engine.ParseSnapshot(body)
}

// FetchMessages reads the message list of one conversation.
func (c *Client) FetchMessages(ctx context.Context, number string) ([]models.MessageUI, []error, error) {
	path := fmt.Sprintf("/api/whatsapp/conversaciones/%s/%s/mensajes",
		url.PathEscape(c.Email()), url.PathEscape(number))

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}
	return engine.ParseMessages(body)
}

// SendMessage sends text to a conversation. The response body is ignored.
func (c *Client) SendMessage(ctx context.Context, number, text string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/whatsapp/enviar-mensaje", map[string]string{
		"numero":  number,
		"mensaje": text,
	})
	return err
}

// Pause hands the conversation over to a human: the bot stops answering.
func (c *Client) Pause(ctx context.Context, number string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/core/pausar", map[string]string{
		"telefono": number,
		"cliente":  c.Email(),
	})
	return err
}

// Resume gives the conversation back to the bot.
func (c *Client) Resume(ctx context.Context, number string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/core/reanudar", map[string]string{
		"telefono": number,
		"cliente":  c.Email(),
	})
	return err
}

// DeleteConversation removes the conversation from the active list, then
// deletes its history. The second call only runs if the first succeeded.
func (c *Client) DeleteConversation(ctx context.Context, number string) error {
	path := fmt.Sprintf("/api/whatsapp/conversaciones-activas/%s/%s",
		url.PathEscape(c.Email()), url.PathEscape(number))

	if _, err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to remove active conversation: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, "/api/core/eliminar-conversacion", map[string]string{
		"telefono": number,
	}); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return nil
}

// GoogleLogin exchanges a Google id token for a ConectaBot bearer token.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/google-login", map[string]string{
		"idToken": idToken,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", pkg.ErrMalformedBody, err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: missing token", pkg.ErrMalformedBody)
	}
	return resp.Token, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", pkg.ErrTransport, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: reading body: %v", pkg.ErrTransport, method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{
			Method: method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   string(bytes.TrimSpace(snippet)),
		}
	}

	return body, nil
}
