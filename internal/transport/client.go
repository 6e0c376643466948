package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfoliocore/internal/blocks"
	"portfoliocore/internal/credentials"
)

// publicPaths are the endpoints that never carry a credential:
// credential issuance, token refresh, and the public read surface.
var publicPaths = []string{
	"/auth/send-otp",
	"/auth/verify-otp",
	"/auth/refresh-token",
	"/public-blogs",
}

// IsPublic reports whether path is on the public allow-list.
func IsPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Client is the authenticated HTTP client for the portfolio API.
//
// It attaches the stored bearer credential to every non-public
// request, picks the body encoding itself (multipart when binary
// attachments are present, JSON otherwise), and handles exactly one
// 401 → refresh → replay cycle per request. Every other failure passes
// through to the caller unchanged.
type Client struct {
	baseURL   string
	http      *http.Client
	store     *credentials.Store
	refresher *RefreshCoordinator
	log       *zap.Logger
}

// NewClient creates a Client. refresher may be nil for a client that
// only serves public endpoints (e.g. the pre-login flow); such a
// client surfaces 401s directly.
func NewClient(baseURL string, httpClient *http.Client, store *credentials.Store, refresher *RefreshCoordinator, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		store:     store,
		refresher: refresher,
		log:       log,
	}
}

// Do issues a request against the API. body may be nil, a
// *blocks.Payload (encoded as multipart when it carries binary parts),
// or any JSON-marshalable value. The caller owns the response body.
//
// On a 401 for a non-public request the client defers to the refresh
// coordinator and replays the identical request once with the new
// token; a second 401 is returned as a terminal *AuthError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	op := method + " " + path
	reqID := uuid.NewString()
	start := time.Now()

	resp, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && !IsPublic(path) && c.refresher != nil {
		// The response body is replaced by the retry's; release it.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		c.log.Debug("unauthorized response, deferring to refresh coordinator",
			zap.String("request_id", reqID), zap.String("op", op))

		token, rerr := c.refresher.Refresh(ctx)
		if rerr != nil {
			return nil, rerr
		}

		resp, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &AuthError{Reason: "request rejected after token refresh"}
		}
	}

	c.log.Debug("api request",
		zap.String("request_id", reqID),
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// DoJSON issues a request and decodes a 2xx JSON response into out
// (skipped when out is nil). Non-2xx statuses other than the handled
// 401 cycle come back as *ServerError carrying the server's message.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// send builds and issues one attempt. Bodies are re-encoded per
// attempt so a replay after refresh gets a fresh reader.
func (c *Client) send(ctx context.Context, method, path string, body any, overrideToken string) (*http.Response, error) {
	var (
		reader      io.Reader
		contentType string
		err         error
	)
	switch b := body.(type) {
	case nil:
	case *blocks.Payload:
		reader, contentType, err = b.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
	default:
		data, merr := json.Marshal(b)
		if merr != nil {
			return nil, fmt.Errorf("encoding body: %w", merr)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if !IsPublic(path) {
		token := overrideToken
		if token == "" {
			if cred := c.store.Load(); cred != nil {
				token = cred.AccessToken
			}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			// Sent unauthenticated on purpose; the server will answer
			// with an authorization error.
			c.log.Debug("no credential available for protected request", zap.String("path", path))
		}
	}

	return c.http.Do(req)
}

// readErrorMessage pulls a human-readable message out of an error
// response body, accepting either {"error": ...} or {"message": ...}
// and falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var wire struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err == nil {
		if wire.Error != "" {
			return wire.Error
		}
		if wire.Message != "" {
			return wire.Message
		}
	}
	return strings.TrimSpace(string(data))
}
