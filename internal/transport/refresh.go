package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"portfoliocore/internal/credentials"
)

// State is the lifecycle state of a RefreshCoordinator.
type State int

const (
	// StateIdle means no refresh is in flight.
	StateIdle State = iota
	// StateRefreshing means a refresh call is in flight and later
	// callers are attached to it.
	StateRefreshing
	// StateLoggedOut means a refresh failed terminally. The state is
	// final for this coordinator; a fresh login builds a new one.
	StateLoggedOut
)

const refreshPath = "/auth/refresh-token"

// RefreshCoordinator owns the token-refresh protocol. However many
// requests observe an expired token concurrently, exactly one refresh
// call goes to the server; every caller shares its outcome. Waiters
// are released only after the new credential has been written to the
// store, so no request is ever replayed with a stale token.
type RefreshCoordinator struct {
	baseURL     string
	http        *http.Client
	store       *credentials.Store
	timeout     time.Duration
	onLoggedOut func()
	log         *zap.Logger

	group singleflight.Group

	mu    sync.Mutex
	state State
}

// NewRefreshCoordinator creates a coordinator bound to the credential
// currently held by store. timeout bounds the refresh call itself; on
// expiry the refresh counts as failed. onLoggedOut, if non-nil, fires
// exactly once when the coordinator transitions to StateLoggedOut.
func NewRefreshCoordinator(baseURL string, httpClient *http.Client, store *credentials.Store, timeout time.Duration, onLoggedOut func(), log *zap.Logger) *RefreshCoordinator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RefreshCoordinator{
		baseURL:     baseURL,
		http:        httpClient,
		store:       store,
		timeout:     timeout,
		onLoggedOut: onLoggedOut,
		log:         log,
	}
}

// State returns the coordinator's current state.
func (rc *RefreshCoordinator) State() State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// Refresh exchanges the stored refresh token for a new access token
// and returns it. Concurrent callers attach to the same in-flight
// exchange. After a terminal failure every call returns an *AuthError
// immediately.
func (rc *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	rc.mu.Lock()
	if rc.state == StateLoggedOut {
		rc.mu.Unlock()
		return "", &AuthError{Reason: "session terminated"}
	}
	rc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &TransportError{Op: "POST " + refreshPath, Err: err}
	}

	token, err, shared := rc.group.Do("refresh", func() (any, error) {
		return rc.doRefresh()
	})
	if err != nil {
		return "", err
	}
	if shared {
		rc.log.Debug("attached to in-flight token refresh")
	}
	return token.(string), nil
}

// doRefresh runs under the singleflight group: one execution per
// expiry event, outcome shared by every waiter. It deliberately uses
// its own timeout context instead of any caller's, so one caller
// navigating away cannot cancel a refresh that siblings are queued on.
func (rc *RefreshCoordinator) doRefresh() (string, error) {
	rc.setState(StateRefreshing)

	cred := rc.store.Load()
	if cred == nil || cred.RefreshToken == "" {
		return rc.terminate(errors.New("no refresh token available"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"refreshToken": cred.RefreshToken})
	if err != nil {
		return rc.terminate(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return rc.terminate(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.http.Do(req)
	if err != nil {
		return rc.terminate(fmt.Errorf("refresh call failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rc.terminate(fmt.Errorf("refresh rejected with status %d", resp.StatusCode))
	}

	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return rc.terminate(fmt.Errorf("decoding refresh response: %w", err))
	}
	if out.AccessToken == "" {
		return rc.terminate(errors.New("refresh response missing access token"))
	}

	next := *cred
	next.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		next.RefreshToken = out.RefreshToken
	}
	// The store write happens before any waiter is released.
	rc.store.Save(next)
	rc.setState(StateIdle)

	rc.log.Info("access token refreshed")
	return out.AccessToken, nil
}

// terminate clears the session and moves the coordinator to its final
// state.
func (rc *RefreshCoordinator) terminate(cause error) (string, error) {
	rc.store.Clear()

	rc.mu.Lock()
	alreadyOut := rc.state == StateLoggedOut
	rc.state = StateLoggedOut
	rc.mu.Unlock()

	if !alreadyOut && rc.onLoggedOut != nil {
		rc.onLoggedOut()
	}
	rc.log.Warn("token refresh failed, session terminated", zap.Error(cause))
	return "", &AuthError{Reason: "token refresh failed", Err: cause}
}

func (rc *RefreshCoordinator) setState(s State) {
	rc.mu.Lock()
	rc.state = s
	rc.mu.Unlock()
}
