// Package service provides the authentication flow binding the
// credential store, the transport client, and the refresh coordinator
// lifecycle.
package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfoliocore/internal/credentials"
	"portfoliocore/internal/models"
	"portfoliocore/internal/transport"
)

// Session is an authenticated API surface bound to one credential.
// Its coordinator is terminal: once it logs out, the session is dead
// and a fresh login must produce a new Session.
type Session struct {
	// Client carries the bearer credential and the single
	// refresh-and-replay cycle.
	Client *transport.Client
	// Coordinator owns the single-flight token refresh for this
	// session.
	Coordinator *transport.RefreshCoordinator
	// Role is the permission level granted at login.
	Role models.Role
}

// Auth runs the OTP login flow and builds sessions.
type Auth struct {
	baseURL        string
	http           *http.Client
	store          *credentials.Store
	refreshTimeout time.Duration
	onLoggedOut    func()
	log            *zap.Logger

	// public serves the pre-login endpoints; it never carries a
	// credential and never refreshes.
	public *transport.Client
}

// NewAuth creates the login flow. onLoggedOut is installed on every
// coordinator this Auth builds and fires when a session terminates.
func NewAuth(baseURL string, httpClient *http.Client, store *credentials.Store, refreshTimeout time.Duration, onLoggedOut func(), log *zap.Logger) *Auth {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Auth{
		baseURL:        baseURL,
		http:           httpClient,
		store:          store,
		refreshTimeout: refreshTimeout,
		onLoggedOut:    onLoggedOut,
		log:            log,
		public:         transport.NewClient(baseURL, httpClient, store, nil, log),
	}
}

// SendOTP begins a login by asking the server to mail a one-time code.
func (a *Auth) SendOTP(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &transport.ValidationError{Field: "email", Reason: "required"}
	}
	return a.public.DoJSON(ctx, http.MethodPost, "/auth/send-otp", map[string]string{"email": email}, nil)
}

// VerifyOTP exchanges the one-time code for a credential, persists it,
// and returns a fresh Session bound to it.
func (a *Auth) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &transport.ValidationError{Field: "otp", Reason: "required"}
	}

	var wire struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Role models.Role `json:"role"`
		} `json:"user"`
	}
	err := a.public.DoJSON(ctx, http.MethodPost, "/auth/verify-otp",
		map[string]string{"email": email, "otp": code}, &wire)
	if err != nil {
		return nil, err
	}

	a.store.Save(models.Credential{
		AccessToken:  wire.AccessToken,
		RefreshToken: wire.RefreshToken,
		Role:         wire.User.Role,
	})
	a.log.Info("logged in", zap.String("role", string(wire.User.Role)))
	return a.newSession(wire.User.Role), nil
}

// Restore returns a Session for a credential that survived a restart,
// or nil if none is stored.
func (a *Auth) Restore() *Session {
	cred := a.store.Load()
	if cred == nil {
		return nil
	}
	return a.newSession(cred.Role)
}

// PublicClient returns the credential-less client serving the public
// read endpoints; usable before any login.
func (a *Auth) PublicClient() *transport.Client {
	return a.public
}

// Logout clears the stored credential. Any live session's next
// protected request will 401, fail its refresh, and terminate.
func (a *Auth) Logout() {
	a.store.Clear()
	a.log.Info("logged out")
}

func (a *Auth) newSession(role models.Role) *Session {
	coordinator := transport.NewRefreshCoordinator(a.baseURL, a.http, a.store, a.refreshTimeout, a.onLoggedOut, a.log)
	return &Session{
		Client:      transport.NewClient(a.baseURL, a.http, a.store, coordinator, a.log),
		Coordinator: coordinator,
		Role:        role,
	}
}
