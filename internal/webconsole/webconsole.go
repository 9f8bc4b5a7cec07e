// ABOUTME: Admin console web UI package for helmgate
// ABOUTME: Provides login, cookie session management, and console routes

package webconsole

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/roster"
	"github.com/helmgate/helmgate/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "helmgate_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "helmgate_csrf"
)

// Config holds console configuration
type Config struct {
	// BaseURL is the external URL of the console
	BaseURL string

	// SessionDuration is how long browser sessions last
	SessionDuration time.Duration
}

// Console handles admin console routes and authentication
type Console struct {
	sessions store.SessionStore
	idp      identity.Provider
	kernel   *roster.Service
	verifier *auth.JWTVerifier
	config   Config
	logger   *slog.Logger
}

// New creates a new Console handler
func New(sessions store.SessionStore, idp identity.Provider, kernel *roster.Service, verifier *auth.JWTVerifier, cfg Config) *Console {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = 7 * 24 * time.Hour
	}
	return &Console{
		sessions: sessions,
		idp:      idp,
		kernel:   kernel,
		verifier: verifier,
		config:   cfg,
		logger:   slog.Default().With("component", "webconsole"),
	}
}

// RegisterRoutes registers all console routes on the given mux
func (c *Console) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no auth required)
	mux.HandleFunc("GET /admin/login", c.handleLoginPage)
	mux.HandleFunc("POST /admin/login", c.handleLogin)

	// Protected routes (auth required)
	mux.HandleFunc("GET /admin/", c.requireAuth(c.handleDashboard))
	mux.HandleFunc("GET /admin", c.requireAuth(c.handleDashboard))
	mux.HandleFunc("POST /admin/logout", c.requireAuth(c.handleLogout))

	// User management (kernel enforces main-admin on every mutation)
	mux.HandleFunc("GET /admin/users", c.requireAuth(c.handleUsersPage))
	mux.HandleFunc("GET /admin/users/list", c.requireAuth(c.handleUsersList))
	mux.HandleFunc("POST /admin/users", c.requireAuth(c.handleUserAdd))
	mux.HandleFunc("POST /admin/users/{id}/edit", c.requireAuth(c.handleUserEdit))
	mux.HandleFunc("POST /admin/users/{id}/block", c.requireAuth(c.handleUserBlock))
	mux.HandleFunc("POST /admin/users/{id}/unblock", c.requireAuth(c.handleUserUnblock))
	mux.HandleFunc("POST /admin/users/{id}/delete", c.requireAuth(c.handleUserDelete))

	// Profile and self-service security settings
	mux.HandleFunc("GET /admin/profile", c.requireAuth(c.handleProfilePage))
	mux.HandleFunc("POST /admin/profile/email", c.requireAuth(c.handleChangeEmail))
	mux.HandleFunc("POST /admin/profile/password", c.requireAuth(c.handleChangePassword))

	// JSON API (bearer-token auth, used by the helmgate-admin CLI)
	c.registerAPIRoutes(mux)

	c.logger.Info("console routes registered")
}

// requireAuth wraps a handler to require an authenticated, authorized
// session. The roster kernel re-checks authorization on every request, so a
// record blocked or deleted mid-session locks the browser out immediately.
func (c *Console) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := c.sessionFromCookie(r)
		if err != nil {
			if errors.As(err, new(*roster.StoreError)) {
				// Transient store failure is not an authorization denial:
				// keep the session, surface the failure.
				http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			c.clearSession(w, r)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	}
}

var errNoSession = errors.New("no valid session")

// sessionFromCookie resolves the session cookie to an authorized roster
// session by re-running the admin-area gate.
func (c *Console) sessionFromCookie(r *http.Request) (*roster.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, errNoSession
	}

	consoleSess, err := c.sessions.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, errNoSession
	}

	principal, err := c.idp.Lookup(r.Context(), consoleSess.UserID)
	if err != nil {
		return nil, errNoSession
	}

	decision, err := c.kernel.Authorize(r.Context(), principal, roster.EntryAdminArea)
	if err != nil {
		return nil, err
	}
	if !decision.Granted {
		return nil, errNoSession
	}

	return &roster.Session{
		Principal: principal,
		Role:      decision.Role,
		Record:    decision.Record,
	}, nil
}

// createSession creates a new session for a user and sets the cookie
func (c *Console) createSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	session := &store.ConsoleSession{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(c.config.SessionDuration),
	}

	if err := c.sessions.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/admin",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// clearSession deletes the stored session (if any) and expires the cookies.
func (c *Console) clearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = c.sessions.DeleteSession(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ensureCSRFToken generates a CSRF token if not present and sets the cookie
func (c *Console) ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		c.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF checks the CSRF token from form against cookie
func (c *Console) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// handleLoginPage renders the login page
func (c *Console) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the dashboard
	if _, err := c.sessionFromCookie(r); err == nil {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	csrfToken := c.ensureCSRFToken(w, r)
	c.renderLoginPage(w, "", csrfToken)
}

// handleLogin processes login form submission
func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		c.renderLoginPage(w, "Invalid form data", c.ensureCSRFToken(w, r))
		return
	}

	if !c.validateCSRF(r) {
		c.renderLoginPage(w, "Invalid request, please try again", c.ensureCSRFToken(w, r))
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		c.renderLoginPage(w, "Please enter both email and password.", c.ensureCSRFToken(w, r))
		return
	}

	principal, err := c.idp.SignIn(r.Context(), email, password)
	if err != nil {
		c.renderLoginPage(w, signInErrorMessage(err), c.ensureCSRFToken(w, r))
		return
	}

	decision, err := c.kernel.Authorize(r.Context(), principal, roster.EntryLogin)
	if err != nil {
		if errors.Is(err, roster.ErrProvisioningFailed) {
			c.renderLoginPage(w, "User configuration incomplete. Please sign in again.", c.ensureCSRFToken(w, r))
			return
		}
		c.logger.Error("login authorization failed", "error", err)
		c.renderLoginPage(w, "An error occurred during login.", c.ensureCSRFToken(w, r))
		return
	}
	if !decision.Granted {
		c.renderLoginPage(w, denyMessage(decision.Reason), c.ensureCSRFToken(w, r))
		return
	}

	if err := c.createSession(w, r, principal.ID); err != nil {
		c.logger.Error("failed to create session", "error", err)
		c.renderLoginPage(w, "An error occurred during login.", c.ensureCSRFToken(w, r))
		return
	}

	c.logger.Info("console login successful", "id", principal.ID, "role", decision.Role)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// handleLogout logs out the current user
func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if !c.validateCSRF(r) {
			c.logger.Warn("logout request with invalid CSRF token")
		}
	}

	c.clearSession(w, r)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// handleDashboard renders the console landing page
func (c *Console) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	csrfToken := c.ensureCSRFToken(w, r)
	c.renderDashboard(w, sess, csrfToken)
}

// signInErrorMessage maps identity provider errors to the message shown on
// the login page.
func signInErrorMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrInvalidEmail):
		return "Invalid email address format."
	case errors.Is(err, identity.ErrAccountDisabled):
		return "This account has been disabled."
	case errors.Is(err, identity.ErrAccountNotFound):
		return "No account found with this email address."
	case errors.Is(err, identity.ErrWrongPassword):
		return "Incorrect password. Please try again."
	case errors.Is(err, identity.ErrRateLimited):
		return "Too many failed login attempts. Please try again later."
	default:
		return "An error occurred during login."
	}
}

// denyMessage maps an access denial to the message shown on the login page.
func denyMessage(reason roster.DenyReason) string {
	switch reason {
	case roster.DenyBlocked:
		return "Your account has been temporarily blocked. Please contact the administrator."
	case roster.DenyNotRegistered:
		return "You are not authorized to access the admin console."
	default:
		return "Access denied."
	}
}

// generateSecureToken returns a URL-safe random token of n bytes entropy.
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
