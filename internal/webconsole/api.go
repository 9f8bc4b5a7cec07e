// ABOUTME: JSON API for the admin console, consumed by the helmgate-admin CLI
// ABOUTME: Bearer-token auth with the same roster kernel policy as the browser UI

package webconsole

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/roster"
	"github.com/helmgate/helmgate/internal/store"
)

// apiTokenDuration is the lifetime of tokens issued by /api/login.
const apiTokenDuration = 24 * time.Hour

// registerAPIRoutes registers the JSON API under /api.
func (c *Console) registerAPIRoutes(mux *http.ServeMux) {
	authed := auth.Middleware(c.idp, c.kernel, c.verifier)
	mainOnly := auth.RequireMainAdmin()

	mux.HandleFunc("POST /api/login", c.handleAPILogin)
	mux.Handle("GET /api/me", authed(http.HandlerFunc(c.handleAPIMe)))

	mux.Handle("GET /api/users", authed(mainOnly(http.HandlerFunc(c.handleAPIUsersList))))
	mux.Handle("POST /api/users", authed(mainOnly(http.HandlerFunc(c.handleAPIUserCreate))))
	mux.Handle("PATCH /api/users/{id}", authed(mainOnly(http.HandlerFunc(c.handleAPIUserUpdate))))
	mux.Handle("POST /api/users/{id}/block", authed(mainOnly(http.HandlerFunc(c.handleAPIUserBlock))))
	mux.Handle("POST /api/users/{id}/unblock", authed(mainOnly(http.HandlerFunc(c.handleAPIUserUnblock))))
	mux.Handle("DELETE /api/users/{id}", authed(mainOnly(http.HandlerFunc(c.handleAPIUserDelete))))
}

type apiUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	Blocked     bool   `json:"blocked"`
	IsMainAdmin bool   `json:"is_main_admin"`
	CreatedAt   string `json:"created_at,omitempty"`
	LastLogin   string `json:"last_login,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

func toAPIUser(rec *store.RosterRecord, mainAdmin bool) apiUser {
	u := apiUser{
		ID:          rec.ID,
		Name:        rec.Name,
		Email:       rec.Email,
		Mobile:      rec.Mobile,
		Blocked:     rec.Blocked,
		IsMainAdmin: mainAdmin,
		CreatedBy:   rec.CreatedBy,
	}
	if !rec.CreatedAt.IsZero() {
		u.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !rec.LastLogin.IsZero() {
		u.LastLogin = rec.LastLogin.UTC().Format(time.RFC3339)
	}
	return u
}

// handleAPILogin authenticates with email and password and issues a JWT.
func (c *Console) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	principal, err := c.idp.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	decision, err := c.kernel.Authorize(r.Context(), principal, roster.EntryLogin)
	if err != nil {
		c.logger.Error("api login authorization failed", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "authorization failed")
		return
	}
	if !decision.Granted {
		writeAPIError(w, http.StatusForbidden, string(decision.Reason))
		return
	}

	token, err := c.verifier.Generate(principal.ID, apiTokenDuration)
	if err != nil {
		c.logger.Error("failed to generate token", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeAPIJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(apiTokenDuration.Seconds()),
		"role":       decision.Role,
	})
}

// handleAPIMe returns the caller's own roster record and role.
func (c *Console) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	writeAPIJSON(w, http.StatusOK, map[string]any{
		"user": toAPIUser(sess.Record, sess.IsMainAdmin()),
		"role": sess.Role,
	})
}

// handleAPIUsersList returns the partitioned roster.
func (c *Console) handleAPIUsersList(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	records, err := c.kernel.ListUsers(r.Context(), sess)
	if err != nil {
		c.writeKernelError(w, err)
		return
	}

	users := make([]apiUser, 0, len(records))
	for _, rec := range records {
		users = append(users, toAPIUser(rec, c.kernel.IsMainAdminRecord(rec)))
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleAPIUserCreate registers a new secondary admin.
func (c *Console) handleAPIUserCreate(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	var req struct {
		Name     string `json:"name"`
		Mobile   string `json:"mobile"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := c.kernel.AddUser(r.Context(), sess, req.Name, req.Mobile, req.Email, req.Password)
	if err != nil {
		c.writeKernelError(w, err)
		return
	}

	writeAPIJSON(w, http.StatusCreated, map[string]any{"user": toAPIUser(rec, false)})
}

// handleAPIUserUpdate edits a secondary admin's name and mobile.
func (c *Console) handleAPIUserUpdate(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	var req struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := c.kernel.EditUser(r.Context(), sess, r.PathValue("id"), req.Name, req.Mobile); err != nil {
		c.writeKernelError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (c *Console) handleAPIUserBlock(w http.ResponseWriter, r *http.Request) {
	c.apiSetBlocked(w, r, true)
}

func (c *Console) handleAPIUserUnblock(w http.ResponseWriter, r *http.Request) {
	c.apiSetBlocked(w, r, false)
}

func (c *Console) apiSetBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	sess := auth.MustFromContext(r.Context())

	if err := c.kernel.SetBlocked(r.Context(), sess, r.PathValue("id"), blocked); err != nil {
		c.writeKernelError(w, err)
		return
	}

	status := "blocked"
	if !blocked {
		status = "unblocked"
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"status": status})
}

// handleAPIUserDelete removes a roster record and reports the credential
// warning in the response body.
func (c *Console) handleAPIUserDelete(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	warning, err := c.kernel.DeleteUser(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		c.writeKernelError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{
		"status":  "deleted",
		"warning": warning,
	})
}

// writeKernelError maps roster kernel errors onto API status codes.
func (c *Console) writeKernelError(w http.ResponseWriter, err error) {
	var validation *roster.ValidationError
	var storeErr *roster.StoreError
	switch {
	case errors.As(err, &validation):
		writeAPIError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, roster.ErrNotMainAdmin):
		writeAPIError(w, http.StatusForbidden, "main admin role required")
	case errors.Is(err, roster.ErrCannotModifyMainAdmin):
		writeAPIError(w, http.StatusForbidden, "main admin record cannot be modified")
	case errors.Is(err, roster.ErrDuplicateIdentity):
		writeAPIError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, store.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "user not found")
	case errors.As(err, &storeErr):
		writeAPIError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		slog.Default().Error("api operation failed", "component", "webconsole", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "operation failed")
	}
}

func writeAPIJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, map[string]string{"error": msg})
}
