// ABOUTME: User management handlers for the admin console
// ABOUTME: Add, edit, block, unblock, and delete roster records

package webconsole

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/roster"
)

// handleUsersPage renders the user management page
func (c *Console) handleUsersPage(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	if !sess.IsMainAdmin() {
		http.Error(w, "main admin role required", http.StatusForbidden)
		return
	}

	records, err := c.kernel.ListUsers(r.Context(), sess)
	if err != nil {
		c.logger.Error("failed to list users", "error", err)
		http.Error(w, "failed to load users", http.StatusInternalServerError)
		return
	}

	csrfToken := c.ensureCSRFToken(w, r)
	c.renderUsersPage(w, sess, records, r.URL.Query().Get("msg"), r.URL.Query().Get("err"), csrfToken)
}

// handleUsersList renders just the user list fragment, for htmx refreshes
func (c *Console) handleUsersList(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	if !sess.IsMainAdmin() {
		http.Error(w, "main admin role required", http.StatusForbidden)
		return
	}

	records, err := c.kernel.ListUsers(r.Context(), sess)
	if err != nil {
		c.logger.Error("failed to list users", "error", err)
		http.Error(w, "failed to load users", http.StatusInternalServerError)
		return
	}

	csrfToken := c.ensureCSRFToken(w, r)
	c.renderUsersList(w, sess, records, csrfToken)
}

// handleUserAdd processes the add-user form
func (c *Console) handleUserAdd(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		c.redirectUsers(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectUsers(w, r, "", "Invalid request, please try again")
		return
	}

	rec, err := c.kernel.AddUser(r.Context(), sess,
		r.FormValue("name"),
		r.FormValue("mobile"),
		r.FormValue("email"),
		r.FormValue("password"),
	)
	if err != nil {
		c.redirectUsers(w, r, "", mutationErrorMessage(err))
		return
	}

	c.logger.Info("user added via console", "actor", sess.Principal.ID, "target", rec.ID)
	c.redirectUsers(w, r, "User "+rec.Name+" added.", "")
}

// handleUserEdit processes the edit-user form
func (c *Console) handleUserEdit(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	targetID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		c.redirectUsers(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectUsers(w, r, "", "Invalid request, please try again")
		return
	}

	err := c.kernel.EditUser(r.Context(), sess, targetID, r.FormValue("name"), r.FormValue("mobile"))
	if err != nil {
		c.redirectUsers(w, r, "", mutationErrorMessage(err))
		return
	}

	c.redirectUsers(w, r, "User updated.", "")
}

// handleUserBlock blocks a user
func (c *Console) handleUserBlock(w http.ResponseWriter, r *http.Request) {
	c.setBlocked(w, r, true)
}

// handleUserUnblock unblocks a user
func (c *Console) handleUserUnblock(w http.ResponseWriter, r *http.Request) {
	c.setBlocked(w, r, false)
}

func (c *Console) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	sess := auth.MustFromContext(r.Context())
	targetID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		c.redirectUsers(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectUsers(w, r, "", "Invalid request, please try again")
		return
	}

	if err := c.kernel.SetBlocked(r.Context(), sess, targetID, blocked); err != nil {
		c.redirectUsers(w, r, "", mutationErrorMessage(err))
		return
	}

	msg := "User blocked."
	if !blocked {
		msg = "User unblocked."
	}
	c.redirectUsers(w, r, msg, "")
}

// handleUserDelete removes a user's roster record. The delete warning is
// always surfaced: the credential at the identity provider survives.
func (c *Console) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	targetID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		c.redirectUsers(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectUsers(w, r, "", "Invalid request, please try again")
		return
	}

	warning, err := c.kernel.DeleteUser(r.Context(), sess, targetID)
	if err != nil {
		c.redirectUsers(w, r, "", mutationErrorMessage(err))
		return
	}

	c.logger.Warn("user deleted via console", "actor", sess.Principal.ID, "target", targetID)
	c.redirectUsers(w, r, "User deleted. Note: "+warning+".", "")
}

// redirectUsers sends the browser back to the users page with a flash
// message in the query string.
func (c *Console) redirectUsers(w http.ResponseWriter, r *http.Request, msg, errMsg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if errMsg != "" {
		q.Set("err", errMsg)
	}
	target := "/admin/users"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// mutationErrorMessage maps kernel errors to user-facing messages.
func mutationErrorMessage(err error) string {
	var validation *roster.ValidationError
	switch {
	case errors.As(err, &validation):
		return "Invalid " + validation.Field + ": " + validation.Reason + "."
	case errors.Is(err, roster.ErrNotMainAdmin):
		return "Only the main admin can manage users."
	case errors.Is(err, roster.ErrCannotModifyMainAdmin):
		return "The main admin account cannot be modified here."
	case errors.Is(err, roster.ErrDuplicateIdentity):
		return "An account with this email address already exists."
	default:
		return "Operation failed. Please try again."
	}
}
