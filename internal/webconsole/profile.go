// ABOUTME: Self-service security settings handlers for the admin console
// ABOUTME: Main admin changes their own email or password after reauthentication

package webconsole

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/roster"
)

// handleProfilePage renders the profile and security settings page
func (c *Console) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())
	csrfToken := c.ensureCSRFToken(w, r)
	c.renderProfilePage(w, sess, r.URL.Query().Get("msg"), r.URL.Query().Get("err"), csrfToken)
}

// handleChangeEmail processes the change-email form
func (c *Console) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		c.redirectProfile(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectProfile(w, r, "", "Invalid request, please try again")
		return
	}

	newEmail := r.FormValue("new_email")
	currentPassword := r.FormValue("current_password")
	if newEmail == "" || currentPassword == "" {
		c.redirectProfile(w, r, "", "Please fill in all fields.")
		return
	}

	err := c.kernel.ChangeOwnEmail(r.Context(), sess, newEmail, currentPassword)
	if err != nil {
		c.redirectProfile(w, r, "", selfServiceErrorMessage(err))
		return
	}

	c.logger.Info("main admin email changed", "id", sess.Principal.ID)
	c.redirectProfile(w, r, "Email updated successfully.", "")
}

// handleChangePassword processes the change-password form
func (c *Console) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		c.redirectProfile(w, r, "", "Invalid form data")
		return
	}
	if !c.validateCSRF(r) {
		c.redirectProfile(w, r, "", "Invalid request, please try again")
		return
	}

	newPassword := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")
	currentPassword := r.FormValue("current_password")

	if newPassword == "" || currentPassword == "" {
		c.redirectProfile(w, r, "", "Please fill in all fields.")
		return
	}
	if newPassword != confirm {
		c.redirectProfile(w, r, "", "New passwords do not match.")
		return
	}

	err := c.kernel.ChangeOwnPassword(r.Context(), sess, newPassword, currentPassword)
	if err != nil {
		c.redirectProfile(w, r, "", selfServiceErrorMessage(err))
		return
	}

	c.logger.Info("main admin password changed", "id", sess.Principal.ID)
	c.redirectProfile(w, r, "Password updated successfully.", "")
}

func (c *Console) redirectProfile(w http.ResponseWriter, r *http.Request, msg, errMsg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if errMsg != "" {
		q.Set("err", errMsg)
	}
	target := "/admin/profile"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// selfServiceErrorMessage maps self-service errors to user-facing messages.
func selfServiceErrorMessage(err error) string {
	var validation *roster.ValidationError
	switch {
	case errors.As(err, &validation):
		return "Invalid " + validation.Field + ": " + validation.Reason + "."
	case errors.Is(err, roster.ErrNotMainAdmin):
		return "Only the main admin can change account settings here."
	case errors.Is(err, roster.ErrReauthenticationFailed):
		return "Current password is incorrect."
	case errors.Is(err, roster.ErrDuplicateIdentity):
		return "An account with this email address already exists."
	case errors.Is(err, identity.ErrWeakPassword):
		return "The new password is too weak."
	default:
		return "Operation failed. Please try again."
	}
}
