// ABOUTME: Template parsing and page rendering for the admin console
// ABOUTME: Templates are embedded and parsed once at startup

package webconsole

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/helmgate/helmgate/internal/roster"
	"github.com/helmgate/helmgate/internal/store"
)

//go:embed templates
var templateFS embed.FS

var (
	loginTmpl     = template.Must(template.ParseFS(templateFS, "templates/login.html"))
	dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html"))
	usersTmpl     = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/users.html", "templates/partials/users_list.html"))
	usersListTmpl = template.Must(template.ParseFS(templateFS, "templates/partials/users_list.html"))
	profileTmpl   = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/profile.html"))
)

// pageData is the common data passed to pages rendered inside the base layout.
type pageData struct {
	Title       string
	Name        string
	Email       string
	IsMainAdmin bool
	CSRFToken   string
	Message     string
	Error       string

	Users []userView
}

// userView is a display-ready roster record.
type userView struct {
	ID        string
	Name      string
	Email     string
	Mobile    string
	Blocked   bool
	IsMain    bool
	CreatedAt string
	LastLogin string
}

func (c *Console) newPageData(title string, sess *roster.Session, csrfToken string) pageData {
	d := pageData{
		Title:     title,
		CSRFToken: csrfToken,
	}
	if sess != nil {
		d.IsMainAdmin = sess.IsMainAdmin()
		d.Email = sess.Principal.Email
		if sess.Record != nil {
			d.Name = sess.Record.Name
		}
	}
	return d
}

func (c *Console) toUserViews(records []*store.RosterRecord) []userView {
	views := make([]userView, 0, len(records))
	for _, rec := range records {
		views = append(views, userView{
			ID:        rec.ID,
			Name:      rec.Name,
			Email:     rec.Email,
			Mobile:    rec.Mobile,
			Blocked:   rec.Blocked,
			IsMain:    c.kernel.IsMainAdminRecord(rec),
			CreatedAt: formatTime(rec.CreatedAt),
			LastLogin: formatTime(rec.LastLogin),
		})
	}
	return views
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func (c *Console) renderLoginPage(w http.ResponseWriter, errMsg, csrfToken string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Error     string
		CSRFToken string
	}{Error: errMsg, CSRFToken: csrfToken}
	if err := loginTmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render login page", "error", err)
	}
}

func (c *Console) renderDashboard(w http.ResponseWriter, sess *roster.Session, csrfToken string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := c.newPageData("Dashboard", sess, csrfToken)
	if err := dashboardTmpl.ExecuteTemplate(w, "base", data); err != nil {
		c.logger.Error("failed to render dashboard", "error", err)
	}
}

func (c *Console) renderUsersPage(w http.ResponseWriter, sess *roster.Session, records []*store.RosterRecord, msg, errMsg, csrfToken string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := c.newPageData("Users", sess, csrfToken)
	data.Message = msg
	data.Error = errMsg
	data.Users = c.toUserViews(records)
	if err := usersTmpl.ExecuteTemplate(w, "base", data); err != nil {
		c.logger.Error("failed to render users page", "error", err)
	}
}

func (c *Console) renderUsersList(w http.ResponseWriter, sess *roster.Session, records []*store.RosterRecord, csrfToken string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := c.newPageData("Users", sess, csrfToken)
	data.Users = c.toUserViews(records)
	if err := usersListTmpl.ExecuteTemplate(w, "users_list", data); err != nil {
		c.logger.Error("failed to render users list", "error", err)
	}
}

func (c *Console) renderProfilePage(w http.ResponseWriter, sess *roster.Session, msg, errMsg, csrfToken string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := c.newPageData("Profile", sess, csrfToken)
	data.Message = msg
	data.Error = errMsg
	if err := profileTmpl.ExecuteTemplate(w, "base", data); err != nil {
		c.logger.Error("failed to render profile page", "error", err)
	}
}
