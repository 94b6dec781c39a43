package http

import (
	"errors"
	"net/http"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"
	"gastos/internal/view"
)

const sessionCookie = "gastos_session"

// sessionHandler serves a request that has a live session and its workspace.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace)

// currentSession resolves the session cookie. No cookie, an unknown id or
// an expired session all yield core.ErrNotReady.
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, core.ErrNotReady
	}
	return s.sessions.Lookup(r.Context(), c.Value)
}

// protected redirects to /login unless the request carries a live session.
func (s *Server) protected(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.currentSession(r)
		if err != nil {
			if !errors.Is(err, core.ErrNotReady) {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed",
					log.NewFields().
						WithComponent(log.ComponentSession).
						WithErrorType(log.ErrorTypeDatabase).
						WithError(err).ToSlice()...)
			}
			s.clearCookie(w)
			s.toLogin(w, r)
			return
		}

		logger := log.FromContext(r.Context()).With(log.FieldSessionID, sess.ID, log.FieldUserID, sess.User.ID)
		r = r.WithContext(log.NewContext(r.Context(), logger))
		h(w, r, sess, s.workspace(sess))
	}
}

// workspace returns the session's controllers, creating them on first use.
func (s *Server) workspace(sess *session.Session) *view.Workspace {
	return s.workspaces.GetOrCreate(sess.ID, func() *view.Workspace {
		return view.NewWorkspace(s.api, s.journal, s.logger)
	})
}

func (s *Server) setCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) toLogin(w http.ResponseWriter, r *http.Request) {
	s.redirect(w, r, "/login")
}

// redirect navigates the browser, through HX-Redirect for htmx requests.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// shell fills the layout fields every signed-in page shares.
func shell(sess *session.Session, title, active string) pageData {
	d := pageData{Title: title, Active: active}
	if sess != nil {
		u := sess.User
		d.User = &u
	}
	return d
}
