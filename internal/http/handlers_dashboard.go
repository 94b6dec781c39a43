package http

import (
	"errors"
	"net/http"

	"gastos/internal/core"
	"gastos/internal/session"
	"gastos/internal/view"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	v, err := ws.Dashboard.Load(r.Context(), sess)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}

	data := shell(sess, "Dashboard", "dashboard")
	data.View = v
	if isHTMX(r) {
		s.renderFragment(w, r, "dashboard", "dashboard-summary", data, NewHTMXResponse())
		return
	}
	s.renderPage(w, r, "dashboard", http.StatusOK, data)
}
