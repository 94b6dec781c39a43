package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"gastos/internal/core"
	"gastos/internal/session"
	"gastos/internal/view"
)

func (s *Server) handleCouple(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	v, err := ws.Couple.Load(r.Context(), sess)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}
	data := shell(sess, "Pareja", "couple")
	data.View = v
	if isHTMX(r) {
		s.renderFragment(w, r, "couple", "couple-panel", data, NewHTMXResponse())
		return
	}
	s.renderPage(w, r, "couple", http.StatusOK, data)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	s.coupleAction(w, r, sess, ws, "Invitación enviada", &s.appMetrics.invitations,
		func(p *RequestBodyParser) error {
			return ws.Couple.Invite(r.Context(), sess, p.Get("partner_email"))
		})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	s.coupleAction(w, r, sess, ws, "Saldo recargado", &s.appMetrics.walletFunds,
		func(p *RequestBodyParser) error {
			return ws.Couple.Fund(r.Context(), sess, p.Get("amount"))
		})
}

// coupleAction runs one couple write and re-renders the panel. A rejected
// write shows the server's message and keeps what the user typed.
func (s *Server) coupleAction(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace,
	success string, counter *int64, run func(*RequestBodyParser) error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}

	err := run(p)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}

	data := shell(sess, "Pareja", "couple")
	data.View = ws.Couple.View(sess)
	if err != nil {
		data = data.withError(err)
		status := errorStatus(err)
		if isHTMX(r) {
			s.renderFragment(w, r, "couple", "couple-panel", data, NewHTMXResponse().Status(status))
			return
		}
		s.renderPage(w, r, "couple", status, data)
		return
	}

	atomic.AddInt64(counter, 1)
	if !isHTMX(r) {
		s.redirect(w, r, "/couple")
		return
	}
	s.renderFragment(w, r, "couple", "couple-panel", data, NewHTMXResponse().
		TriggerCoupleUpdated().
		TriggerSuccessNotification(success))
}
