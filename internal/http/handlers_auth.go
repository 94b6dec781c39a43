package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/view"
)

const flashRegistered = "Cuenta creada. Revisa tu correo para confirmarla e inicia sesión."

type loginForm struct {
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentSession(r); err == nil {
		s.redirect(w, r, "/dashboard")
		return
	}
	data := pageData{Title: "Iniciar sesión", View: loginForm{}}
	if r.URL.Query().Get("registered") == "1" {
		data.Flash = flashRegistered
	}
	s.renderPage(w, r, "login", http.StatusOK, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderPage(w, r, "login", http.StatusBadRequest, pageData{
			Title: "Iniciar sesión", View: loginForm{}, Error: "Formato de solicitud inválido",
		})
		return
	}

	form := loginForm{Email: p.Get("email")}
	sess, err := s.sessions.SignIn(r.Context(), form.Email, p.Raw("password"))
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Sign-in failed",
			log.NewFields().
				WithComponent(log.ComponentAuth).
				WithOperation(log.OpSignIn).
				WithErrorType(errorType(err)).
				WithError(err).ToSlice()...)
		data := pageData{Title: "Iniciar sesión", View: form}.withError(err)
		s.renderPage(w, r, "login", errorStatus(err), data)
		return
	}

	atomic.AddInt64(&s.appMetrics.signIns, 1)
	s.setCookie(w, sess)
	s.redirect(w, r, "/dashboard")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "register", http.StatusOK, pageData{
		Title: "Crear cuenta",
		View:  view.RegistrationDraft{},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderPage(w, r, "register", http.StatusBadRequest, pageData{
			Title: "Crear cuenta", View: view.RegistrationDraft{}, Error: "Formato de solicitud inválido",
		})
		return
	}

	draft := parseRegistrationDraft(p)
	if err := s.registration.Submit(r.Context(), draft); err != nil {
		data := pageData{Title: "Crear cuenta", View: draft.Retained()}.withError(err)
		s.renderPage(w, r, "register", errorStatus(err), data)
		return
	}
	s.redirect(w, r, "/login?registered=1")
}

// handleLogout always clears the cookie, even when the provider call fails.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := s.sessions.SignOut(r.Context(), c.Value); err != nil && !errors.Is(err, core.ErrNotReady) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Sign-out failed",
				log.NewFields().
					WithComponent(log.ComponentSession).
					WithOperation(log.OpSignOut).
					WithError(err).ToSlice()...)
		}
	}
	s.clearCookie(w)
	s.toLogin(w, r)
}
