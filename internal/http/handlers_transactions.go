package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"
	"gastos/internal/view"
)

// deleteView is what the confirmation page renders.
type deleteView struct {
	Transaction core.Transaction
}

// handleTransactions opens the list. A full navigation always refetches;
// an htmx filter switch refetches only when the filter changed.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	filter := parseScopeFilter(r.URL.Query())

	data := shell(sess, "Transacciones", "transactions")
	if isHTMX(r) {
		v, err := ws.Transactions.SetFilter(r.Context(), sess, filter)
		if errors.Is(err, core.ErrNotReady) {
			s.toLogin(w, r)
			return
		}
		data.View = v
		s.renderFragment(w, r, "transactions", "transactions-list", data, NewHTMXResponse())
		return
	}

	v, err := ws.Transactions.Load(r.Context(), sess, filter)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}
	data.View = v
	s.renderPage(w, r, "transactions", http.StatusOK, data)
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	v, err := ws.Form().Load(r.Context(), sess)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}
	data := shell(sess, "Nueva transacción", "transactions")
	data.View = v
	s.renderPage(w, r, "transaction_new", http.StatusOK, data)
}

// handleCreateTransaction submits the form. On failure the form comes back
// with the draft intact and the error inline; on success it comes back
// reset.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}

	form := ws.Form()
	created, err := ws.Transactions.Create(r.Context(), sess, parseTransactionDraft(p))
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}

	data := shell(sess, "Nueva transacción", "transactions")
	data.View = form.View()
	if err != nil {
		data = data.withError(err)
		status := errorStatus(err)
		if isHTMX(r) {
			s.renderFragment(w, r, "transaction_new", "transaction-form", data, NewHTMXResponse().Status(status))
			return
		}
		s.renderPage(w, r, "transaction_new", status, data)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.NewFields().WithOperation(log.OpCreate).With("transaction_id", created.ID).ToSlice()...)

	if !isHTMX(r) {
		s.redirect(w, r, "/transactions")
		return
	}
	s.renderFragment(w, r, "transaction_new", "transaction-form", data, NewHTMXResponse().
		TriggerTransactionCreated(created.ID, string(created.Scope)).
		TriggerFormReset().
		TriggerSuccessNotification("Transacción guardada"))
}

// handleConfirmDelete shows the confirmation step. The transaction comes
// from the list snapshot, loading it when the list was never opened.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	id := r.PathValue("id")
	tx, ok := ws.Transactions.Find(id)
	if !ok {
		_, err := ws.Transactions.Load(r.Context(), sess, ws.Transactions.View().Filter)
		if errors.Is(err, core.ErrNotReady) {
			s.toLogin(w, r)
			return
		}
		tx, ok = ws.Transactions.Find(id)
	}

	data := shell(sess, "Eliminar transacción", "transactions")
	if !ok {
		data.Error = "Transacción no encontrada"
		data.View = deleteView{}
		s.renderPage(w, r, "transaction_delete", http.StatusNotFound, data)
		return
	}
	data.View = deleteView{Transaction: tx}
	s.renderPage(w, r, "transaction_delete", http.StatusOK, data)
}

// handleDeleteTransaction deletes only on an explicit confirmation. The
// list is refetched, never patched.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session, ws *view.Workspace) {
	id := r.PathValue("id")
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	if !confirmed(p) {
		s.redirect(w, r, "/transactions")
		return
	}

	tx, _ := ws.Transactions.Find(id)
	err := ws.Transactions.Delete(r.Context(), sess, id, true)
	if errors.Is(err, core.ErrNotReady) {
		s.toLogin(w, r)
		return
	}
	if err != nil {
		if isHTMX(r) {
			ErrorResponse(errorStatus(err), userMessage(err)).
				Header("HX-Reswap", "none").
				TriggerErrorNotification(userMessage(err)).
				Write(w)
			return
		}
		data := shell(sess, "Eliminar transacción", "transactions").withError(err)
		if tx.ID == "" {
			tx.ID = id
		}
		data.View = deleteView{Transaction: tx}
		s.renderPage(w, r, "transaction_delete", errorStatus(err), data)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.NewFields().WithOperation(log.OpDelete).With("transaction_id", id).ToSlice()...)
	if !isHTMX(r) {
		s.redirect(w, r, "/transactions")
		return
	}
	data := shell(sess, "Transacciones", "transactions")
	data.View = ws.Transactions.View()
	s.renderFragment(w, r, "transactions", "transactions-list", data, NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transacción eliminada"))
}
