package view

import (
	"context"
	"errors"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"
)

// TransactionsView is what the list page renders.
type TransactionsView struct {
	State[[]core.Transaction]
	Filter   core.ScopeFilter
	Deleting bool
}

// Empty reports a loaded list with nothing in it.
func (v TransactionsView) Empty() bool { return v.Loaded && len(v.Data) == 0 }

// Transactions is the list view. Creating and deleting resync the list.
type Transactions struct {
	api     API
	journal Journal
	logger  *log.Logger

	list *Resource[core.ScopeFilter, []core.Transaction]
	del  Action
	Form *TransactionForm
}

func NewTransactions(api API, journal Journal, logger *log.Logger) *Transactions {
	if journal == nil {
		journal = NopJournal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	fetch := func(ctx context.Context, sess *session.Session, f core.ScopeFilter) ([]core.Transaction, error) {
		return api.ListTransactions(ctx, sess.Token, f)
	}
	return &Transactions{
		api:     api,
		journal: journal,
		logger:  logger,
		list:    NewResource("transactions", fetch, logger),
		Form:    NewTransactionForm(api, journal, logger),
	}
}

// Load fetches the list as the page opens.
func (t *Transactions) Load(ctx context.Context, sess *session.Session, filter core.ScopeFilter) (TransactionsView, error) {
	_, err := t.list.Mount(ctx, sess, normalizeFilter(filter))
	return t.View(), err
}

// SetFilter switches the filter. Selecting the current filter again issues
// no request.
func (t *Transactions) SetFilter(ctx context.Context, sess *session.Session, filter core.ScopeFilter) (TransactionsView, error) {
	_, err := t.list.Bind(ctx, sess, normalizeFilter(filter))
	return t.View(), err
}

func (t *Transactions) View() TransactionsView {
	return TransactionsView{
		State:    t.list.State(),
		Filter:   normalizeFilter(t.list.Key()),
		Deleting: t.del.InFlight(),
	}
}

// Find looks id up in the current snapshot.
func (t *Transactions) Find(id string) (core.Transaction, bool) {
	for _, tx := range t.list.State().Data {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

// Create submits the form and refetches the list on success.
func (t *Transactions) Create(ctx context.Context, sess *session.Session, d TransactionDraft) (core.Transaction, error) {
	created, err := t.Form.Submit(ctx, sess, d)
	if err != nil {
		return core.Transaction{}, err
	}
	t.resync(ctx, sess)
	return created, nil
}

// Delete removes a transaction. Nothing is sent unless confirmed.
func (t *Transactions) Delete(ctx context.Context, sess *session.Session, id string, confirmed bool) error {
	if err := session.Ready(sess); err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	if id == "" {
		return &core.ValidationError{Field: "id", Message: "Transacción inválida"}
	}

	var amount core.Money
	if tx, ok := t.Find(id); ok {
		amount = tx.Amount
	}

	err := t.del.Run(ctx, func(ctx context.Context) error {
		return t.api.DeleteTransaction(ctx, sess.Token, id)
	})
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			t.logger.WarnContext(ctx, "Delete transaction failed",
				log.NewFields().WithSession(sess.ID, sess.User.ID).WithAction("delete_transaction").WithError(err).ToSlice()...)
		}
		return err
	}

	record(ctx, t.logger, t.journal, core.NewActivity(core.ActivityTransactionDeleted, sess.User, amount, id))
	t.resync(ctx, sess)
	return nil
}

// resync refetches after a successful write. A failed refetch marks the
// list stale; the write itself already succeeded.
func (t *Transactions) resync(ctx context.Context, sess *session.Session) {
	if _, err := t.list.Reload(ctx, sess); err != nil && !Ignorable(err) {
		t.logger.WarnContext(ctx, "Resync after write failed",
			log.NewFields().WithSession(sess.ID, sess.User.ID).WithError(err).ToSlice()...)
	}
}

func (t *Transactions) cancel() {
	t.list.Cancel()
	t.Form.cancel()
}

func normalizeFilter(f core.ScopeFilter) core.ScopeFilter {
	return core.ParseScopeFilter(string(f))
}
