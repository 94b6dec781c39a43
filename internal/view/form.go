package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"

	"golang.org/x/sync/errgroup"
)

// TransactionDraft is the form as the user typed it.
type TransactionDraft struct {
	Amount      string
	Type        string
	Scope       string
	CategoryID  string
	Description string
	Date        string
}

// NewDraft returns an empty expense draft dated today.
func NewDraft(today time.Time) TransactionDraft {
	return TransactionDraft{
		Type:  string(core.TypeExpense),
		Scope: string(core.ScopeIndividual),
		Date:  today.Format(core.DateLayout),
	}
}

// FormPrereqs is the reference data the form needs before it can render.
type FormPrereqs struct {
	Categories []core.Category
	Couple     *core.CoupleLink
}

// FormView is what the transaction form renders.
type FormView struct {
	State[FormPrereqs]
	Draft      TransactionDraft
	Scopes     []core.Scope
	Submitting bool
}

// TransactionForm produces create-transaction requests.
type TransactionForm struct {
	api     API
	journal Journal
	logger  *log.Logger
	now     func() time.Time

	prereqs *Resource[struct{}, FormPrereqs]
	submit  Action

	mu    sync.Mutex
	draft TransactionDraft
}

func NewTransactionForm(api API, journal Journal, logger *log.Logger) *TransactionForm {
	if journal == nil {
		journal = NopJournal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	f := &TransactionForm{
		api:     api,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
	f.draft = NewDraft(f.now())
	f.prereqs = NewResource("transaction_form", f.fetchPrereqs, logger)
	return f
}

func (f *TransactionForm) fetchPrereqs(ctx context.Context, sess *session.Session, _ struct{}) (FormPrereqs, error) {
	var out FormPrereqs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := f.api.Categories(gctx, sess.Token)
		out.Categories = cats
		return err
	})
	g.Go(func() error {
		link, err := f.api.Couple(gctx, sess.Token)
		out.Couple = link
		return err
	})
	if err := g.Wait(); err != nil {
		return FormPrereqs{}, err
	}
	return out, nil
}

// Load fetches categories and the couple link as the form opens.
func (f *TransactionForm) Load(ctx context.Context, sess *session.Session) (FormView, error) {
	_, err := f.prereqs.Mount(ctx, sess, struct{}{})
	return f.View(), err
}

func (f *TransactionForm) View() FormView {
	st := f.prereqs.State()
	f.mu.Lock()
	draft := f.draft
	f.mu.Unlock()
	return FormView{
		State:      st,
		Draft:      draft,
		Scopes:     scopeOptions(st),
		Submitting: f.submit.InFlight(),
	}
}

// scopeOptions offers the couple scope only when a link is known to exist.
func scopeOptions(st State[FormPrereqs]) []core.Scope {
	if st.Loaded && st.Data.Couple != nil {
		return []core.Scope{core.ScopeIndividual, core.ScopeCouple}
	}
	return []core.Scope{core.ScopeIndividual}
}

// Build turns a draft into a request, enforcing the couple-scope rule.
func (f *TransactionForm) Build(d TransactionDraft) (core.NewTransaction, error) {
	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.NewTransaction{}, &core.ValidationError{Field: "amount", Message: "Ingresa un monto válido mayor a 0"}
	}
	tx := core.NewTransaction{
		Amount:      amount,
		Type:        core.TransactionType(strings.TrimSpace(d.Type)),
		Scope:       core.Scope(strings.TrimSpace(d.Scope)),
		CategoryID:  strings.TrimSpace(d.CategoryID),
		Description: strings.TrimSpace(d.Description),
		Date:        strings.TrimSpace(d.Date),
	}
	if tx.Scope == "" {
		tx.Scope = core.ScopeIndividual
	}
	if tx.Scope == core.ScopeCouple {
		st := f.prereqs.State()
		if !st.Loaded || st.Data.Couple == nil {
			return core.NewTransaction{}, core.ErrCoupleScopeUnavailable
		}
		id := st.Data.Couple.ID
		tx.CoupleID = &id
	}
	if err := tx.Validate(); err != nil {
		return core.NewTransaction{}, err
	}
	return tx, nil
}

// Submit validates and creates the transaction. The draft is kept on any
// failure and reset on success.
func (f *TransactionForm) Submit(ctx context.Context, sess *session.Session, d TransactionDraft) (core.Transaction, error) {
	if err := session.Ready(sess); err != nil {
		return core.Transaction{}, err
	}

	f.mu.Lock()
	f.draft = d
	f.mu.Unlock()

	// A fresh workspace has not seen the link yet; unknown is not unlinked.
	if !f.prereqs.State().Loaded {
		_, err := f.prereqs.Mount(ctx, sess, struct{}{})
		if err != nil && !errors.Is(err, ErrSuperseded) && core.Scope(strings.TrimSpace(d.Scope)) == core.ScopeCouple {
			return core.Transaction{}, err
		}
	}

	tx, err := f.Build(d)
	if err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err = f.submit.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = f.api.CreateTransaction(ctx, sess.Token, tx)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			f.logger.WarnContext(ctx, "Create transaction failed",
				log.NewFields().WithSession(sess.ID, sess.User.ID).WithAction("create_transaction").WithError(err).ToSlice()...)
		}
		return core.Transaction{}, err
	}

	f.Reset()
	record(ctx, f.logger, f.journal, core.NewActivity(core.ActivityTransactionCreated, sess.User, tx.Amount, created.ID))
	return created, nil
}

// Reset clears the draft.
func (f *TransactionForm) Reset() {
	f.mu.Lock()
	f.draft = NewDraft(f.now())
	f.mu.Unlock()
}

func (f *TransactionForm) cancel() { f.prereqs.Cancel() }
