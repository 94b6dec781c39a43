package view

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/session"
)

type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	txs    []core.Transaction
	cats   []core.Category
	link   *core.CoupleLink
	couple []core.Transaction
	sum    core.DashboardSummary
	errs   map[string]error
	nextID int

	created []core.NewTransaction
	invited []string
	funded  []core.Money
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		errs:  map[string]error{},
		cats:  []core.Category{{ID: "c1", Name: "Comida", Icon: "🍔"}},
	}
}

func (f *fakeAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) Dashboard(context.Context, string) (core.DashboardSummary, error) {
	if err := f.hit("dashboard"); err != nil {
		return core.DashboardSummary{}, err
	}
	return f.sum, nil
}

func (f *fakeAPI) ListTransactions(_ context.Context, _ string, filter core.ScopeFilter) ([]core.Transaction, error) {
	if err := f.hit("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range f.txs {
		if filter.Query() == "" || string(tx.Scope) == filter.Query() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateTransaction(_ context.Context, _ string, tx core.NewTransaction) (core.Transaction, error) {
	if err := f.hit("create"); err != nil {
		return core.Transaction{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := core.Transaction{
		ID:         "t" + strconv.Itoa(f.nextID),
		Amount:     tx.Amount,
		Type:       tx.Type,
		Scope:      tx.Scope,
		Date:       tx.Date,
		CategoryID: tx.CategoryID,
	}
	f.created = append(f.created, tx)
	f.txs = append(f.txs, created)
	return created, nil
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, _ string, id string) error {
	if err := f.hit("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.txs[:0]
	for _, tx := range f.txs {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	f.txs = kept
	return nil
}

func (f *fakeAPI) Categories(context.Context, string) ([]core.Category, error) {
	if err := f.hit("categories"); err != nil {
		return nil, err
	}
	return f.cats, nil
}

func (f *fakeAPI) Couple(context.Context, string) (*core.CoupleLink, error) {
	if err := f.hit("couple"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.link, nil
}

func (f *fakeAPI) CoupleTransactions(context.Context, string) ([]core.Transaction, error) {
	if err := f.hit("couple_transactions"); err != nil {
		return nil, err
	}
	return f.couple, nil
}

func (f *fakeAPI) Invite(_ context.Context, _ string, email string) error {
	if err := f.hit("invite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invited = append(f.invited, email)
	return nil
}

func (f *fakeAPI) FundWallet(_ context.Context, _ string, amount core.Money) error {
	if err := f.hit("fund"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funded = append(f.funded, amount)
	return nil
}

type recordingJournal struct {
	mu   sync.Mutex
	acts []core.Activity
	err  error
}

func (j *recordingJournal) Record(_ context.Context, a core.Activity) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.acts = append(j.acts, a)
	return j.err
}

func (j *recordingJournal) kinds() []core.ActivityKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []core.ActivityKind
	for _, a := range j.acts {
		out = append(out, a.Kind)
	}
	return out
}

func testSession() *session.Session {
	return session.New("s1", "tok", core.User{ID: "u1", Email: "ana@example.com", FullName: "Ana"}, time.Now().Add(time.Hour))
}
