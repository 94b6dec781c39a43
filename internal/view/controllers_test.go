package view

import (
	"context"
	"errors"
	"testing"

	"gastos/internal/api"
	"gastos/internal/core"
)

func TestTransactionsDeleteThenRefetch(t *testing.T) {
	fa := newFakeAPI()
	fa.txs = []core.Transaction{
		{ID: "t1", Amount: core.MustMoney("10"), Type: core.TypeExpense, Scope: core.ScopeIndividual},
		{ID: "t2", Amount: core.MustMoney("20"), Type: core.TypeIncome, Scope: core.ScopeCouple},
	}
	j := &recordingJournal{}
	tr := NewTransactions(fa, j, nil)
	ctx := context.Background()
	sess := testSession()

	if _, err := tr.Load(ctx, sess, core.FilterAll); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := tr.Delete(ctx, sess, "t1", true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	v := tr.View()
	for _, tx := range v.Data {
		if tx.ID == "t1" {
			t.Fatal("deleted transaction still listed after refetch")
		}
	}
	if len(v.Data) != 1 || fa.count("list") != 2 {
		t.Fatalf("expected one row and two list calls, got %d rows, %d calls", len(v.Data), fa.count("list"))
	}
	if kinds := j.kinds(); len(kinds) != 1 || kinds[0] != core.ActivityTransactionDeleted {
		t.Fatalf("journal = %v", kinds)
	}
}

func TestTransactionsDeleteRequiresConfirmation(t *testing.T) {
	fa := newFakeAPI()
	fa.txs = []core.Transaction{{ID: "t1"}}
	tr := NewTransactions(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()

	if _, err := tr.Load(ctx, sess, core.FilterAll); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := tr.Delete(ctx, sess, "t1", false); err != nil {
		t.Fatalf("cancelled delete: %v", err)
	}
	if fa.count("delete") != 0 || fa.count("list") != 1 {
		t.Fatalf("cancelled delete sent requests: delete=%d list=%d", fa.count("delete"), fa.count("list"))
	}
	if len(tr.View().Data) != 1 {
		t.Fatal("cancelled delete changed state")
	}
}

func TestTransactionsDeleteRejected(t *testing.T) {
	fa := newFakeAPI()
	fa.txs = []core.Transaction{{ID: "t1"}}
	fa.fail("delete", &api.Error{Status: 403, Message: "forbidden"})
	tr := NewTransactions(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()

	_, _ = tr.Load(ctx, sess, core.FilterAll)
	err := tr.Delete(ctx, sess, "t1", true)
	if ae, ok := api.IsRemote(err); !ok || ae.Message != "forbidden" {
		t.Fatalf("expected remote error, got %v", err)
	}
	if fa.count("list") != 1 {
		t.Fatal("rejected delete must not refetch")
	}
}

func TestTransactionsFilter(t *testing.T) {
	fa := newFakeAPI()
	fa.txs = []core.Transaction{
		{ID: "t1", Scope: core.ScopeIndividual},
		{ID: "t2", Scope: core.ScopeCouple},
	}
	tr := NewTransactions(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()

	v, err := tr.Load(ctx, sess, "")
	if err != nil || v.Filter != core.FilterAll || len(v.Data) != 2 {
		t.Fatalf("Load all: filter=%q rows=%d err=%v", v.Filter, len(v.Data), err)
	}

	v, _ = tr.SetFilter(ctx, sess, core.FilterCouple)
	if v.Filter != core.FilterCouple || len(v.Data) != 1 || v.Data[0].ID != "t2" {
		t.Fatalf("couple filter: %+v", v)
	}
	_, _ = tr.SetFilter(ctx, sess, core.FilterCouple)
	if fa.count("list") != 2 {
		t.Fatalf("reselecting the same filter should not fetch, list calls = %d", fa.count("list"))
	}
}

func TestTransactionsEmpty(t *testing.T) {
	tr := NewTransactions(newFakeAPI(), nil, nil)
	v, err := tr.Load(context.Background(), testSession(), core.FilterAll)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !v.Empty() || v.Failed() {
		t.Fatalf("expected empty loaded list, got %+v", v)
	}
}

func TestCreateTransactionResetsAndRefetches(t *testing.T) {
	fa := newFakeAPI()
	j := &recordingJournal{}
	tr := NewTransactions(fa, j, nil)
	ctx := context.Background()
	sess := testSession()

	if _, err := tr.Form.Load(ctx, sess); err != nil {
		t.Fatalf("form Load: %v", err)
	}
	if _, err := tr.Load(ctx, sess, core.FilterAll); err != nil {
		t.Fatalf("Load: %v", err)
	}

	draft := TransactionDraft{Amount: "50.5", Type: "expense", Scope: "individual", CategoryID: "c1", Date: "2024-01-01", Description: "Cena"}
	created, err := tr.Create(ctx, sess, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("no id returned")
	}

	if len(fa.created) != 1 {
		t.Fatalf("create calls = %d", len(fa.created))
	}
	sent := fa.created[0]
	if sent.Amount.String() != "50.5" || sent.CoupleID != nil || sent.CategoryID != "c1" {
		t.Fatalf("unexpected request %+v", sent)
	}
	if fa.count("list") != 2 || len(tr.View().Data) != 1 {
		t.Fatalf("list not refetched: calls=%d rows=%d", fa.count("list"), len(tr.View().Data))
	}
	if d := tr.Form.View().Draft; d.Amount != "" || d.Description != "" || d.CategoryID != "" {
		t.Fatalf("draft not reset: %+v", d)
	}
	if kinds := j.kinds(); len(kinds) != 1 || kinds[0] != core.ActivityTransactionCreated {
		t.Fatalf("journal = %v", kinds)
	}
}

func TestCreateTransactionKeepsDraftOnFailure(t *testing.T) {
	fa := newFakeAPI()
	fa.fail("create", &api.Error{Status: 400, Message: "categoría inexistente"})
	tr := NewTransactions(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()
	_, _ = tr.Form.Load(ctx, sess)

	draft := TransactionDraft{Amount: "12", Type: "income", Scope: "individual", CategoryID: "zz", Date: "2024-01-01"}
	_, err := tr.Create(ctx, sess, draft)
	if ae, ok := api.IsRemote(err); !ok || ae.Message != "categoría inexistente" {
		t.Fatalf("expected remote error, got %v", err)
	}
	if got := tr.Form.View().Draft; got != draft {
		t.Fatalf("draft = %+v, want %+v", got, draft)
	}
	if fa.count("list") != 0 {
		t.Fatal("failed create must not refetch")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft TransactionDraft
		field string
	}{
		{"empty amount", TransactionDraft{Type: "expense", CategoryID: "c1", Date: "2024-01-01"}, "amount"},
		{"text amount", TransactionDraft{Amount: "abc", Type: "expense", CategoryID: "c1", Date: "2024-01-01"}, "amount"},
		{"zero amount", TransactionDraft{Amount: "0", Type: "expense", CategoryID: "c1", Date: "2024-01-01"}, "amount"},
		{"missing category", TransactionDraft{Amount: "5", Type: "expense", Date: "2024-01-01"}, "category_id"},
		{"bad date", TransactionDraft{Amount: "5", Type: "expense", CategoryID: "c1", Date: "01/01/2024"}, "date"},
		{"bad type", TransactionDraft{Amount: "5", Type: "gift", CategoryID: "c1", Date: "2024-01-01"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := newFakeAPI()
			tr := NewTransactions(fa, nil, nil)
			_, err := tr.Create(context.Background(), testSession(), tt.draft)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
			if fa.count("create") != 0 {
				t.Fatal("request sent despite validation error")
			}
		})
	}
}

func TestCoupleScopeOfferedOnlyWhenLinked(t *testing.T) {
	ctx := context.Background()
	sess := testSession()

	t.Run("unlinked", func(t *testing.T) {
		fa := newFakeAPI()
		f := NewTransactionForm(fa, nil, nil)
		v, err := f.Load(ctx, sess)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		for _, s := range v.Scopes {
			if s == core.ScopeCouple {
				t.Fatal("couple scope offered without a link")
			}
		}
		_, err = f.Submit(ctx, sess, TransactionDraft{Amount: "5", Type: "expense", Scope: "couple", CategoryID: "c1", Date: "2024-01-01"})
		if !errors.Is(err, core.ErrCoupleScopeUnavailable) {
			t.Fatalf("expected ErrCoupleScopeUnavailable, got %v", err)
		}
		if fa.count("create") != 0 {
			t.Fatal("couple transaction sent without a link")
		}
	})

	t.Run("linked", func(t *testing.T) {
		fa := newFakeAPI()
		fa.link = &core.CoupleLink{ID: "cp1"}
		f := NewTransactionForm(fa, nil, nil)
		v, err := f.Load(ctx, sess)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(v.Scopes) != 2 || v.Scopes[1] != core.ScopeCouple {
			t.Fatalf("scopes = %v", v.Scopes)
		}
		if _, err := f.Submit(ctx, sess, TransactionDraft{Amount: "5", Type: "expense", Scope: "couple", CategoryID: "c1", Date: "2024-01-01"}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if id := fa.created[0].CoupleID; id == nil || *id != "cp1" {
			t.Fatalf("couple_id = %v", id)
		}
	})
}

func TestFreshWorkspaceLoadsLinkBeforeDeciding(t *testing.T) {
	ctx := context.Background()
	sess := testSession()

	t.Run("couple transaction", func(t *testing.T) {
		fa := newFakeAPI()
		fa.link = &core.CoupleLink{ID: "cp1"}
		tr := NewTransactions(fa, nil, nil)

		draft := TransactionDraft{Amount: "12", Type: "expense", Scope: "couple", CategoryID: "c1", Date: "2024-01-01"}
		if _, err := tr.Create(ctx, sess, draft); err != nil {
			t.Fatalf("Create without a prior Load: %v", err)
		}
		if len(fa.created) != 1 {
			t.Fatalf("create calls = %d", len(fa.created))
		}
		if id := fa.created[0].CoupleID; id == nil || *id != "cp1" {
			t.Fatalf("couple_id = %v", id)
		}
		if cats := tr.Form.View().State.Data.Categories; len(cats) != 1 {
			t.Fatalf("form categories = %v", cats)
		}
	})

	t.Run("couple transaction unlinked", func(t *testing.T) {
		fa := newFakeAPI()
		tr := NewTransactions(fa, nil, nil)

		draft := TransactionDraft{Amount: "12", Type: "expense", Scope: "couple", CategoryID: "c1", Date: "2024-01-01"}
		if _, err := tr.Create(ctx, sess, draft); !errors.Is(err, core.ErrCoupleScopeUnavailable) {
			t.Fatalf("expected ErrCoupleScopeUnavailable, got %v", err)
		}
		if fa.count("create") != 0 {
			t.Fatal("couple transaction sent without a link")
		}
	})

	t.Run("link lookup fails", func(t *testing.T) {
		fa := newFakeAPI()
		fa.fail("couple", &api.TransportError{Op: "GET /couple", Err: errors.New("connection refused")})
		tr := NewTransactions(fa, nil, nil)

		draft := TransactionDraft{Amount: "12", Type: "expense", Scope: "couple", CategoryID: "c1", Date: "2024-01-01"}
		_, err := tr.Create(ctx, sess, draft)
		if !api.IsTransport(err) {
			t.Fatalf("expected the transport error, got %v", err)
		}
		if fa.count("create") != 0 {
			t.Fatal("create sent while the link was unknown")
		}
	})

	t.Run("fund", func(t *testing.T) {
		fa := newFakeAPI()
		fa.link = &core.CoupleLink{ID: "cp1"}
		c := NewCouple(fa, nil, nil)

		if err := c.Fund(ctx, sess, "20"); err != nil {
			t.Fatalf("Fund without a prior Load: %v", err)
		}
		if len(fa.funded) != 1 || fa.funded[0].String() != "20" {
			t.Fatalf("funded = %v", fa.funded)
		}
		if c.Status() != Linked {
			t.Fatalf("status = %v, want linked", c.Status())
		}
	})

	t.Run("fund unlinked", func(t *testing.T) {
		fa := newFakeAPI()
		c := NewCouple(fa, nil, nil)

		if err := c.Fund(ctx, sess, "20"); !core.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if fa.count("fund") != 0 {
			t.Fatal("fund sent without a link")
		}
	})
}

func TestFormPrereqFailure(t *testing.T) {
	fa := newFakeAPI()
	fa.fail("categories", errors.New("down"))
	f := NewTransactionForm(fa, nil, nil)
	v, err := f.Load(context.Background(), testSession())
	if err == nil || !v.Failed() {
		t.Fatalf("expected visible failure, got err=%v view=%+v", err, v.State)
	}
	if len(v.Scopes) != 1 {
		t.Fatalf("scopes on failure = %v", v.Scopes)
	}
}

func TestCoupleInviteRejectedKeepsDraft(t *testing.T) {
	fa := newFakeAPI()
	fa.fail("invite", &api.Error{Status: 400, Message: "already linked"})
	c := NewCouple(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()

	v, err := c.Load(ctx, sess)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Status != Unlinked {
		t.Fatalf("status = %v", v.Status)
	}
	fetches := fa.count("couple")

	err = c.Invite(ctx, sess, "x@example.com")
	ae, ok := api.IsRemote(err)
	if !ok || ae.Message != "already linked" {
		t.Fatalf("expected exact server message, got %v", err)
	}
	if got := c.View(sess).Draft.PartnerEmail; got != "x@example.com" {
		t.Fatalf("draft email = %q", got)
	}
	if fa.count("couple") != fetches {
		t.Fatal("rejected invite must not refetch")
	}
}

func TestCoupleInviteSuccessStaysUnlinkedUntilLinkReturned(t *testing.T) {
	fa := newFakeAPI()
	j := &recordingJournal{}
	c := NewCouple(fa, j, nil)
	ctx := context.Background()
	sess := testSession()
	_, _ = c.Load(ctx, sess)

	if err := c.Invite(ctx, sess, "luis@example.com"); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if c.Status() != Unlinked {
		t.Fatal("view must stay unlinked until a fetch returns a link")
	}
	if fa.count("couple") != 2 {
		t.Fatalf("invite should refetch once, couple calls = %d", fa.count("couple"))
	}
	if c.View(sess).Draft.PartnerEmail != "" {
		t.Fatal("draft not cleared")
	}

	fa.mu.Lock()
	fa.link = &core.CoupleLink{
		ID:    "cp1",
		User1: core.Member{FullName: "Ana", Email: "ana@example.com"},
		User2: core.Member{FullName: "Luis", Email: "luis@example.com"},
	}
	fa.mu.Unlock()

	v, err := c.Load(ctx, sess)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Status != Linked || v.Partner.FullName != "Luis" {
		t.Fatalf("status=%v partner=%+v", v.Status, v.Partner)
	}
	if kinds := j.kinds(); len(kinds) != 1 || kinds[0] != core.ActivityCoupleInvited {
		t.Fatalf("journal = %v", kinds)
	}
}

func TestCoupleInviteValidation(t *testing.T) {
	fa := newFakeAPI()
	c := NewCouple(fa, nil, nil)
	sess := testSession()

	for _, email := range []string{"", "not-an-email", "ana@example.com"} {
		if err := c.Invite(context.Background(), sess, email); !core.IsValidation(err) {
			t.Fatalf("Invite(%q): expected validation error, got %v", email, err)
		}
	}
	if fa.count("invite") != 0 {
		t.Fatal("invalid invitations sent")
	}
}

func TestCoupleFund(t *testing.T) {
	fa := newFakeAPI()
	fa.link = &core.CoupleLink{ID: "cp1", Wallet: &core.Wallet{Balance: core.MustMoney("10")}}
	c := NewCouple(fa, nil, nil)
	ctx := context.Background()
	sess := testSession()

	if _, err := c.Load(ctx, sess); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Fund(ctx, sess, "0"); !core.IsValidation(err) {
		t.Fatalf("zero amount: %v", err)
	}
	if err := c.Fund(ctx, sess, "15,5"); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if len(fa.funded) != 1 || fa.funded[0].String() != "15.5" {
		t.Fatalf("funded = %v", fa.funded)
	}
	if fa.count("couple") != 2 {
		t.Fatalf("fund should re-read the balance, couple calls = %d", fa.count("couple"))
	}
}

func TestCoupleFundRequiresLink(t *testing.T) {
	fa := newFakeAPI()
	c := NewCouple(fa, nil, nil)
	sess := testSession()
	_, _ = c.Load(context.Background(), sess)

	if err := c.Fund(context.Background(), sess, "10"); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fa.count("fund") != 0 {
		t.Fatal("fund sent without a link")
	}
}

func TestCoupleHistoryErrorIgnoredWhenUnlinked(t *testing.T) {
	fa := newFakeAPI()
	fa.fail("couple_transactions", &api.Error{Status: 404, Message: "no couple"})
	c := NewCouple(fa, nil, nil)
	v, err := c.Load(context.Background(), testSession())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Status != Unlinked || v.Data.Transactions != nil {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestCanInviteCanFund(t *testing.T) {
	tests := []struct {
		in     string
		invite bool
		fund   bool
	}{
		{"", false, false},
		{"x@example.com", true, false},
		{"10", false, true},
		{"-3", false, false},
		{"0", false, false},
	}
	for _, tt := range tests {
		if got := CanInvite(tt.in); got != tt.invite {
			t.Errorf("CanInvite(%q) = %v", tt.in, got)
		}
		if got := CanFund(tt.in); got != tt.fund {
			t.Errorf("CanFund(%q) = %v", tt.in, got)
		}
	}
}

func TestDashboardBreakdown(t *testing.T) {
	fa := newFakeAPI()
	fa.sum = core.DashboardSummary{
		Categories:    []core.CategoryTotal{{ID: "c1", Name: "Comida", Total: core.MustMoney("30")}},
		TotalExpenses: core.MustMoney("0"),
	}
	d := NewDashboard(fa, nil)
	v, err := d.Load(context.Background(), testSession())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !v.Breakdown.Omitted || v.Breakdown.Rows[0].Percent != 0 || v.Breakdown.Rows[0].Width() != 0 {
		t.Fatalf("zero total breakdown = %+v", v.Breakdown)
	}
}

type fakeSignUp struct {
	calls    int
	fullName string
	err      error
}

func (f *fakeSignUp) SignUp(_ context.Context, _, _, fullName string) error {
	f.calls++
	f.fullName = fullName
	return f.err
}

func TestRegistration(t *testing.T) {
	tests := []struct {
		name  string
		draft RegistrationDraft
		field string
	}{
		{"missing name", RegistrationDraft{Email: "a@example.com", Password: "secret1"}, "full_name"},
		{"bad email", RegistrationDraft{FullName: "Ana", Email: "nope", Password: "secret1"}, "email"},
		{"short password", RegistrationDraft{FullName: "Ana", Email: "a@example.com", Password: "12345"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			su := &fakeSignUp{}
			err := NewRegistration(su, nil).Submit(context.Background(), tt.draft)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
			if su.calls != 0 {
				t.Fatal("sign-up called despite validation error")
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		su := &fakeSignUp{}
		err := NewRegistration(su, nil).Submit(context.Background(), RegistrationDraft{FullName: " Ana ", Email: "a@example.com", Password: "secret1"})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if su.calls != 1 || su.fullName != "Ana" {
			t.Fatalf("calls=%d fullName=%q", su.calls, su.fullName)
		}
	})

	t.Run("retained draft drops password", func(t *testing.T) {
		d := RegistrationDraft{FullName: "Ana", Email: "a@example.com", Password: "secret1"}.Retained()
		if d.Password != "" || d.Email != "a@example.com" {
			t.Fatalf("Retained() = %+v", d)
		}
	})
}

func TestJournalFailureDoesNotFailAction(t *testing.T) {
	fa := newFakeAPI()
	fa.txs = []core.Transaction{{ID: "t1"}}
	tr := NewTransactions(fa, &recordingJournal{err: errors.New("queue down")}, nil)
	ctx := context.Background()
	sess := testSession()
	_, _ = tr.Load(ctx, sess, core.FilterAll)

	if err := tr.Delete(ctx, sess, "t1", true); err != nil {
		t.Fatalf("journal failure leaked into action: %v", err)
	}
}

func TestWorkspaceClose(t *testing.T) {
	w := NewWorkspace(newFakeAPI(), nil, nil)
	if w.Form() != w.Transactions.Form {
		t.Fatal("Form() should return the list's form")
	}
	w.Close()
}
