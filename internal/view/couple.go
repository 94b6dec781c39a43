package view

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"

	"golang.org/x/sync/errgroup"
)

// LinkState is the couple view's state. There is no pending-invite state:
// after a successful invitation the view stays Unlinked until a fetch
// returns a link.
type LinkState int

const (
	Unlinked LinkState = iota
	Linked
)

func (s LinkState) String() string {
	if s == Linked {
		return "linked"
	}
	return "unlinked"
}

// CoupleData is the couple snapshot: the link and, when linked, the shared
// transaction history.
type CoupleData struct {
	Link         *core.CoupleLink
	Transactions []core.Transaction
}

// CoupleDraft holds the invitation and funding inputs.
type CoupleDraft struct {
	PartnerEmail string
	FundAmount   string
}

// CoupleView is what the couple page renders.
type CoupleView struct {
	State[CoupleData]
	Status    LinkState
	Partner   core.Member
	Draft     CoupleDraft
	CanInvite bool
	CanFund   bool
	Inviting  bool
	Funding   bool
}

type Couple struct {
	api     API
	journal Journal
	logger  *log.Logger

	data   *Resource[struct{}, CoupleData]
	invite Action
	fund   Action

	mu    sync.Mutex
	draft CoupleDraft
}

func NewCouple(api API, journal Journal, logger *log.Logger) *Couple {
	if journal == nil {
		journal = NopJournal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	c := &Couple{api: api, journal: journal, logger: logger}
	c.data = NewResource("couple", c.fetch, logger)
	return c
}

// fetch loads the link and the couple history concurrently. The history is
// only meaningful when linked, so its error is ignored otherwise.
func (c *Couple) fetch(ctx context.Context, sess *session.Session, _ struct{}) (CoupleData, error) {
	var (
		out   CoupleData
		txErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		link, err := c.api.Couple(gctx, sess.Token)
		out.Link = link
		return err
	})
	g.Go(func() error {
		out.Transactions, txErr = c.api.CoupleTransactions(gctx, sess.Token)
		return nil
	})
	if err := g.Wait(); err != nil {
		return CoupleData{}, err
	}
	if out.Link == nil {
		out.Transactions = nil
		return out, nil
	}
	if txErr != nil {
		return CoupleData{}, txErr
	}
	return out, nil
}

// Load fetches the couple snapshot as the page opens.
func (c *Couple) Load(ctx context.Context, sess *session.Session) (CoupleView, error) {
	_, err := c.data.Mount(ctx, sess, struct{}{})
	return c.View(sess), err
}

func (c *Couple) View(sess *session.Session) CoupleView {
	st := c.data.State()
	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()

	v := CoupleView{
		State:     st,
		Draft:     draft,
		CanInvite: CanInvite(draft.PartnerEmail),
		CanFund:   CanFund(draft.FundAmount),
		Inviting:  c.invite.InFlight(),
		Funding:   c.fund.InFlight(),
	}
	if st.Data.Link != nil {
		v.Status = Linked
		if sess != nil {
			v.Partner = core.Counterpart(st.Data.Link, sess.User.Email)
		}
	}
	return v
}

// Status is derived from the last good snapshot.
func (c *Couple) Status() LinkState {
	if c.data.State().Data.Link != nil {
		return Linked
	}
	return Unlinked
}

// CanInvite reports whether the invitation control is enabled.
func CanInvite(email string) bool {
	return core.ValidEmail(strings.TrimSpace(email))
}

// CanFund reports whether the funding control is enabled.
func CanFund(amount string) bool {
	_, err := core.ParseAmount(amount)
	return err == nil
}

// Invite sends a couple invitation. On rejection the email stays in the
// draft and nothing is refetched.
func (c *Couple) Invite(ctx context.Context, sess *session.Session, email string) error {
	if err := session.Ready(sess); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	c.setDraft(func(d *CoupleDraft) { d.PartnerEmail = email })

	if !CanInvite(email) {
		return &core.ValidationError{Field: "partner_email", Message: "Ingresa un email válido"}
	}
	if strings.EqualFold(email, sess.User.Email) {
		return &core.ValidationError{Field: "partner_email", Message: "No puedes invitarte a ti mismo"}
	}

	err := c.invite.Run(ctx, func(ctx context.Context) error {
		return c.api.Invite(ctx, sess.Token, email)
	})
	if err != nil {
		c.logFailure(ctx, sess, "invite", err)
		return err
	}

	c.setDraft(func(d *CoupleDraft) { d.PartnerEmail = "" })
	record(ctx, c.logger, c.journal, core.NewActivity(core.ActivityCoupleInvited, sess.User, core.Money{}, email))
	c.resync(ctx, sess)
	return nil
}

// Fund adds amount to the shared wallet and re-reads the balance.
func (c *Couple) Fund(ctx context.Context, sess *session.Session, amount string) error {
	if err := session.Ready(sess); err != nil {
		return err
	}
	c.setDraft(func(d *CoupleDraft) { d.FundAmount = amount })

	m, err := core.ParseAmount(amount)
	if err != nil {
		return &core.ValidationError{Field: "amount", Message: "Ingresa un monto válido mayor a 0"}
	}
	if !c.data.State().Loaded {
		if _, err := c.data.Mount(ctx, sess, struct{}{}); err != nil && !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
	link := c.data.State().Data.Link
	if link == nil {
		return &core.ValidationError{Field: "amount", Message: "Necesitas vincular a tu pareja para usar la billetera compartida"}
	}

	err = c.fund.Run(ctx, func(ctx context.Context) error {
		return c.api.FundWallet(ctx, sess.Token, m)
	})
	if err != nil {
		c.logFailure(ctx, sess, "fund_wallet", err)
		return err
	}

	c.setDraft(func(d *CoupleDraft) { d.FundAmount = "" })
	record(ctx, c.logger, c.journal, core.NewActivity(core.ActivityWalletFunded, sess.User, m, link.ID))
	c.resync(ctx, sess)
	return nil
}

func (c *Couple) resync(ctx context.Context, sess *session.Session) {
	if _, err := c.data.Reload(ctx, sess); err != nil && !Ignorable(err) {
		c.logger.WarnContext(ctx, "Resync after write failed",
			log.NewFields().WithSession(sess.ID, sess.User.ID).WithError(err).ToSlice()...)
	}
}

func (c *Couple) logFailure(ctx context.Context, sess *session.Session, action string, err error) {
	if errors.Is(err, ErrBusy) {
		return
	}
	c.logger.WarnContext(ctx, "Couple action failed",
		log.NewFields().WithSession(sess.ID, sess.User.ID).WithAction(action).WithError(err).ToSlice()...)
}

func (c *Couple) setDraft(fn func(*CoupleDraft)) {
	c.mu.Lock()
	fn(&c.draft)
	c.mu.Unlock()
}

func (c *Couple) cancel() { c.data.Cancel() }
