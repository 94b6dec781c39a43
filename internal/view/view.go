// Package view holds the per-session view controllers. Each controller owns
// one snapshot of server state, replaces it wholesale on every successful
// read and re-reads after every successful write.
package view

import (
	"context"
	"errors"

	"gastos/internal/core"
	"gastos/internal/log"
)

var (
	// ErrBusy rejects a submission while the same action is in flight.
	ErrBusy = errors.New("action already in progress")

	// ErrSuperseded is returned to a caller whose fetch was overtaken by a
	// newer one. Its result was discarded.
	ErrSuperseded = errors.New("fetch superseded")
)

// API is the remote API surface the controllers consume.
type API interface {
	Dashboard(ctx context.Context, token string) (core.DashboardSummary, error)
	ListTransactions(ctx context.Context, token string, filter core.ScopeFilter) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, token string, tx core.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, token, id string) error
	Categories(ctx context.Context, token string) ([]core.Category, error)
	Couple(ctx context.Context, token string) (*core.CoupleLink, error)
	CoupleTransactions(ctx context.Context, token string) ([]core.Transaction, error)
	Invite(ctx context.Context, token, partnerEmail string) error
	FundWallet(ctx context.Context, token string, amount core.Money) error
}

// Journal records writes the remote API accepted.
type Journal interface {
	Record(ctx context.Context, a core.Activity) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, core.Activity) error { return nil }

// NopJournal discards every activity.
func NopJournal() Journal { return nopJournal{} }

// record hands a to the journal. Failures never fail the user's action.
func record(ctx context.Context, logger *log.Logger, j Journal, a core.Activity) {
	if err := j.Record(context.WithoutCancel(ctx), a); err != nil {
		logger.WarnContext(ctx, "Failed to journal activity",
			log.NewFields().WithActivity(a.ID, string(a.Kind)).WithError(err).ToSlice()...)
	}
}

// Ignorable reports errors a page handler renders through rather than
// reporting: a missing session or a fetch overtaken by a newer one.
func Ignorable(err error) bool {
	return errors.Is(err, core.ErrNotReady) || errors.Is(err, ErrSuperseded)
}
