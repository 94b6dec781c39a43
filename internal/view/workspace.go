package view

import (
	"gastos/internal/log"
)

// Workspace holds one session's controllers. It lives as long as the
// session and is discarded on sign-out.
type Workspace struct {
	Dashboard    *Dashboard
	Transactions *Transactions
	Couple       *Couple
}

func NewWorkspace(api API, journal Journal, logger *log.Logger) *Workspace {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentView)
	return &Workspace{
		Dashboard:    NewDashboard(api, logger),
		Transactions: NewTransactions(api, journal, logger),
		Couple:       NewCouple(api, journal, logger),
	}
}

// Form is the transaction form shared by the list and the new page.
func (w *Workspace) Form() *TransactionForm { return w.Transactions.Form }

// Close cancels every in-flight fetch.
func (w *Workspace) Close() {
	w.Dashboard.cancel()
	w.Transactions.cancel()
	w.Couple.cancel()
}
