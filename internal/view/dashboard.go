package view

import (
	"context"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"
)

// DashboardView is what the dashboard page renders.
type DashboardView struct {
	State[core.DashboardSummary]
	Breakdown core.Breakdown
}

type Dashboard struct {
	summary *Resource[struct{}, core.DashboardSummary]
}

func NewDashboard(api API, logger *log.Logger) *Dashboard {
	fetch := func(ctx context.Context, sess *session.Session, _ struct{}) (core.DashboardSummary, error) {
		return api.Dashboard(ctx, sess.Token)
	}
	return &Dashboard{summary: NewResource("dashboard", fetch, logger)}
}

// Load fetches the summary as the page opens.
func (d *Dashboard) Load(ctx context.Context, sess *session.Session) (DashboardView, error) {
	st, err := d.summary.Mount(ctx, sess, struct{}{})
	return dashboardView(st), err
}

func (d *Dashboard) View() DashboardView {
	return dashboardView(d.summary.State())
}

func (d *Dashboard) cancel() { d.summary.Cancel() }

func dashboardView(st State[core.DashboardSummary]) DashboardView {
	v := DashboardView{State: st}
	if st.Loaded {
		v.Breakdown = core.NewBreakdown(st.Data.Categories, st.Data.TotalExpenses)
	}
	return v
}
