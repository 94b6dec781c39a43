package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// BreakdownRow is one category in the dashboard breakdown.
type BreakdownRow struct {
	CategoryTotal
	Percent float64
}

// Breakdown holds the per-category share of total expenses. Omitted is set
// when the total is zero or negative and no share can be computed.
type Breakdown struct {
	Rows    []BreakdownRow
	Omitted bool
}

// NewBreakdown computes each category's share of totalExpenses, rounded to
// two decimals. A non-positive total yields 0 for every row.
func NewBreakdown(categories []CategoryTotal, totalExpenses Money) Breakdown {
	b := Breakdown{Rows: make([]BreakdownRow, 0, len(categories))}
	if !totalExpenses.IsPositive() {
		b.Omitted = true
	}
	for _, c := range categories {
		row := BreakdownRow{CategoryTotal: c}
		if !b.Omitted {
			row.Percent = Percent(c.Total, totalExpenses)
		}
		b.Rows = append(b.Rows, row)
	}
	return b
}

// Percent returns part/total*100 rounded to two decimals, or 0 when total
// is not positive.
func Percent(part, total Money) float64 {
	if !total.IsPositive() {
		return 0
	}
	p := part.Div(total.Decimal).Mul(hundred).Round(2)
	if p.IsNegative() {
		return 0
	}
	return p.InexactFloat64()
}

// Width is Percent clamped to [0, 100] for bar rendering.
func (r BreakdownRow) Width() float64 {
	if r.Percent > 100 {
		return 100
	}
	return r.Percent
}
