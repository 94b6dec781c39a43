package core

import (
	"math"
	"testing"
)

func TestNewBreakdown_SumsToHundred(t *testing.T) {
	cats := []CategoryTotal{
		{ID: "c1", Name: "Comida", Total: MustMoney("33.33")},
		{ID: "c2", Name: "Casa", Total: MustMoney("33.33")},
		{ID: "c3", Name: "Ocio", Total: MustMoney("33.34")},
		{ID: "c4", Name: "Vacío", Total: MustMoney("0")},
	}
	b := NewBreakdown(cats, MustMoney("100"))
	if b.Omitted {
		t.Fatal("breakdown should not be omitted for a positive total")
	}
	var sum float64
	for _, r := range b.Rows {
		if r.Total.IsZero() {
			if r.Percent != 0 {
				t.Fatalf("zero category got %v%%", r.Percent)
			}
			continue
		}
		sum += r.Percent
	}
	if math.Abs(sum-100) > 0.05 {
		t.Fatalf("percentages sum to %v, want ~100", sum)
	}
}

func TestNewBreakdown_ZeroTotal(t *testing.T) {
	cats := []CategoryTotal{{ID: "c1", Name: "Comida", Total: MustMoney("30")}}
	b := NewBreakdown(cats, MustMoney("0"))
	if !b.Omitted {
		t.Fatal("zero total should mark the breakdown omitted")
	}
	if len(b.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(b.Rows))
	}
	r := b.Rows[0]
	if r.Percent != 0 || r.Width() != 0 {
		t.Fatalf("expected 0 percent and width, got %v / %v", r.Percent, r.Width())
	}
	if math.IsNaN(r.Percent) || math.IsInf(r.Percent, 0) {
		t.Fatal("percent must be finite")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, total string
		want        float64
	}{
		{"half", "50", "100", 50},
		{"third", "1", "3", 33.33},
		{"zero total", "30", "0", 0},
		{"negative total", "30", "-10", 0},
		{"over total", "150", "100", 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(MustMoney(tt.part), MustMoney(tt.total)); got != tt.want {
				t.Errorf("Percent(%s, %s) = %v, want %v", tt.part, tt.total, got, tt.want)
			}
		})
	}
	if w := (BreakdownRow{Percent: 150}).Width(); w != 100 {
		t.Errorf("width should clamp to 100, got %v", w)
	}
}
