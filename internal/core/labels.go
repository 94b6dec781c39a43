package core

import "strings"

// Badge is a display label with its style class.
type Badge struct {
	Label string
	Class string
}

func ScopeBadge(s Scope) Badge {
	if s == ScopeCouple {
		return Badge{Label: "Pareja", Class: "badge-couple"}
	}
	return Badge{Label: "Solo yo", Class: "badge-individual"}
}

// TypeBadge maps the transaction type to its sign and amount style.
func TypeBadge(t TransactionType) Badge {
	if t == TypeIncome {
		return Badge{Label: "+", Class: "amount-income"}
	}
	return Badge{Label: "-", Class: "amount-expense"}
}

func FilterLabel(f ScopeFilter) string {
	switch f {
	case FilterIndividual:
		return "Individuales"
	case FilterCouple:
		return "Pareja"
	default:
		return "Todas"
	}
}

// Counterpart returns the linked member who is not the current user,
// comparing emails case-insensitively.
func Counterpart(link *CoupleLink, currentEmail string) Member {
	if link == nil {
		return Member{}
	}
	if strings.EqualFold(strings.TrimSpace(link.User1.Email), strings.TrimSpace(currentEmail)) {
		return link.User2
	}
	return link.User1
}
