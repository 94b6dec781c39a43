package core

import (
	"strings"
	"time"
)

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"

	ScopeIndividual Scope = "individual"
	ScopeCouple     Scope = "couple"

	FilterAll        ScopeFilter = "all"
	FilterIndividual ScopeFilter = "individual"
	FilterCouple     ScopeFilter = "couple"
)

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Scope attributes a transaction to the user or to the shared couple wallet.
	Scope string

	// ScopeFilter selects which transactions the list view shows.
	ScopeFilter string

	User struct {
		ID       string
		Email    string
		FullName string
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	// CategoryRef is the category embedded in a transaction row.
	CategoryRef struct {
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	Profile struct {
		FullName string `json:"full_name"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Scope       Scope           `json:"scope"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
		CategoryID  string          `json:"category_id,omitempty"`
		UserID      string          `json:"user_id,omitempty"`
		CoupleID    *string         `json:"couple_id,omitempty"`
		Category    *CategoryRef    `json:"categories,omitempty"`
		Author      *Profile        `json:"profiles,omitempty"`
	}

	// NewTransaction is the create request body. CoupleID encodes as null
	// for individual transactions.
	NewTransaction struct {
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Scope       Scope           `json:"scope"`
		CategoryID  string          `json:"category_id"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
		CoupleID    *string         `json:"couple_id"`
	}

	Member struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}

	Wallet struct {
		Balance Money `json:"balance"`
	}

	// CoupleLink joins two accounts and their shared wallet. A nil link
	// means the user is not linked.
	CoupleLink struct {
		ID     string  `json:"id"`
		User1  Member  `json:"user1"`
		User2  Member  `json:"user2"`
		Wallet *Wallet `json:"couple_wallets"`
	}

	CategoryTotal struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Total Money  `json:"total"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	DashboardSummary struct {
		Categories    []CategoryTotal `json:"categories"`
		TotalExpenses Money           `json:"totalExpenses"`
		TotalIncome   Money           `json:"totalIncome"`
		Balance       Money           `json:"balance"`
	}
)

func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

func (s Scope) Valid() bool {
	return s == ScopeIndividual || s == ScopeCouple
}

// ParseScopeFilter maps a query value to a filter. Unknown values select all.
func ParseScopeFilter(s string) ScopeFilter {
	switch ScopeFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterIndividual:
		return FilterIndividual
	case FilterCouple:
		return FilterCouple
	default:
		return FilterAll
	}
}

// Query returns the scope query parameter, empty for all.
func (f ScopeFilter) Query() string {
	if f == FilterAll || f == "" {
		return ""
	}
	return string(f)
}

// DisplayName returns the user's full name, or the email when no name is set.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n
	}
	return u.Email
}

func (m Member) DisplayName() string {
	if n := strings.TrimSpace(m.FullName); n != "" {
		return n
	}
	return m.Email
}

// Balance returns the wallet balance, zero when the wallet row is missing.
func (c *CoupleLink) Balance() Money {
	if c == nil || c.Wallet == nil {
		return Money{}
	}
	return c.Wallet.Balance
}

// Day parses the transaction date. The API returns either a plain date or
// an RFC 3339 timestamp.
func (t Transaction) Day() (time.Time, bool) {
	return ParseDay(t.Date)
}

func ParseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, true
	}
	if len(s) >= len(DateLayout) {
		if d, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Title is the description, falling back to the category name.
func (t Transaction) Title() string {
	if d := strings.TrimSpace(t.Description); d != "" {
		return d
	}
	if t.Category != nil {
		return t.Category.Name
	}
	return ""
}

func (t Transaction) CategoryIcon() string {
	if t.Category != nil && t.Category.Icon != "" {
		return t.Category.Icon
	}
	return "💰"
}

func (t Transaction) CategoryColor() string {
	if t.Category != nil && t.Category.Color != "" {
		return t.Category.Color
	}
	return "#cbd5e1"
}

func (t Transaction) AuthorName() string {
	if t.Author != nil {
		return t.Author.FullName
	}
	return ""
}

// Validate checks the fields a create request needs before it is sent.
func (n NewTransaction) Validate() error {
	if !n.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "El monto debe ser mayor a 0"}
	}
	if !n.Type.Valid() {
		return &ValidationError{Field: "type", Message: "Tipo de transacción inválido"}
	}
	if !n.Scope.Valid() {
		return &ValidationError{Field: "scope", Message: "Ámbito inválido"}
	}
	if strings.TrimSpace(n.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "Selecciona una categoría"}
	}
	if _, err := time.Parse(DateLayout, n.Date); err != nil {
		return &ValidationError{Field: "date", Message: "Fecha inválida"}
	}
	if n.Scope == ScopeCouple && (n.CoupleID == nil || *n.CoupleID == "") {
		return ErrCoupleScopeUnavailable
	}
	return nil
}
