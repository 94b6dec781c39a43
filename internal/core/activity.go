package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityTransactionCreated ActivityKind = "transaction.created"
	ActivityTransactionDeleted ActivityKind = "transaction.deleted"
	ActivityWalletFunded       ActivityKind = "wallet.funded"
	ActivityCoupleInvited      ActivityKind = "couple.invited"
)

type ActivityKind string

// Activity is a journal record of a write the remote API accepted.
type Activity struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	UserID     string       `json:"user_id"`
	UserEmail  string       `json:"user_email"`
	Amount     Money        `json:"amount"`
	Reference  string       `json:"reference,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewActivity(kind ActivityKind, user User, amount Money, ref string) Activity {
	return Activity{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     user.ID,
		UserEmail:  user.Email,
		Amount:     amount,
		Reference:  ref,
		OccurredAt: time.Now().UTC(),
	}
}
