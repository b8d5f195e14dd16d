package model

import "time"

// Deposit is a credit grant for a beneficiary.  The wallet balance of a
// user is the sum of their deposits minus the total amount of their
// active (non-cancelled) bookings.  Deposits are never mutated after
// creation.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – beneficiary the credit belongs to.
//  AmountCents – granted amount in euro cents.
//  Source      – free-text origin of the grant (e.g. "registration").
//  CreatedAt   – creation timestamp.
type Deposit struct {
	ID          uint64    // deposits.id
	UserID      uint64    // deposits.user_id
	AmountCents int64     // deposits.amount_cents
	Source      string    // deposits.source
	CreatedAt   time.Time // deposits.created_at
}
