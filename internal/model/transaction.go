package model

import (
	"time"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"
)

// DateLayout is the ISO calendar-date format used for transaction dates on
// the wire and in storage.
const DateLayout = "2006-01-02"

// SpendingTransaction is one recorded purchase. Rows are immutable once
// created. UserID references UserAccount.ID and is never duplicated into
// a copy of the user.
type SpendingTransaction struct {
	ID              int64
	UserID          int64
	Amount          money.Amount
	Category        string
	Merchant        string
	TransactionDate time.Time // calendar date, midnight UTC
	CreatedAt       time.Time
}

// NewTransaction carries the fields a caller supplies when recording a
// transaction. The store assigns ID, UserID and CreatedAt.
type NewTransaction struct {
	Amount          money.Amount
	Category        string
	Merchant        string
	TransactionDate time.Time
}
