package repository

import (
	"context"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
)

// UserRepository persists user accounts keyed by external identity.
type UserRepository interface {
	// Create inserts a new account. It returns apperror.ErrAlreadyExists when
	// the external identity is already registered.
	Create(ctx context.Context, user *model.UserAccount) error
	GetByExternalID(ctx context.Context, externalID string) (*model.UserAccount, error)
}

// TransactionRepository persists spending transactions.
type TransactionRepository interface {
	// Create stores tx for the user with the given external identity and
	// returns the stored row. It returns apperror.ErrNotFound when no such
	// user exists.
	Create(ctx context.Context, externalID string, tx model.NewTransaction) (*model.SpendingTransaction, error)

	// ListByExternalID returns the user's transactions, most recent
	// transaction date first, same-date rows in insertion order.
	ListByExternalID(ctx context.Context, externalID string) ([]model.SpendingTransaction, error)

	// SumByCategory returns one total per distinct category, ordered by
	// category name.
	SumByCategory(ctx context.Context, externalID string) ([]model.CategoryTotal, error)
}
