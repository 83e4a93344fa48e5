package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/cache"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/repository"
)

// InsightsCache is the per-user snapshot cache SpendingService reads through
// and evicts on every successful write.
type InsightsCache = cache.Versioned[model.InsightsSnapshot]

// CreateTransactionInput is a transaction as the client sent it: every field
// is still the raw string from the request body.
type CreateTransactionInput struct {
	Amount          string
	Category        string
	Merchant        string
	TransactionDate string
}

// SpendingService records transactions and serves the insights built from
// them.
type SpendingService struct {
	txs      repository.TransactionRepository
	insights *InsightsCache
	logger   *slog.Logger

	// now is the clock used to reject future-dated transactions.
	now func() time.Time
}

// NewSpendingService creates a SpendingService. The cache is passed in rather
// than created here so the server owns a single instance for all requests.
func NewSpendingService(txs repository.TransactionRepository, insights *InsightsCache, logger *slog.Logger) *SpendingService {
	return &SpendingService{
		txs:      txs,
		insights: insights,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateTransaction validates in, stores it for externalID and evicts that
// user's cached insights before returning.
//
// The eviction happens after the insert commits and before the caller sees
// success. Any GetInsights call that starts after this returns therefore
// recomputes from data that includes the new row.
func (s *SpendingService) CreateTransaction(ctx context.Context, externalID string, in CreateTransactionInput) (*model.SpendingTransaction, error) {
	if externalID == "" {
		return nil, apperror.Unauthenticated("User not authenticated")
	}

	newTx, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.txs.Create(ctx, externalID, newTx)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create transaction",
			slog.String("externalId", externalID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	s.insights.Evict(externalID)

	s.logger.Info("transaction created",
		slog.Int64("id", tx.ID),
		slog.String("externalId", externalID),
		slog.String("amount", tx.Amount.String()),
		slog.String("category", tx.Category),
	)

	return tx, nil
}

// validate checks the request fields in the order clients see errors for
// them: presence of each field first, then amount shape, then date.
func (s *SpendingService) validate(in CreateTransactionInput) (model.NewTransaction, error) {
	amountRaw := strings.TrimSpace(in.Amount)
	category := strings.TrimSpace(in.Category)
	merchant := strings.TrimSpace(in.Merchant)
	dateRaw := strings.TrimSpace(in.TransactionDate)

	switch {
	case amountRaw == "":
		return model.NewTransaction{}, apperror.ValidationFailed("amount", "Amount is required")
	case category == "":
		return model.NewTransaction{}, apperror.ValidationFailed("category", "Category is required")
	case merchant == "":
		return model.NewTransaction{}, apperror.ValidationFailed("merchant", "Merchant is required")
	case dateRaw == "":
		return model.NewTransaction{}, apperror.ValidationFailed("transactionDate", "Transaction date is required")
	}

	amount, err := money.Parse(amountRaw)
	if err != nil {
		switch {
		case errors.Is(err, money.ErrNotPositive):
			return model.NewTransaction{}, apperror.ValidationFailed("amount", "Amount must be greater than 0")
		case errors.Is(err, money.ErrTooLarge):
			return model.NewTransaction{}, apperror.ValidationFailed("amount",
				"Amount must not exceed "+money.Max.String())
		}
		return model.NewTransaction{}, apperror.ValidationFailed("amount", "Amount must have up to 2 decimal places")
	}

	date, err := time.Parse(model.DateLayout, dateRaw)
	if err != nil {
		return model.NewTransaction{}, apperror.ValidationFailed("transactionDate",
			"Transaction date must be a valid date (YYYY-MM-DD)")
	}
	if date.After(s.today()) {
		return model.NewTransaction{}, apperror.ValidationFailed("transactionDate",
			"Transaction date cannot be in the future")
	}

	return model.NewTransaction{
		Amount:          amount,
		Category:        category,
		Merchant:        merchant,
		TransactionDate: date,
	}, nil
}

// today is the current calendar date in the server's local zone, expressed
// as midnight UTC so it compares directly with parsed transaction dates.
func (s *SpendingService) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ListTransactions returns the user's transactions, most recent first.
func (s *SpendingService) ListTransactions(ctx context.Context, externalID string) ([]model.SpendingTransaction, error) {
	if externalID == "" {
		return nil, apperror.Unauthenticated("User not authenticated")
	}

	txs, err := s.txs.ListByExternalID(ctx, externalID)
	if err != nil {
		s.logger.Error("failed to list transactions",
			slog.String("externalId", externalID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return txs, nil
}

// GetInsights returns the user's total spend, transaction count and
// per-category totals, serving from cache when possible.
//
// On a miss the transaction list and the grouped category sums are read
// concurrently. They are independent queries over the same rows. The result
// is cached only if no transaction was created for this user while it was
// being computed.
func (s *SpendingService) GetInsights(ctx context.Context, externalID string) (model.InsightsSnapshot, error) {
	if externalID == "" {
		return model.InsightsSnapshot{}, apperror.Unauthenticated("User not authenticated")
	}

	if snap, ok := s.insights.Get(externalID); ok {
		s.logger.Debug("insights cache hit", slog.String("externalId", externalID))
		return snap, nil
	}

	gen := s.insights.Generation(externalID)

	var (
		txs        []model.SpendingTransaction
		byCategory []model.CategoryTotal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.txs.ListByExternalID(gctx, externalID)
		return err
	})
	g.Go(func() error {
		var err error
		byCategory, err = s.txs.SumByCategory(gctx, externalID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to compute insights",
			slog.String("externalId", externalID),
			slog.String("error", err.Error()),
		)
		return model.InsightsSnapshot{}, fmt.Errorf("computing insights: %w", err)
	}

	total := money.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	if byCategory == nil {
		byCategory = []model.CategoryTotal{}
	}

	snap := model.InsightsSnapshot{
		TotalSpent:       total,
		TransactionCount: len(txs),
		ByCategory:       byCategory,
	}

	stored := s.insights.SetIfCurrent(externalID, gen, snap)
	s.logger.Debug("insights computed",
		slog.String("externalId", externalID),
		slog.Int("transactions", snap.TransactionCount),
		slog.Bool("cached", stored),
	)

	return snap, nil
}
