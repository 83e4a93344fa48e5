package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/cache"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// In-memory stand-ins for the sqlite repositories. GetInsights reads from
// two goroutines at once, so the transaction mock is guarded by a mutex
// and the race detector stays quiet.

var errDatabaseDown = errors.New("database is down")

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.UserAccount
	nextID int64

	// getErr, when set, is returned by GetByExternalID.
	getErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.UserAccount)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ExternalID]; ok {
		return apperror.AlreadyExists("User already exists")
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ExternalID] = &stored
	return nil
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[externalID]
	if !ok {
		return nil, apperror.NotFound("user", externalID)
	}
	result := *u
	return &result, nil
}

type mockTxRepo struct {
	mu     sync.Mutex
	users  map[string]int64 // externalID -> user id
	txs    []model.SpendingTransaction
	nextID int64

	listCalls int
	failRead  error
}

func newMockTxRepo(externalIDs ...string) *mockTxRepo {
	m := &mockTxRepo{users: make(map[string]int64)}
	for i, id := range externalIDs {
		m.users[id] = int64(i + 1)
	}
	return m
}

func (m *mockTxRepo) Create(_ context.Context, externalID string, in model.NewTransaction) (*model.SpendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.users[externalID]
	if !ok {
		return nil, apperror.NotFoundMessage("User not found. Register first")
	}
	m.nextID++
	tx := model.SpendingTransaction{
		ID:              m.nextID,
		UserID:          userID,
		Amount:          in.Amount,
		Category:        in.Category,
		Merchant:        in.Merchant,
		TransactionDate: in.TransactionDate,
		CreatedAt:       time.Now(),
	}
	m.txs = append(m.txs, tx)
	return &tx, nil
}

func (m *mockTxRepo) ListByExternalID(_ context.Context, externalID string) ([]model.SpendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.failRead != nil {
		return nil, m.failRead
	}

	result := []model.SpendingTransaction{}
	for _, tx := range m.txs {
		if tx.UserID == m.users[externalID] {
			result = append(result, tx)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TransactionDate.After(result[j].TransactionDate)
	})
	return result, nil
}

func (m *mockTxRepo) SumByCategory(_ context.Context, externalID string) ([]model.CategoryTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRead != nil {
		return nil, m.failRead
	}

	sums := map[string]money.Amount{}
	for _, tx := range m.txs {
		if tx.UserID != m.users[externalID] {
			continue
		}
		cur, ok := sums[tx.Category]
		if !ok {
			cur = money.Zero
		}
		sums[tx.Category] = cur.Add(tx.Amount)
	}

	result := make([]model.CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		result = append(result, model.CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

func (m *mockTxRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedNow is the clock every spending test runs against.
var fixedNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func newTestUserService(t *testing.T) (*UserService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	return NewUserService(repo, testLogger()), repo
}

func newTestSpendingService(t *testing.T, externalIDs ...string) (*SpendingService, *mockTxRepo) {
	t.Helper()
	repo := newMockTxRepo(externalIDs...)
	svc := NewSpendingService(repo, cache.NewVersioned[model.InsightsSnapshot](), testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}
