package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	conn *sql.DB
}

// Users returns the accessor for the users table.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Create inserts a new account and fills in its ID and CreatedAt.
//
// The UNIQUE constraint on external_id is the real guard against duplicate
// registration. A service-level "does it exist?" check can race with a
// concurrent request, but the constraint cannot, so its violation is
// translated to ErrAlreadyExists here.
func (u *UserDB) Create(ctx context.Context, user *model.UserAccount) error {
	user.CreatedAt = time.Now().UTC()

	err := u.conn.QueryRowContext(ctx,
		`INSERT INTO users (external_id, email, created_at)
		 VALUES (?, ?, ?)
		 RETURNING id`,
		user.ExternalID,
		user.Email,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("User already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByExternalID looks an account up by the identity provider's uid.
// Returns apperror.ErrNotFound if no account exists.
func (u *UserDB) GetByExternalID(ctx context.Context, externalID string) (*model.UserAccount, error) {
	var user model.UserAccount

	err := u.conn.QueryRowContext(ctx,
		`SELECT id, external_id, email, created_at
		 FROM users WHERE external_id = ?`,
		externalID,
	).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", externalID)
		}
		return nil, fmt.Errorf("sqlite: getting user by external id: %w", err)
	}

	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
