// Package service contains the business rules of the application.
//
// Handlers parse HTTP and call a service. Services validate input, enforce
// rules and call repositories. Repositories talk to the database. A service
// never sees an *http.Request and never builds SQL. It takes primitives and
// returns models or *apperror.AppError values, so the same rules apply
// whichever transport calls them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/repository"
)

// UserService registers accounts for identities issued by the identity
// provider.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService backed by the given repository.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// Register creates the account for externalID.
//
// Only presence is checked: email format and email uniqueness are not
// validated. A second registration for the same identity fails with
// ErrAlreadyExists even if the email differs. Registration never updates
// an existing account.
func (s *UserService) Register(ctx context.Context, externalID, email string) (*model.UserAccount, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperror.Unauthenticated("User not authenticated")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}

	// Fail fast with a clean error in the common case. The UNIQUE constraint
	// behind Create still catches two registrations racing past this check.
	_, err := s.users.GetByExternalID(ctx, externalID)
	switch {
	case err == nil:
		return nil, apperror.AlreadyExists("User already exists")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	user := &model.UserAccount{
		ExternalID: externalID,
		Email:      email,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("id", user.ID),
		slog.String("externalId", user.ExternalID),
	)

	return user, nil
}
