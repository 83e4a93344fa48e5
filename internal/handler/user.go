package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/auth"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/httpjson"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
)

// Registrar creates accounts. *service.UserService implements it.
type Registrar interface {
	Register(ctx context.Context, externalID, email string) (*model.UserAccount, error)
}

// UserHandler serves account endpoints.
type UserHandler struct {
	users  Registrar
	logger *slog.Logger
}

func NewUserHandler(users Registrar, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type registerRequest struct {
	Email string `json:"email"`
}

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HandleRegister creates the account for the caller's Firebase identity.
//
// HTTP: POST /users/register
// REQUEST BODY: {"email": "user@example.com"}
//
// The route is not gated by RequireAuth, but the uid can only come from a
// verified token, so a request without one is answered with 401.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	externalID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated("User not authenticated"))
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.users.Register(r.Context(), externalID, req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Account created successfully",
	})
}
