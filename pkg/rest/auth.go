package rest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword issues a reset token. Mail delivery is not wired; the
// token is only logged, so the response never confirms whether the address
// exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	key, token, err := s.tokens.Create(req.Email, r.RemoteAddr)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("password reset requested",
		zap.String("email", req.Email),
		zap.String("token", key),
		zap.Time("expiresAt", token.ExpiresAt))

	httputil.JSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address is known, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "token and newPassword are required")
		return
	}

	token, err := s.tokens.Consume(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTokenExpired):
			httputil.Error(w, http.StatusGone, "reset token expired")
		case errors.Is(err, store.ErrTokenUsed):
			httputil.Error(w, http.StatusConflict, "reset token already used")
		default:
			httputil.Error(w, http.StatusNotFound, "reset token not found")
		}
		return
	}

	// Credential storage lives with the identity provider, not here. The
	// accepted reset is surfaced for the operator.
	s.logger.Info("password reset accepted", zap.String("email", token.Email))
	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "password reset accepted",
		"email":   token.Email,
	})
}
