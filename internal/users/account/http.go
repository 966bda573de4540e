// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zt-a/refgen-ai-backend/internal/platform/middleware"
	requestutil "github.com/zt-a/refgen-ai-backend/internal/platform/request"
	"github.com/zt-a/refgen-ai-backend/internal/platform/respond"
	"github.com/zt-a/refgen-ai-backend/internal/platform/validate"
	"github.com/zt-a/refgen-ai-backend/internal/users/auth"
)

// Handler implements the HTTP layer for account security.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - PUT    /password      : Changes the password and signs every device out.
//   - GET    /sessions      : Lists live refresh sessions.
//   - DELETE /sessions      : Revokes every session.
//   - DELETE /sessions/{id} : Revokes one session.
//   - DELETE /              : Closes the account.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Put("/password", handler.changePassword)
	router.Get("/sessions", handler.listSessions)
	router.Delete("/sessions", handler.revokeAllSessions)
	router.Delete("/sessions/{id}", handler.revokeSession)
	router.Delete("/", handler.deleteAccount)

	return router
}

// # Credential Endpoints

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
PUT /api/v1/account/password.

Response:
  - 204: Password changed, all sessions revoked
  - 400: Validation failure
  - 401: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, auth.MinPasswordLength).
		MaxLen(FieldNewPassword, input.NewPassword, auth.MaxPasswordLength).
		Custom(FieldNewPassword, input.NewPassword != "" && input.NewPassword == input.CurrentPassword,
			"Must differ from the current password")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), userID, ChangePasswordInput(input)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

/*
DELETE /api/v1/account.

Response:
  - 204: Account closed
  - 401: Wrong password
*/
func (handler *Handler) deleteAccount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input deleteAccountRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldPassword, input.Password).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAccount(request.Context(), userID, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Session Security Endpoints

/*
GET /api/v1/account/sessions.

Response:
  - 200: []SessionInfo
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
DELETE /api/v1/account/sessions/{id}.

Response:
  - 204: Session revoked
  - 404: Not a live session of the caller
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	if err := validator.UUID("id", sessionID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// DELETE /api/v1/account/sessions.
func (handler *Handler) revokeAllSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeAllSessions(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
