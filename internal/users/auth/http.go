// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	"github.com/zt-a/refgen-ai-backend/internal/platform/middleware"
	requestutil "github.com/zt-a/refgen-ai-backend/internal/platform/request"
	"github.com/zt-a/refgen-ai-backend/internal/platform/respond"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
	"github.com/zt-a/refgen-ai-backend/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	authService *Service
	secure      bool
}

// NewHandler constructs a new [Handler]. secureCookies sets the Secure flag on
// the refresh cookie and is disabled for plain-HTTP development.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secure: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register : Opens an account and signs it in.
//   - POST /login    : Signs in with a username or email.
//   - POST /refresh  : Rotates the refresh cookie.
//   - POST /logout   : Revokes the refresh cookie.
//   - GET  /me       : Returns the caller's account.
//   - POST /sessions/purge : Deletes expired sessions (admin).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.me)
	})

	router.With(middleware.RequireRole(sec.RoleAdmin)).Post("/sessions/purge", handler.purgeSessions)

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

/*
POST /api/v1/auth/register.

Response:
  - 201: access token and account, refresh cookie set
  - 400: Validation failure
  - 409: Username or email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, MinUsernameLength).
		MaxLen(FieldUsername, input.Username, MaxUsernameLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		MaxLen(FieldPassword, input.Password, MaxPasswordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput(input), clientInfo(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.Created(writer, sessionBody(session))
}

/*
POST /api/v1/auth/login.

Response:
  - 200: access token and account, refresh cookie set
  - 401: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldLogin, input.Login).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput(input), clientInfo(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.OK(writer, sessionBody(session))
}

/*
POST /api/v1/auth/refresh.

Response:
  - 200: new access token, rotated refresh cookie
  - 401: Missing, revoked or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	session, err := handler.authService.RefreshSession(request.Context(), cookie.Value, clientInfo(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.OK(writer, sessionBody(session))
}

/*
POST /api/v1/auth/logout.

Response:
  - 204: Session revoked and cookie cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		if err := handler.authService.Logout(request.Context(), cookie.Value); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	respond.NoContent(writer)
}

/*
GET /api/v1/auth/me.

Response:
  - 200: User
  - 401: Missing or invalid access token
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
POST /api/v1/auth/sessions/purge.

Response:
  - 200: {"removed": n}
  - 403: Caller is not an admin
*/
func (handler *Handler) purgeSessions(writer http.ResponseWriter, request *http.Request) {
	removed, err := handler.authService.PurgeExpiredSessions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int64{"removed": removed})
}

// # Helpers

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, session *LoginSession) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshTokenExpiresAt,
		Secure:   handler.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func sessionBody(session *LoginSession) map[string]any {
	return map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int(AccessTokenTTL / time.Second),
		FieldUser:        session.User,
	}
}

func clientInfo(request *http.Request) ClientInfo {
	return ClientInfo{
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	}
}
