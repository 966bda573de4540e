// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zt-a/refgen-ai-backend/internal/platform/middleware"
	requestutil "github.com/zt-a/refgen-ai-backend/internal/platform/request"
	"github.com/zt-a/refgen-ai-backend/internal/platform/respond"
)

// Handler implements the HTTP layer for the caller's profile.
type Handler struct {
	service *Service
}

// NewHandler constructs a new profile [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the profile endpoints. Every route
// requires authentication.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.get)
	router.Post("/", handler.create)
	router.Put("/", handler.update)
	router.Delete("/", handler.delete)

	return router
}

// profileRequest is the inbound JSON schema for create and update.
type profileRequest struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Patronymic  string `json:"patronymic"`
	PhoneNumber string `json:"phone_number"`
	University  string `json:"university"`
	Faculty     string `json:"faculty"`
	Course      int    `json:"course"`
	Group       string `json:"group"`
	City        string `json:"city"`
}

func (body profileRequest) toInput() Input {
	return Input(body)
}

/*
GET /api/v1/profile.

Response:
  - 200: Profile
  - 401: ErrUnauthorized
  - 404: ErrNotFound: Profile missing
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Get(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
POST /api/v1/profile.

Response:
  - 201: Profile
  - 400: Validation failure
  - 409: ErrConflict: Profile already exists
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body profileRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Create(request.Context(), userID, body.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, profile)
}

/*
PUT /api/v1/profile.

Response:
  - 200: Profile
  - 400: Validation failure
  - 404: ErrNotFound: Profile missing
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body profileRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Update(request.Context(), userID, body.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
DELETE /api/v1/profile.

Response:
  - 204: No content
  - 404: ErrNotFound: Profile missing
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
