// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	"github.com/zt-a/refgen-ai-backend/internal/platform/middleware"
	requestutil "github.com/zt-a/refgen-ai-backend/internal/platform/request"
	"github.com/zt-a/refgen-ai-backend/internal/platform/respond"
	"github.com/zt-a/refgen-ai-backend/pkg/pagination"
)

const paramEssayID = "essayID"

// Handler implements the HTTP layer for essays.
type Handler struct {
	service *Service
}

// NewHandler constructs a new essay [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with every essay endpoint. Plan generation
// waits for the model inside the request and gets a longer deadline.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.With(chimw.Timeout(constants.PlanRequestTimeout)).Post("/plan/generate", handler.createPlan)

	router.Group(func(timed chi.Router) {
		timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		timed.Get("/", handler.list)
		timed.Put("/chapter/title/update", handler.updateChapterTitle)

		timed.Get("/{essayID}", handler.get)
		timed.Post("/{essayID}/generate", handler.startGeneration)
		timed.Get("/{essayID}/status", handler.status)
		timed.Get("/{essayID}/chapters", handler.chapters)
		timed.Get("/{essayID}/export", handler.export)
	})

	return router
}

// # Request Schemas

type createPlanRequest struct {
	Topic         string `json:"topic"`
	Subject       string `json:"subject"`
	CheckedBy     string `json:"checked_by"`
	PageCount     int    `json:"page_count"`
	ChaptersCount int    `json:"chapters_count"`
	Language      string `json:"language"`
}

type updateChapterTitleRequest struct {
	ChapterID int64  `json:"chapter_id"`
	Title     string `json:"title"`
}

// # Handlers

/*
POST /api/v1/essays/plan/generate.

Response:
  - 201: PlanResult
  - 400: Validation failure or PROFILE_INCOMPLETE
  - 422: PLAN_GENERATION_FAILED: Page layout impossible
  - 502: PLAN_GENERATION_FAILED: Model unavailable
*/
func (handler *Handler) createPlan(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body createPlanRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.CreatePlan(request.Context(), userID, CreatePlanInput(body))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

/*
GET /api/v1/essays?page=&limit=.

Response:
  - 200: []Essay with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	essays, total, err := handler.service.ListEssays(request.Context(), userID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, essays, pagination.NewMeta(page.Page, page.Limit, total))
}

/*
GET /api/v1/essays/{essayID}.

Response:
  - 200: Essay with metadata and chapters
  - 404: ErrNotFound
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, essayID, ok := handler.identify(writer, request)
	if !ok {
		return
	}

	essay, err := handler.service.GetEssay(request.Context(), essayID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, essay)
}

/*
POST /api/v1/essays/{essayID}/generate.

Response:
  - 200: GenerationState
  - 404: ErrNotFound
  - 503: DISPATCH_FAILED
*/
func (handler *Handler) startGeneration(writer http.ResponseWriter, request *http.Request) {
	userID, essayID, ok := handler.identify(writer, request)
	if !ok {
		return
	}

	state, err := handler.service.StartGeneration(request.Context(), essayID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

/*
GET /api/v1/essays/{essayID}/status.

Response:
  - 200: GenerationState
  - 404: ErrNotFound
*/
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	userID, essayID, ok := handler.identify(writer, request)
	if !ok {
		return
	}

	state, err := handler.service.PollStatus(request.Context(), essayID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

/*
GET /api/v1/essays/{essayID}/chapters.

Response:
  - 200: {essay_id, chapters}
  - 404: ErrNotFound
*/
func (handler *Handler) chapters(writer http.ResponseWriter, request *http.Request) {
	userID, essayID, ok := handler.identify(writer, request)
	if !ok {
		return
	}

	chapters, err := handler.service.ListChapters(request.Context(), essayID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"essay_id": essayID,
		"chapters": chapters,
	})
}

/*
PUT /api/v1/essays/chapter/title/update.

Response:
  - 200: Chapter
  - 400: Validation failure
  - 403: ErrChapterForbidden
  - 404: ErrChapterNotFound
*/
func (handler *Handler) updateChapterTitle(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body updateChapterTitleRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.UpdateChapterTitle(request.Context(), userID, body.ChapterID, body.Title)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

/*
GET /api/v1/essays/{essayID}/export.

Response:
  - 200: text/html attachment
  - 404: ErrNotFound
*/
func (handler *Handler) export(writer http.ResponseWriter, request *http.Request) {
	userID, essayID, ok := handler.identify(writer, request)
	if !ok {
		return
	}

	fileName, body, err := handler.service.Export(request.Context(), essayID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Attachment(writer, ExportContentType, fileName, body)
}

// identify extracts the caller and the essay id, writing the error response on failure.
func (handler *Handler) identify(writer http.ResponseWriter, request *http.Request) (string, int64, bool) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return "", 0, false
	}

	essayID, err := requestutil.Int64(request, paramEssayID)
	if err != nil {
		respond.Error(writer, request, err)
		return "", 0, false
	}

	return userID, essayID, true
}
