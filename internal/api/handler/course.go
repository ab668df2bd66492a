package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/course"
)

type generateCourseRequest struct {
	Topic   string `json:"topic"`
	Level   string `json:"level"`
	Lessons int    `json:"lessons"`
}

type saveCourseRequest struct {
	Title     string          `json:"title"`
	Topic     string          `json:"topic"`
	Level     string          `json:"level"`
	Summary   string          `json:"summary"`
	Modules   []course.Module `json:"modules"`
	Published bool            `json:"published"`
}

type updateCourseRequest struct {
	Title     *string `json:"title"`
	Summary   *string `json:"summary"`
	Published *bool   `json:"published"`
}

type courseDraftResponse struct {
	Draft     course.Draft `json:"draft"`
	Remaining int          `json:"remaining"`
}

type courseResponse struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	Topic       string          `json:"topic"`
	Level       string          `json:"level"`
	Summary     string          `json:"summary"`
	Modules     []course.Module `json:"modules"`
	LessonCount int             `json:"lessonCount"`
	Published   bool            `json:"published"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

func toCourseResponse(c *course.Course) courseResponse {
	modules := c.Modules
	if modules == nil {
		modules = []course.Module{}
	}
	return courseResponse{
		ID:          c.ID.String(),
		OwnerID:     c.OwnerID.String(),
		Title:       c.Title,
		Topic:       c.Topic,
		Level:       c.Level,
		Summary:     c.Summary,
		Modules:     modules,
		LessonCount: course.LessonCount(c.Modules),
		Published:   c.Published,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func toCourseResponses(courses []course.Course) []courseResponse {
	items := make([]courseResponse, 0, len(courses))
	for i := range courses {
		items = append(items, toCourseResponse(&courses[i]))
	}
	return items
}

// CourseHandler handles AI course generation and course management.
type CourseHandler struct {
	svc  *course.Service
	repo course.Repository
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(svc *course.Service, repo course.Repository) *CourseHandler {
	return &CourseHandler{svc: svc, repo: repo}
}

// Generate handles POST /courses/generate. The draft is returned, not saved.
func (h *CourseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req generateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateGenerateCourse(req.Topic, req.Level, req.Lessons)) {
		return
	}

	draft, remaining, err := h.svc.Generate(r.Context(), identity.UserID, course.GenerateRequest{
		Topic:   strings.TrimSpace(req.Topic),
		Level:   req.Level,
		Lessons: req.Lessons,
	})
	if err != nil {
		writeGenerationError(w, err, course.ErrGenerationFailed, requestID)
		return
	}

	response.Success(w, http.StatusOK, courseDraftResponse{Draft: *draft, Remaining: remaining}, requestID)
}

// Create handles POST /courses.
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req saveCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateSaveCourse(validation.CourseRequest{
		Title:   req.Title,
		Topic:   req.Topic,
		Level:   req.Level,
		Summary: req.Summary,
		Modules: req.Modules,
	})) {
		return
	}

	c := &course.Course{
		OwnerID:   identity.UserID,
		Title:     strings.TrimSpace(req.Title),
		Topic:     strings.TrimSpace(req.Topic),
		Level:     req.Level,
		Summary:   strings.TrimSpace(req.Summary),
		Modules:   req.Modules,
		Published: req.Published,
	}
	if err := h.repo.Create(r.Context(), c); err != nil {
		slog.Error("failed to save course", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save course", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toCourseResponse(c), requestID)
}

// List handles GET /courses, the caller's courses.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	courses, err := h.repo.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list courses", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list courses", requestID)
		return
	}

	items := toCourseResponses(courses)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// ListPublished handles GET /courses/published.
func (h *CourseHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	courses, err := h.repo.ListPublished(r.Context())
	if err != nil {
		slog.Error("failed to list published courses", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list courses", requestID)
		return
	}

	items := toCourseResponses(courses)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// GetByID handles GET /courses/{id}. Published courses are visible to everyone.
func (h *CourseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if err == nil && !c.Published && c.OwnerID != identity.UserID && !identity.IsAdmin() {
		err = course.ErrCourseNotFound
	}
	if err != nil {
		h.writeError(w, err, "get", id.String(), requestID)
		return
	}

	response.Success(w, http.StatusOK, toCourseResponse(c), requestID)
}

// Update handles PATCH /courses/{id}.
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req updateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateUpdateCourse(req.Title, req.Summary)) {
		return
	}

	c, err := h.repo.Update(r.Context(), id, identity.UserID, course.UpdateFields{
		Title:     req.Title,
		Summary:   req.Summary,
		Published: req.Published,
	})
	if err != nil {
		h.writeError(w, err, "update", id.String(), requestID)
		return
	}

	response.Success(w, http.StatusOK, toCourseResponse(c), requestID)
}

// Delete handles DELETE /courses/{id}.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id, identity.UserID); err != nil {
		h.writeError(w, err, "delete", id.String(), requestID)
		return
	}

	response.NoContent(w)
}

func (h *CourseHandler) writeError(w http.ResponseWriter, err error, action, id, requestID string) {
	if errors.Is(err, course.ErrCourseNotFound) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Course not found", requestID)
		return
	}
	slog.Error("failed to "+action+" course", "error", err, "id", id)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action+" course", requestID)
}
