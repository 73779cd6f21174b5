package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/proofpick/proofpick/internal/api/response"
	"github.com/proofpick/proofpick/internal/store"
	"github.com/proofpick/proofpick/pkg/models"
)

// accessCodeAttempts bounds retries when a freshly generated code collides
// with an existing project.
const accessCodeAttempts = 10

// newAccessCode generates a short code clients type in to reach their
// project, e.g. "SEL-4821".
var newAccessCode = func() string {
	return fmt.Sprintf("SEL-%04d", rand.IntN(10000))
}

type photoRequest struct {
	URL string `json:"url"`
}

// NewCreateSelectionHandler returns the handler for POST /api/v1/admin/selections.
func NewCreateSelectionHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClientName string         `json:"client_name"`
			Phone      string         `json:"phone"`
			Title      string         `json:"title"`
			CoverImage string         `json:"cover_image"`
			Photos     []photoRequest `json:"photos"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.ClientName) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "client_name is required", nil)
			return
		}
		if strings.TrimSpace(req.Phone) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "phone is required", nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "title is required", nil)
			return
		}
		if len(req.Photos) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "photos must not be empty", nil)
			return
		}

		photos := make([]models.Photo, 0, len(req.Photos))
		for i, p := range req.Photos {
			if strings.TrimSpace(p.URL) == "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					fmt.Sprintf("photos[%d].url is required", i), nil)
				return
			}
			photos = append(photos, models.Photo{URL: p.URL})
		}

		project := &models.SelectionProject{
			ID:         uuid.New(),
			ClientName: req.ClientName,
			Phone:      req.Phone,
			Title:      req.Title,
			CoverImage: req.CoverImage,
			Status:     models.ProjectStatusInProgress,
			Photos:     photos,
		}

		// Access codes are short, so collisions happen; regenerate and retry.
		var err error
		for attempt := 0; attempt < accessCodeAttempts; attempt++ {
			project.AccessCode = newAccessCode()
			err = s.CreateProject(r.Context(), project)
			if !errors.Is(err, store.ErrDuplicateKey) {
				break
			}
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create selection", nil)
			return
		}

		response.Created(w, project)
	}
}

// NewGetSelectionHandler returns the handler for GET /api/v1/selections/{selectionID}.
func NewGetSelectionHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "selectionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "selectionID must be a valid UUID", nil)
			return
		}

		project, err := s.GetProject(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load selection", nil)
			return
		}

		response.JSON(w, project)
	}
}

// NewSelectionByCodeHandler returns the handler for
// GET /api/v1/selections/code/{accessCode}, the entry point clients use.
func NewSelectionByCodeHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "accessCode")
		if code == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "accessCode is required", nil)
			return
		}

		project, err := s.GetProjectByAccessCode(r.Context(), code)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load selection", nil)
			return
		}

		response.JSON(w, project)
	}
}

// NewListSelectionsHandler returns the handler for GET /api/v1/admin/selections.
// Supports ?phone= filtering and page/limit pagination.
func NewListSelectionsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := s.ListProjects(r.Context(), store.ProjectFilter{
			Phone: r.URL.Query().Get("phone"),
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list selections", nil)
			return
		}

		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 20)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		total := len(projects)
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		response.Collection(w, projects[start:end], response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: end < total,
		})
	}
}

// NewUpdateSelectionHandler returns the handler for
// PATCH /api/v1/selections/{selectionID}. Clients send one action at a time:
// toggling a photo, commenting on it, or marking the whole selection done.
func NewUpdateSelectionHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "selectionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "selectionID must be a valid UUID", nil)
			return
		}

		var req struct {
			Action     string `json:"action"`
			PhotoIndex *int   `json:"photo_index"`
			Comment    string `json:"comment"`
			Status     string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		project, err := s.GetProject(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load selection", nil)
			return
		}

		switch req.Action {
		case "toggle-like", "comment":
			if req.PhotoIndex == nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "photo_index is required", nil)
				return
			}
			i := *req.PhotoIndex
			if i < 0 || i >= len(project.Photos) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					fmt.Sprintf("photo_index must be between 0 and %d", len(project.Photos)-1), nil)
				return
			}
			if req.Action == "toggle-like" {
				project.Photos[i].Selected = !project.Photos[i].Selected
			} else {
				project.Photos[i].Comment = req.Comment
			}
		case "set-status":
			if req.Status != models.ProjectStatusInProgress && req.Status != models.ProjectStatusCompleted {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"status must be in-progress or completed", nil)
				return
			}
			project.Status = req.Status
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"action must be toggle-like, comment, or set-status", nil)
			return
		}

		if err := s.UpdateProject(r.Context(), project); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update selection", nil)
			return
		}

		response.JSON(w, project)
	}
}

// NewDeleteSelectionHandler returns the handler for
// DELETE /api/v1/admin/selections/{selectionID}.
func NewDeleteSelectionHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "selectionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "selectionID must be a valid UUID", nil)
			return
		}

		if err := s.DeleteProject(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Selection not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete selection", nil)
			return
		}

		response.NoContent(w)
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
