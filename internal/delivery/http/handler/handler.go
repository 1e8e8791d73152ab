package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/delivery/http/request"
	"github.com/user/image-scraper-service/internal/delivery/http/response"
	"github.com/user/image-scraper-service/internal/usecase"
)

type Handler struct {
	scraper usecase.Scraper
	images  usecase.ImageService
	logger  *zap.Logger
}

func NewHandler(scraper usecase.Scraper, images usecase.ImageService, logger *zap.Logger) *Handler {
	return &Handler{
		scraper: scraper,
		images:  images,
		logger:  logger,
	}
}

// HandleScrape runs an incremental scrape of the submitted page.
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	images, err := h.scraper.ScrapeIncremental(r.Context(), req.URL)
	if err != nil {
		h.writeUseCaseError(w, "scrape failed", err, zap.String("url", req.URL))
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewImageListResponse(images))
}

// HandleRestore runs a destructive scrape of the submitted page.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	images, err := h.scraper.ScrapeDestructive(r.Context(), req.URL)
	if err != nil {
		h.writeUseCaseError(w, "restore failed", err, zap.String("url", req.URL))
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewImageListResponse(images))
}

// HandleListByParent returns the stored images of a page without fetching it.
func (h *Handler) HandleListByParent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	images, err := h.images.QueryByParentURL(r.Context(), req.URL)
	if err != nil {
		h.writeUseCaseError(w, "list images failed", err, zap.String("url", req.URL))
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewImageListResponse(images))
}

// HandleQueryByOriginal returns the stored images fetched from an image URL.
func (h *Handler) HandleQueryByOriginal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	images, err := h.images.QueryByOriginalImageURL(r.Context(), req.URL)
	if err != nil {
		h.writeUseCaseError(w, "query images failed", err, zap.String("url", req.URL))
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewImageListResponse(images))
}

func (h *Handler) HandleGetImageDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	img, err := h.images.Get(r.Context(), id)
	if err != nil {
		h.writeUseCaseError(w, "get image failed", err, zap.Int64("id", id))
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewImageResponse(img))
}

func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), id); err != nil {
		h.writeUseCaseError(w, "delete image failed", err, zap.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.images.DeleteAddress(r.Context(), id); err != nil {
		h.writeUseCaseError(w, "delete address failed", err, zap.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleServeImage streams the image, transformed by the query parameters.
func (h *Handler) HandleServeImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rendered, err := h.images.Render(r.Context(), id, request.ParseRenderOptions(r.URL.Query()))
	if err != nil {
		h.writeUseCaseError(w, "render image failed", err, zap.Int64("id", id))
		return
	}

	w.Header().Set("Content-Type", rendered.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(rendered.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rendered.Data); err != nil {
		h.logger.Warn("failed to write image response", zap.Int64("id", id), zap.Error(err))
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodeURLRequest(w http.ResponseWriter, r *http.Request) (request.URLRequest, bool) {
	var req request.URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.writeJSONError(w, "url is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeJSONError(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, usecase.ErrInvalidURL):
		h.writeJSONError(w, "Invalid URL", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNotFound):
		h.writeJSONError(w, "Not found", http.StatusNotFound)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
