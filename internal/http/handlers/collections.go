package handlers

import (
	"log/slog"
	"net/http"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

// CollectionHandler handles collection endpoints
type CollectionHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(api *backend.Client, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{api: api, logger: logger}
}

// HandleList handles GET /collections
func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	cols, err := h.api.ListCollections(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if cols == nil {
		cols = []model.Collection{}
	}
	respondJSON(w, http.StatusOK, cols)
}

// HandleCreate handles POST /collections
func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var col model.Collection
	if !decodeJSON(w, r, &col) {
		return
	}
	errs := validate.Errors{}
	errs.Required("mobileNumber", col.MobileNumber)
	errs.Amount("amount", col.Amount)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	created, err := h.api.CreateCollection(r.Context(), col)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// HandleSummary handles GET /collections/summary
func (h *CollectionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	summary, err := h.api.CollectionStatusSummary(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// HandleTrends handles GET /collections/trends
func (h *CollectionHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	points, err := h.api.CollectionTrends(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if points == nil {
		points = []model.TrendPoint{}
	}
	respondJSON(w, http.StatusOK, points)
}
