package handlers

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/middleware"
	"github.com/paydesk/server/internal/model"
)

// DashboardHandler serves the analytics overview
type DashboardHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(api *backend.Client, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{api: api, logger: logger}
}

type dashboardResponse struct {
	User              *model.User          `json:"user"`
	CollectionSummary *model.StatusSummary `json:"collectionSummary"`
	PaymentSummary    *model.StatusSummary `json:"paymentSummary"`
	CollectionTrends  []model.TrendPoint   `json:"collectionTrends"`
	PaymentTrends     []model.TrendPoint   `json:"paymentTrends"`
	Interval          string               `json:"interval"`
}

// HandleDashboard handles GET /dashboard. The four panels are fetched concurrently.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if dr.Interval == "" {
		dr.Interval = model.IntervalDaily
	}

	user, _ := middleware.GetUser(r.Context())
	resp := dashboardResponse{User: user, Interval: dr.Interval}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		resp.CollectionSummary, err = h.api.CollectionStatusSummary(ctx, dr)
		return err
	})
	g.Go(func() (err error) {
		resp.PaymentSummary, err = h.api.PaymentStatusSummary(ctx, dr)
		return err
	})
	g.Go(func() (err error) {
		resp.CollectionTrends, err = h.api.CollectionTrends(ctx, dr)
		return err
	})
	g.Go(func() (err error) {
		resp.PaymentTrends, err = h.api.PaymentTrends(ctx, dr)
		return err
	})
	if err := g.Wait(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
