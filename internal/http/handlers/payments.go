package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

const maxUploadBytes = 5 << 20

// PaymentHandler handles payout endpoints
type PaymentHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(api *backend.Client, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{api: api, logger: logger}
}

// HandleList handles GET /payments
func (h *PaymentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	payments, err := h.api.ListPayments(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	respondJSON(w, http.StatusOK, payments)
}

// HandleCreate handles POST /payments
func (h *PaymentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p model.Payment
	if !decodeJSON(w, r, &p) {
		return
	}
	errs := validate.Errors{}
	errs.Required("recipientNumber", p.RecipientNumber)
	errs.Amount("amount", p.Amount)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	created, err := h.api.CreatePayment(r.Context(), p)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// HandleBulk handles POST /payments/bulk. The batch is either JSON or a CSV
// file, uploaded raw as text/csv or as the "file" field of a multipart form.
func (h *PaymentHandler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	batch, err := h.readBatch(w, r)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(batch.Payments) == 0 {
		respondWithError(w, http.StatusUnprocessableEntity, errEmptyBatch.Error())
		return
	}
	errs := validate.Errors{}
	for i, p := range batch.Payments {
		errs.Amount(fmt.Sprintf("payments[%d].amount", i), p.Amount)
		errs.Required(fmt.Sprintf("payments[%d].recipientNumber", i), p.RecipientNumber)
	}
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	results, err := h.api.BulkPayments(r.Context(), batch)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	h.logger.Info("bulk payout submitted", "count", len(batch.Payments))
	respondJSON(w, http.StatusCreated, map[string]any{"count": len(results), "payments": results})
}

func (h *PaymentHandler) readBatch(w http.ResponseWriter, r *http.Request) (model.BulkPayment, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	switch mediaType {
	case "text/csv", "application/csv":
		payments, err := parseBulkCSV(body)
		return model.BulkPayment{Payments: payments}, err

	case "multipart/form-data":
		r.Body = body
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return model.BulkPayment{}, fmt.Errorf("invalid upload: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return model.BulkPayment{}, fmt.Errorf("a CSV file is required")
		}
		defer file.Close()
		payments, err := parseBulkCSV(file)
		return model.BulkPayment{Description: strings.TrimSpace(r.FormValue("description")), Payments: payments}, err

	default:
		var batch model.BulkPayment
		b, err := io.ReadAll(body)
		if err != nil {
			return batch, fmt.Errorf("invalid request body")
		}
		if err := json.Unmarshal(b, &batch); err != nil {
			return batch, fmt.Errorf("invalid request body")
		}
		return batch, nil
	}
}

// HandleStatus handles GET /payments/{id}/status
func (h *PaymentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.api.PaymentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleSummary handles GET /payments/summary
func (h *PaymentHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	summary, err := h.api.PaymentStatusSummary(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// HandleTrends handles GET /payments/trends
func (h *PaymentHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	points, err := h.api.PaymentTrends(r.Context(), dr)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if points == nil {
		points = []model.TrendPoint{}
	}
	respondJSON(w, http.StatusOK, points)
}

// HandleNameEnquiry handles POST /payments/name-enquiry
func (h *PaymentHandler) HandleNameEnquiry(w http.ResponseWriter, r *http.Request) {
	var q model.NameEnquiry
	if !decodeJSON(w, r, &q) {
		return
	}
	errs := validate.Errors{}
	errs.Required("mobileNumber", q.MobileNumber)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	res, err := h.api.NameEnquiry(r.Context(), q)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleSendOTP handles POST /payments/send-otp
func (h *PaymentHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req backend.PaymentOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentID == "" && req.Reference == "" {
		respondWithFailure(w, r, h.logger, validate.Errors{"paymentId": "is required"})
		return
	}
	req.OTP = ""
	if err := h.api.SendPaymentOTP(r.Context(), req); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "otp_sent"})
}

// HandleVerifyOTP handles POST /payments/verify-otp
func (h *PaymentHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req backend.PaymentOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := validate.Errors{}
	if req.PaymentID == "" && req.Reference == "" {
		errs.Add("paymentId", "is required")
	}
	errs.OTP("otp", req.OTP)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	p, err := h.api.VerifyPaymentOTP(r.Context(), req)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleApprovals handles GET /payments/approvals
func (h *PaymentHandler) HandleApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.api.PendingApprovals(r.Context())
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if pending == nil {
		pending = []model.Payment{}
	}
	respondJSON(w, http.StatusOK, pending)
}

// HandleApprove handles POST /payments/{id}/approve
func (h *PaymentHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.api.ApprovePayment)
}

// HandleReject handles POST /payments/{id}/reject
func (h *PaymentHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.api.RejectPayment)
}

type decisionFunc func(ctx context.Context, id string, d backend.ApprovalDecision) (*model.Payment, error)

func (h *PaymentHandler) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	var d backend.ApprovalDecision
	if !decodeJSON(w, r, &d) {
		return
	}
	p, err := fn(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
