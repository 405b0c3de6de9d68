package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/paydesk/server/internal/model"
)

// PaymentOTPRequest asks for or submits the code that authorises a payout
type PaymentOTPRequest struct {
	PaymentID string `json:"paymentId,omitempty"`
	Reference string `json:"reference,omitempty"`
	OTP       string `json:"otp,omitempty"`
}

// ApprovalDecision records why a payout was approved or rejected
type ApprovalDecision struct {
	Comment string `json:"comment,omitempty"`
}

// ListPayments lists payouts in the range
func (c *Client) ListPayments(ctx context.Context, r model.DateRange) ([]model.Payment, error) {
	var res []model.Payment
	if err := c.get(ctx, "/api/v1/payments", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreatePayment submits a single payout
func (c *Client) CreatePayment(ctx context.Context, p model.Payment) (*model.Payment, error) {
	mobile, err := NormalizeMobile(p.RecipientNumber)
	if err != nil {
		return nil, err
	}
	p.RecipientNumber = mobile

	var res model.Payment
	if err := c.post(ctx, "/api/v1/payments", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BulkPayments submits a batch of payouts
func (c *Client) BulkPayments(ctx context.Context, batch model.BulkPayment) ([]model.Payment, error) {
	for i := range batch.Payments {
		mobile, err := NormalizeMobile(batch.Payments[i].RecipientNumber)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i+1, err)
		}
		batch.Payments[i].RecipientNumber = mobile
	}
	var res []model.Payment
	if err := c.post(ctx, "/api/v1/payments/bulk", batch, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// PaymentStatus fetches the current state of one payout
func (c *Client) PaymentStatus(ctx context.Context, id string) (*model.Payment, error) {
	var res model.Payment
	if err := c.get(ctx, "/api/v1/payments/"+url.PathEscape(id)+"/status", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PaymentStatusSummary returns payout counts and values by status
func (c *Client) PaymentStatusSummary(ctx context.Context, r model.DateRange) (*model.StatusSummary, error) {
	var res model.StatusSummary
	if err := c.get(ctx, "/api/v1/payments/status-summary", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PaymentTrends returns the payout series bucketed by r.Interval
func (c *Client) PaymentTrends(ctx context.Context, r model.DateRange) ([]model.TrendPoint, error) {
	var res []model.TrendPoint
	if err := c.get(ctx, "/api/v1/payments/trends", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// NameEnquiry resolves the account name registered on a wallet
func (c *Client) NameEnquiry(ctx context.Context, q model.NameEnquiry) (*model.NameEnquiry, error) {
	mobile, err := NormalizeMobile(q.MobileNumber)
	if err != nil {
		return nil, err
	}
	q.MobileNumber = mobile

	var res model.NameEnquiry
	if err := c.post(ctx, "/api/v1/payments/name-enquiry", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendPaymentOTP asks the backend to send the payout authorisation code
func (c *Client) SendPaymentOTP(ctx context.Context, req PaymentOTPRequest) error {
	return c.post(ctx, "/api/v1/payments/send-otp", req, nil)
}

// VerifyPaymentOTP submits the payout authorisation code
func (c *Client) VerifyPaymentOTP(ctx context.Context, req PaymentOTPRequest) (*model.Payment, error) {
	var res model.Payment
	if err := c.post(ctx, "/api/v1/payments/verify-otp", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PendingApprovals lists payouts waiting for a decision
func (c *Client) PendingApprovals(ctx context.Context) ([]model.Payment, error) {
	var res []model.Payment
	if err := c.get(ctx, "/api/v1/payments/approvals", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ApprovePayment approves a pending payout
func (c *Client) ApprovePayment(ctx context.Context, id string, d ApprovalDecision) (*model.Payment, error) {
	var res model.Payment
	if err := c.post(ctx, "/api/v1/payments/"+url.PathEscape(id)+"/approve", d, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RejectPayment rejects a pending payout
func (c *Client) RejectPayment(ctx context.Context, id string, d ApprovalDecision) (*model.Payment, error) {
	var res model.Payment
	if err := c.post(ctx, "/api/v1/payments/"+url.PathEscape(id)+"/reject", d, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
