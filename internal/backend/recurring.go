package backend

import (
	"context"

	"github.com/paydesk/server/internal/model"
)

// SubscriptionOTP authorises or re-sends the code for a subscription
type SubscriptionOTP struct {
	SubscriptionID string `json:"subscriptionId"`
	OTP            string `json:"otp,omitempty"`
}

// CreateSubscription registers a recurring payment subscription
func (c *Client) CreateSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error) {
	mobile, err := NormalizeMobile(s.MobileNumber)
	if err != nil {
		return nil, err
	}
	s.MobileNumber = mobile

	var res model.Subscription
	if err := c.post(ctx, "/api/v1/recurring-payments/subscriptions", s, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorizeSubscription confirms a subscription with the customer's code
func (c *Client) AuthorizeSubscription(ctx context.Context, req SubscriptionOTP) (*model.Subscription, error) {
	var res model.Subscription
	if err := c.post(ctx, "/api/v1/recurring-payments/authorize", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ResendSubscriptionOTP re-sends the customer's authorisation code
func (c *Client) ResendSubscriptionOTP(ctx context.Context, req SubscriptionOTP) error {
	req.OTP = ""
	return c.post(ctx, "/api/v1/recurring-payments/resend-otp", req, nil)
}

// FirstInstallment triggers the first debit of an authorised subscription
func (c *Client) FirstInstallment(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var res model.Subscription
	req := SubscriptionOTP{SubscriptionID: subscriptionID}
	if err := c.post(ctx, "/api/v1/recurring-payments/first-installment", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
