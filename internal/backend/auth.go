package backend

import (
	"context"
	"net/url"

	"github.com/paydesk/server/internal/model"
)

// OTPRequest asks the backend to send a login code
type OTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Channel  string `json:"channel"`
	Purpose  string `json:"purpose"`
}

// VerifyOTPRequest submits a login code
type VerifyOTPRequest struct {
	Email   string `json:"email"`
	Channel string `json:"channel"`
	OTP     string `json:"otp"`
}

// VerifyOTPResult is the backend's answer to a correct login code
type VerifyOTPResult struct {
	Token                 string     `json:"token"`
	AccessToken           string     `json:"accessToken"`
	User                  model.User `json:"user"`
	PasswordResetRequired bool       `json:"passwordResetRequired"`
	FirstTimeUser         bool       `json:"firstTimeUser"`
}

// BearerToken returns whichever token field the backend populated
func (r *VerifyOTPResult) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// ResetPasswordRequest replaces a temporary password
type ResetPasswordRequest struct {
	Email        string `json:"email"`
	TempPassword string `json:"tempPassword"`
	NewPassword  string `json:"newPassword"`
}

// RequestLoginOTP sends email and password and asks for a login code
func (c *Client) RequestLoginOTP(ctx context.Context, req OTPRequest) error {
	if req.Purpose == "" {
		req.Purpose = model.PurposeLogin
	}
	if req.Channel == "" {
		req.Channel = model.ChannelEmail
	}
	return c.post(WithoutSession(ctx), "/api/v1/auth/login/otp", req, nil)
}

// VerifyLoginOTP verifies a login code
func (c *Client) VerifyLoginOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResult, error) {
	var res VerifyOTPResult
	if err := c.post(WithoutSession(ctx), "/api/v1/auth/otp/verify", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ResetPassword exchanges a temporary password for a new one
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.post(WithoutSession(ctx), "/api/v1/auth/reset-password", req, nil)
}

// Register onboards a partner or user. The mobile number is normalised first.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.Profile, error) {
	mobile, err := NormalizeMobile(reg.MobileNumber)
	if err != nil {
		return nil, err
	}
	reg.MobileNumber = mobile

	var res model.Profile
	if err := c.post(ctx, "/api/v1/auth/register", reg, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Profile fetches the signed-in user's profile
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var res model.Profile
	if err := c.get(ctx, "/api/v1/auth/profile", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateProfile saves profile changes
func (c *Client) UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	if p.MobileNumber != "" {
		mobile, err := NormalizeMobile(p.MobileNumber)
		if err != nil {
			return nil, err
		}
		p.MobileNumber = mobile
	}
	var res model.Profile
	if err := c.put(ctx, "/api/v1/auth/profile", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RegenerateCredentials issues a new subscription key and secret
func (c *Client) RegenerateCredentials(ctx context.Context) (*model.APICredentials, error) {
	var res model.APICredentials
	if err := c.post(ctx, "/api/v1/auth/profile/credentials", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UsersByOrganization lists the users of an organization
func (c *Client) UsersByOrganization(ctx context.Context, organizationName string) ([]model.OrgUser, error) {
	q := url.Values{}
	q.Set("organizationName", organizationName)
	var res []model.OrgUser
	if err := c.get(ctx, "/api/v1/auth/profile/users", q, &res); err != nil {
		return nil, err
	}
	return res, nil
}
