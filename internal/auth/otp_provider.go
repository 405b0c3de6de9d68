package auth

import (
	"context"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
)

// OtpProvider is the backend side of the login code exchange
type OtpProvider interface {
	RequestLoginOTP(ctx context.Context, req backend.OTPRequest) error
	VerifyLoginOTP(ctx context.Context, req backend.VerifyOTPRequest) (*backend.VerifyOTPResult, error)
}

// AccountProvider covers the account calls made around a login
type AccountProvider interface {
	ResetPassword(ctx context.Context, req backend.ResetPasswordRequest) error
	UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
}
