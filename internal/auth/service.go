// Package auth runs the two-step email/password + one-time-code login and
// issues the browser identity cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/session"
	"github.com/paydesk/server/internal/validate"
)

const defaultResendCooldown = 60 * time.Second

// Paths a resolved login sends the browser to
const (
	DashboardPath     = "/dashboard"
	ResetPasswordPath = "/reset-password"
	SetupPath         = "/setup"
)

var (
	// ErrResendCooldown is returned when a code was sent too recently to resend
	ErrResendCooldown = errors.New("please wait before requesting a new code")
	// ErrNoChallenge is returned when no login is in progress for the browser
	ErrNoChallenge = errors.New("no login in progress, please sign in again")
	// ErrNoPendingSetup is returned when setup is completed without a first-time login
	ErrNoPendingSetup = errors.New("no account setup in progress")
)

// Step is where a browser is in the login exchange
type Step int

const (
	StepEnteringCredentials Step = iota
	StepAwaitingCode
	StepResolved
)

func (s Step) String() string {
	switch s {
	case StepAwaitingCode:
		return "awaiting_code"
	case StepResolved:
		return "resolved"
	default:
		return "entering_credentials"
	}
}

// MarshalText renders the step by name in JSON
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is where a successful code verification leads
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeDashboard
	OutcomeResetPassword
	OutcomeFirstTimeSetup
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDashboard:
		return "dashboard"
	case OutcomeResetPassword:
		return "reset_password"
	case OutcomeFirstTimeSetup:
		return "first_time_setup"
	default:
		return ""
	}
}

// MarshalText renders the outcome by name in JSON
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// State is what the login view needs to render
type State struct {
	Step     Step          `json:"step"`
	Email    string        `json:"email,omitempty"`
	Channel  string        `json:"channel,omitempty"`
	ResendIn time.Duration `json:"-"`
	Outcome  Outcome       `json:"outcome,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
}

// LoginConfig tunes the login exchange
type LoginConfig struct {
	ResendCooldown time.Duration
	ChallengeIdle  time.Duration
}

// LoginService orchestrates the login exchange for every browser
type LoginService struct {
	otp        OtpProvider
	accounts   AccountProvider
	store      *session.Store
	challenges *challengeTable
	cooldown   time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// NewLoginService creates a new login service
func NewLoginService(
	otp OtpProvider,
	accounts AccountProvider,
	store *session.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg LoginConfig,
) *LoginService {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case cfg.ResendCooldown == 0:
		cfg.ResendCooldown = defaultResendCooldown
	case cfg.ResendCooldown < 0:
		cfg.ResendCooldown = 0
	}
	return &LoginService{
		otp:        otp,
		accounts:   accounts,
		store:      store,
		challenges: newChallengeTable(cfg.ChallengeIdle),
		cooldown:   cfg.ResendCooldown,
		metrics:    m,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// RunSweeper drops abandoned login exchanges until ctx is done
func (s *LoginService) RunSweeper(ctx context.Context, every time.Duration) {
	s.challenges.runSweeper(ctx, every, s.nowFunc)
}

// State reports the browser's current step
func (s *LoginService) State(browserID uuid.UUID) State {
	c, ok := s.challenges.get(browserID, s.nowFunc())
	if !ok {
		return State{Step: StepEnteringCredentials}
	}
	return s.stateOf(c)
}

func (s *LoginService) stateOf(c challenge) State {
	st := State{Step: c.step, Email: c.Email, Channel: c.Channel, Outcome: c.outcome}
	if c.step == StepAwaitingCode {
		st.ResendIn = s.resendRemaining(c)
	}
	if c.outcome == OutcomeFirstTimeSetup {
		st.Redirect = SetupPath
	}
	return st
}

func (s *LoginService) resendRemaining(c challenge) time.Duration {
	remaining := s.cooldown - s.nowFunc().Sub(c.lastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Start submits email and password and asks the backend to send a code
func (s *LoginService) Start(ctx context.Context, browserID uuid.UUID, email, password, channel string) (State, error) {
	email = strings.TrimSpace(email)
	if channel == "" {
		channel = model.ChannelEmail
	}
	entering := State{Step: StepEnteringCredentials, Email: email, Channel: channel}

	errs := validate.Errors{}
	errs.Email("email", email)
	errs.Required("password", password)
	errs.Channel("channel", channel)
	if err := errs.Err(); err != nil {
		return entering, err
	}

	s.challenges.remove(browserID)

	err := s.otp.RequestLoginOTP(ctx, backend.OTPRequest{
		Email:    email,
		Password: password,
		Channel:  channel,
		Purpose:  model.PurposeLogin,
	})
	s.countOTP("login", err)
	if err != nil {
		s.logger.Info("login code request failed", "email", maskEmail(email), "error", err)
		return entering, err
	}

	now := s.nowFunc()
	c := challenge{
		OtpChallenge: model.OtpChallenge{Email: email, Channel: channel, RequestedAt: now},
		password:     password,
		step:         StepAwaitingCode,
		lastSentAt:   now,
	}
	s.challenges.put(browserID, c, now)
	return s.stateOf(c), nil
}

// Resend asks for a fresh code. Inside the cooldown window it fails with
// ErrResendCooldown without calling the backend.
func (s *LoginService) Resend(ctx context.Context, browserID uuid.UUID) (State, error) {
	now := s.nowFunc()
	var (
		snapshot challenge
		previous time.Time
	)
	err := s.challenges.update(browserID, now, func(c *challenge) error {
		if c.step != StepAwaitingCode {
			return ErrNoChallenge
		}
		if s.resendRemaining(*c) > 0 {
			snapshot = *c
			return ErrResendCooldown
		}
		previous = c.lastSentAt
		c.lastSentAt = now
		snapshot = *c
		return nil
	})
	switch {
	case errors.Is(err, ErrResendCooldown):
		s.countOTPResult("resend", "cooldown")
		return s.stateOf(snapshot), err
	case err != nil:
		return s.State(browserID), err
	}

	err = s.otp.RequestLoginOTP(ctx, backend.OTPRequest{
		Email:    snapshot.Email,
		Password: snapshot.password,
		Channel:  snapshot.Channel,
		Purpose:  model.PurposeLogin,
	})
	s.countOTP("resend", err)
	if err != nil {
		// give the slot back so the user can try again straight away
		_ = s.challenges.update(browserID, s.nowFunc(), func(c *challenge) error {
			if c.lastSentAt.Equal(now) {
				c.lastSentAt = previous
			}
			return nil
		})
		s.logger.Info("login code resend failed", "email", maskEmail(snapshot.Email), "error", err)
		return s.State(browserID), err
	}
	return s.State(browserID), nil
}

// ChangeEmail abandons the current exchange and returns to the credentials step
func (s *LoginService) ChangeEmail(browserID uuid.UUID) State {
	s.challenges.remove(browserID)
	return State{Step: StepEnteringCredentials}
}

// Verify submits the code and resolves the exchange
func (s *LoginService) Verify(ctx context.Context, browserID uuid.UUID, code string) (State, error) {
	c, ok := s.challenges.get(browserID, s.nowFunc())
	if !ok || c.step != StepAwaitingCode {
		return State{Step: StepEnteringCredentials}, ErrNoChallenge
	}
	awaiting := s.stateOf(c)

	code = strings.TrimSpace(code)
	errs := validate.Errors{}
	errs.OTP("otp", code)
	if err := errs.Err(); err != nil {
		return awaiting, err
	}

	res, err := s.otp.VerifyLoginOTP(ctx, backend.VerifyOTPRequest{
		Email:   c.Email,
		Channel: c.Channel,
		OTP:     code,
	})
	if err != nil {
		s.countLogin("failed")
		s.logger.Info("login code rejected", "email", maskEmail(c.Email), "error", err)
		return s.State(browserID), err
	}

	switch {
	case res.PasswordResetRequired:
		s.challenges.remove(browserID)
		s.countLogin(OutcomeResetPassword.String())
		return State{
			Step:     StepResolved,
			Email:    c.Email,
			Outcome:  OutcomeResetPassword,
			Redirect: ResetPasswordPath + "?email=" + url.QueryEscape(c.Email),
		}, nil

	case res.FirstTimeUser:
		token := res.BearerToken()
		if token == "" {
			return awaiting, fmt.Errorf("verify login code: %w", errMissingToken)
		}
		pending := &model.Session{Token: token, User: res.User, CreatedAt: s.nowFunc().UTC()}
		err := s.challenges.update(browserID, s.nowFunc(), func(c *challenge) error {
			c.Pending = pending
			c.password = ""
			c.step = StepResolved
			c.outcome = OutcomeFirstTimeSetup
			return nil
		})
		if err != nil {
			return State{Step: StepEnteringCredentials}, err
		}
		s.countLogin(OutcomeFirstTimeSetup.String())
		return State{
			Step:     StepResolved,
			Email:    c.Email,
			Outcome:  OutcomeFirstTimeSetup,
			Redirect: SetupPath,
		}, nil
	}

	token := res.BearerToken()
	if token == "" {
		return awaiting, fmt.Errorf("verify login code: %w", errMissingToken)
	}
	if err := s.store.Set(ctx, browserID, token, res.User); err != nil {
		s.logger.Error("failed to store session", "browser_id", browserID, "error", err)
		return awaiting, err
	}
	s.challenges.remove(browserID)
	s.countLogin(OutcomeDashboard.String())
	s.logger.Info("user signed in", "email", maskEmail(c.Email), "browser_id", browserID)
	return State{
		Step:     StepResolved,
		Email:    c.Email,
		Outcome:  OutcomeDashboard,
		Redirect: DashboardPath,
	}, nil
}

var errMissingToken = errors.New("backend returned no session token")

// PendingUser returns the profile of a first-time user who has not finished setup
func (s *LoginService) PendingUser(browserID uuid.UUID) (*model.User, bool) {
	c, ok := s.challenges.get(browserID, s.nowFunc())
	if !ok || c.Pending == nil {
		return nil, false
	}
	u := c.Pending.User
	return &u, true
}

// CompleteSetup saves the first-time user's profile with their pending token
// and only then signs the browser in.
func (s *LoginService) CompleteSetup(ctx context.Context, browserID uuid.UUID, p model.Profile) (State, error) {
	c, ok := s.challenges.get(browserID, s.nowFunc())
	if !ok || c.Pending == nil {
		return State{Step: StepEnteringCredentials}, ErrNoPendingSetup
	}
	setup := s.stateOf(c)

	errs := validate.Errors{}
	errs.Required("firstname", p.Firstname)
	errs.Required("lastname", p.Lastname)
	errs.Required("organizationName", p.OrganizationName)
	if err := errs.Err(); err != nil {
		return setup, err
	}
	if p.Email == "" {
		p.Email = c.Email
	}

	saved, err := s.accounts.UpdateProfile(backend.WithToken(ctx, c.Pending.Token), p)
	if err != nil {
		if errors.Is(err, backend.ErrSessionExpired) {
			s.challenges.remove(browserID)
			return State{Step: StepEnteringCredentials}, err
		}
		return setup, err
	}

	user := c.Pending.User
	if saved != nil {
		if saved.OrganizationName != "" {
			user.OrganizationName = saved.OrganizationName
		}
		if name := strings.TrimSpace(saved.Firstname + " " + saved.Lastname); name != "" {
			user.Name = name
		}
	}
	if err := s.store.Set(ctx, browserID, c.Pending.Token, user); err != nil {
		s.logger.Error("failed to store session", "browser_id", browserID, "error", err)
		return setup, err
	}
	s.challenges.remove(browserID)
	s.logger.Info("first-time setup completed", "email", maskEmail(c.Email), "browser_id", browserID)
	return State{Step: StepResolved, Email: c.Email, Outcome: OutcomeDashboard, Redirect: DashboardPath}, nil
}

// ResetPassword replaces a temporary password. The browser must sign in again afterwards.
func (s *LoginService) ResetPassword(ctx context.Context, email, tempPassword, newPassword, confirm string) error {
	errs := validate.Errors{}
	errs.Email("email", email)
	errs.Required("tempPassword", tempPassword)
	errs.Password("newPassword", newPassword)
	errs.Confirm("confirmPassword", newPassword, confirm)
	if err := errs.Err(); err != nil {
		return err
	}
	return s.accounts.ResetPassword(ctx, backend.ResetPasswordRequest{
		Email:        strings.TrimSpace(email),
		TempPassword: tempPassword,
		NewPassword:  newPassword,
	})
}

// Logout ends the browser's session and any login in progress
func (s *LoginService) Logout(ctx context.Context, browserID uuid.UUID) error {
	s.challenges.remove(browserID)
	if err := s.store.Clear(ctx, browserID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SessionClears.WithLabelValues("logout").Inc()
	}
	return nil
}

func (s *LoginService) countOTP(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.countOTPResult(kind, result)
}

func (s *LoginService) countOTPResult(kind, result string) {
	if s.metrics != nil {
		s.metrics.OTPRequests.WithLabelValues(kind, result).Inc()
	}
}

func (s *LoginService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

// maskEmail keeps the first character of the local part and the domain
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
