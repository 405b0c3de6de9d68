package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/repo"
	"github.com/paydesk/server/internal/session"
	"github.com/paydesk/server/internal/validate"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBackend stands in for the payments backend's login endpoints
type fakeBackend struct {
	mu       sync.Mutex
	requests []backend.OTPRequest
	verifies []backend.VerifyOTPRequest
	resets   []backend.ResetPasswordRequest
	updates  []model.Profile

	requestErr error
	verifyErr  error
	result     backend.VerifyOTPResult
}

func (f *fakeBackend) RequestLoginOTP(_ context.Context, req backend.OTPRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.requestErr
}

func (f *fakeBackend) VerifyLoginOTP(_ context.Context, req backend.VerifyOTPRequest) (*backend.VerifyOTPResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies = append(f.verifies, req)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	res := f.result
	return &res, nil
}

func (f *fakeBackend) ResetPassword(_ context.Context, req backend.ResetPasswordRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, req)
	return nil
}

func (f *fakeBackend) UpdateProfile(_ context.Context, p model.Profile) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
	return &p, nil
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fixture struct {
	svc     *LoginService
	backend *fakeBackend
	store   *session.Store
	metrics *metrics.Metrics
	now     time.Time
	browser uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: &fakeBackend{},
		store:   session.NewStore(repo.NewMemorySessionRepo(), quietLogger),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		browser: uuid.New(),
	}
	_, f.metrics = metrics.NewRegistry()
	f.svc = NewLoginService(f.backend, f.backend, f.store, f.metrics, quietLogger, LoginConfig{
		ResendCooldown: 60 * time.Second,
	})
	f.svc.nowFunc = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) start(t *testing.T) {
	t.Helper()
	st, err := f.svc.Start(context.Background(), f.browser, "a@b.com", "x", "")
	require.NoError(t, err)
	require.Equal(t, StepAwaitingCode, st.Step)
}

func TestLogin_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.backend.result = backend.VerifyOTPResult{
		Token: "tok-1",
		User:  model.User{ID: "u1", Name: "Ama", Email: "a@b.com"},
	}
	ctx := context.Background()

	st, err := f.svc.Start(ctx, f.browser, "a@b.com", "x", "")
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingCode, st.Step)
	assert.Equal(t, model.ChannelEmail, st.Channel)
	require.Len(t, f.backend.requests, 1)
	assert.Equal(t, backend.OTPRequest{Email: "a@b.com", Password: "x", Channel: model.ChannelEmail, Purpose: model.PurposeLogin}, f.backend.requests[0])

	st, err = f.svc.Verify(ctx, f.browser, "123456")
	require.NoError(t, err)
	assert.Equal(t, StepResolved, st.Step)
	assert.Equal(t, OutcomeDashboard, st.Outcome)
	assert.Equal(t, DashboardPath, st.Redirect)

	token, ok := f.store.Token(ctx, f.browser)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)
	user, ok := f.store.User(ctx, f.browser)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)

	assert.Equal(t, StepEnteringCredentials, f.svc.State(f.browser).Step, "challenge is discarded on success")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues("dashboard")))
}

func TestLogin_ForcedResetWritesNoSession(t *testing.T) {
	f := newFixture(t)
	f.backend.result = backend.VerifyOTPResult{Token: "tok-1", PasswordResetRequired: true}
	f.start(t)

	st, err := f.svc.Verify(context.Background(), f.browser, "123456")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResetPassword, st.Outcome)
	assert.Equal(t, "a@b.com", st.Email)
	assert.Equal(t, ResetPasswordPath+"?email=a%40b.com", st.Redirect)
	assert.False(t, f.store.IsAuthenticated(context.Background(), f.browser))
}

func TestLogin_ResetTakesPrecedenceOverFirstTime(t *testing.T) {
	f := newFixture(t)
	f.backend.result = backend.VerifyOTPResult{Token: "tok-1", PasswordResetRequired: true, FirstTimeUser: true}
	f.start(t)

	st, err := f.svc.Verify(context.Background(), f.browser, "123456")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResetPassword, st.Outcome)
}

func TestLogin_ResendCooldown(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	st, err := f.svc.Resend(ctx, f.browser)
	require.ErrorIs(t, err, ErrResendCooldown)
	assert.Equal(t, StepAwaitingCode, st.Step)
	assert.Equal(t, 60*time.Second, st.ResendIn)
	assert.Equal(t, 1, f.backend.requestCount(), "no network call inside the cooldown")

	f.advance(59 * time.Second)
	_, err = f.svc.Resend(ctx, f.browser)
	require.ErrorIs(t, err, ErrResendCooldown)
	assert.Equal(t, 1, f.backend.requestCount())

	f.advance(time.Second)
	st, err = f.svc.Resend(ctx, f.browser)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingCode, st.Step)
	assert.Equal(t, 60*time.Second, st.ResendIn, "a successful resend restarts the window")
	assert.Equal(t, 2, f.backend.requestCount())
	assert.Equal(t, "x", f.backend.requests[1].Password)

	_, err = f.svc.Resend(ctx, f.browser)
	require.ErrorIs(t, err, ErrResendCooldown)
	assert.Equal(t, 2, f.backend.requestCount())
}

func TestLogin_FailedResendFreesTheSlot(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.advance(time.Minute)

	f.backend.requestErr = &backend.Error{Status: 503, Detail: "SMS gateway down"}
	_, err := f.svc.Resend(context.Background(), f.browser)
	require.Error(t, err)
	assert.Equal(t, "SMS gateway down", backend.Message(err))

	f.backend.requestErr = nil
	_, err = f.svc.Resend(context.Background(), f.browser)
	require.NoError(t, err)
}

func TestLogin_ConcurrentResendSendsOnce(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.advance(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Resend(context.Background(), f.browser)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, f.backend.requestCount())
}

func TestLogin_ValidationNeverReachesBackend(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.Start(context.Background(), f.browser, "not-an-email", "", "PIGEON")
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "email")
	assert.Contains(t, verrs, "password")
	assert.Contains(t, verrs, "channel")
	assert.Equal(t, StepEnteringCredentials, st.Step)
	assert.Zero(t, f.backend.requestCount())

	f.start(t)
	st, err = f.svc.Verify(context.Background(), f.browser, "12ab")
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, StepAwaitingCode, st.Step)
	assert.Empty(t, f.backend.verifies)
}

func TestLogin_BackendRejectionKeepsStep(t *testing.T) {
	f := newFixture(t)
	f.backend.requestErr = &backend.Error{Status: 401, Message: "Invalid email or password"}

	st, err := f.svc.Start(context.Background(), f.browser, "a@b.com", "wrong", "")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", backend.Message(err))
	assert.Equal(t, StepEnteringCredentials, st.Step)

	f.backend.requestErr = nil
	f.start(t)
	f.backend.verifyErr = &backend.Error{Status: 400, Detail: "Invalid OTP"}
	st, err = f.svc.Verify(context.Background(), f.browser, "000000")
	require.Error(t, err)
	assert.Equal(t, StepAwaitingCode, st.Step)
	assert.Equal(t, "a@b.com", st.Email)
	assert.False(t, f.store.IsAuthenticated(context.Background(), f.browser))
}

func TestLogin_VerifyWithoutChallenge(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.Verify(context.Background(), f.browser, "123456")
	require.ErrorIs(t, err, ErrNoChallenge)
	assert.Equal(t, StepEnteringCredentials, st.Step)
	assert.Empty(t, f.backend.verifies)
}

func TestLogin_ChangeEmailDiscardsChallenge(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	st := f.svc.ChangeEmail(f.browser)
	assert.Equal(t, StepEnteringCredentials, st.Step)
	_, err := f.svc.Resend(context.Background(), f.browser)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestLogin_FirstTimeSetup(t *testing.T) {
	f := newFixture(t)
	f.backend.result = backend.VerifyOTPResult{
		AccessToken:   "pending-tok",
		User:          model.User{ID: "u9", Email: "a@b.com"},
		FirstTimeUser: true,
	}
	f.start(t)
	ctx := context.Background()

	st, err := f.svc.Verify(ctx, f.browser, "123456")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFirstTimeSetup, st.Outcome)
	assert.Equal(t, SetupPath, st.Redirect)
	assert.False(t, f.store.IsAuthenticated(ctx, f.browser), "no session until setup completes")

	pending, ok := f.svc.PendingUser(f.browser)
	require.True(t, ok)
	assert.Equal(t, "u9", pending.ID)

	_, err = f.svc.CompleteSetup(ctx, f.browser, model.Profile{Firstname: "Ama"})
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Empty(t, f.backend.updates)

	st, err = f.svc.CompleteSetup(ctx, f.browser, model.Profile{Firstname: "Ama", Lastname: "Mensah", OrganizationName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDashboard, st.Outcome)
	require.Len(t, f.backend.updates, 1)
	assert.Equal(t, "a@b.com", f.backend.updates[0].Email)

	user, ok := f.store.User(ctx, f.browser)
	require.True(t, ok)
	assert.Equal(t, "Acme", user.OrganizationName)
	assert.Equal(t, "Ama Mensah", user.Name)
	token, _ := f.store.Token(ctx, f.browser)
	assert.Equal(t, "pending-tok", token)

	_, err = f.svc.CompleteSetup(ctx, f.browser, model.Profile{})
	assert.ErrorIs(t, err, ErrNoPendingSetup)
}

func TestLogin_ChallengeExpiresWhenIdle(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	f.advance(challengeIdleExpiry + time.Second)
	_, err := f.svc.Verify(context.Background(), f.browser, "123456")
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestChallengeTable_Sweep(t *testing.T) {
	tbl := newChallengeTable(time.Minute)
	now := time.Now()
	tbl.put(uuid.New(), challenge{step: StepAwaitingCode}, now.Add(-2*time.Minute))
	tbl.put(uuid.New(), challenge{step: StepAwaitingCode}, now)

	assert.Equal(t, 1, tbl.sweep(now))
	assert.Equal(t, 1, tbl.size())
}

func TestLogin_ResetPasswordValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ResetPassword(ctx, "a@b.com", "temp", "weak", "weak")
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "newPassword")

	err = f.svc.ResetPassword(ctx, "a@b.com", "temp", "Str0ng!pass", "Str0ng!pas")
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "confirmPassword")
	assert.Empty(t, f.backend.resets)

	require.NoError(t, f.svc.ResetPassword(ctx, "a@b.com", "temp", "Str0ng!pass", "Str0ng!pass"))
	require.Len(t, f.backend.resets, 1)
	assert.Equal(t, "Str0ng!pass", f.backend.resets[0].NewPassword)
}

func TestLogin_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, f.browser, "tok", model.User{ID: "u1"}))

	require.NoError(t, f.svc.Logout(ctx, f.browser))
	require.NoError(t, f.svc.Logout(ctx, f.browser))
	assert.False(t, f.store.IsAuthenticated(ctx, f.browser))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SessionClears.WithLabelValues("logout")))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@b.com", maskEmail("ama@b.com"))
	assert.Equal(t, "***", maskEmail("nope"))
	assert.Equal(t, "***", maskEmail("@b.com"))
}

func TestStepAndOutcomeNames(t *testing.T) {
	b, err := StepAwaitingCode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "awaiting_code", string(b))
	assert.Equal(t, "first_time_setup", OutcomeFirstTimeSetup.String())
}
