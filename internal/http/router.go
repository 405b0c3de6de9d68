package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/http/handlers"
	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/middleware"
	"github.com/paydesk/server/internal/session"
)

// Deps are the services the router wires into handlers
type Deps struct {
	Logger       *slog.Logger
	JWT          *auth.JWTService
	Login        *auth.LoginService
	Store        *session.Store
	API          *backend.Client
	Metrics      *metrics.Metrics
	MetricsPage  http.Handler
	DB           handlers.Pinger
	CookieSecure bool
	// LoginLimiter throttles the unauthenticated login endpoints per IP
	LoginLimiter *middleware.RateLimiter
	// CodeLimiter throttles code verification and resends per browser
	CodeLimiter *middleware.RateLimiter
}

// Code attempts allowed per browser in one window
const maxCodeAttempts = 10

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	if d.LoginLimiter == nil {
		d.LoginLimiter = middleware.NewRateLimiter(10*time.Minute, 20)
	}
	if d.CodeLimiter == nil {
		d.CodeLimiter = middleware.NewRateLimiter(10*time.Minute, maxCodeAttempts)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler(d.DB).ServeHTTP)
	if d.MetricsPage != nil {
		r.Handle("/metrics", d.MetricsPage)
	}

	authHandler := handlers.NewAuthHandler(d.Login, d.Logger)
	dashboardHandler := handlers.NewDashboardHandler(d.API, d.Logger)
	paymentHandler := handlers.NewPaymentHandler(d.API, d.Logger)
	collectionHandler := handlers.NewCollectionHandler(d.API, d.Logger)
	recurringHandler := handlers.NewRecurringHandler(d.API, d.Logger)
	settingsHandler := handlers.NewSettingsHandler(d.API, d.Logger)
	userHandler := handlers.NewUserHandler(d.API, d.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BrowserIdentity(d.JWT, d.CookieSecure, d.Logger))
		r.Use(middleware.SessionExpiry)

		// Public: the login exchange and the screens it resolves to
		r.Route("/login", func(r chi.Router) {
			r.Get("/", authHandler.HandleLoginState)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitMiddleware(d.LoginLimiter, middleware.GetIPKey))
				r.Post("/", authHandler.HandleLogin)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimitMiddleware(d.CodeLimiter, middleware.GetBrowserKey))
					r.Post("/resend", authHandler.HandleResend)
					r.Post("/verify", authHandler.HandleVerify)
				})
			})
			r.Post("/change-email", authHandler.HandleChangeEmail)
		})
		r.With(middleware.RateLimitMiddleware(d.LoginLimiter, middleware.GetIPKey)).
			Post("/reset-password", authHandler.HandleResetPassword)
		r.Get("/setup", authHandler.HandleSetupState)
		r.Post("/setup", authHandler.HandleCompleteSetup)
		r.Post("/logout", authHandler.HandleLogout)

		// Protected routes (require a signed-in browser)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(d.Store, d.Metrics))

			r.Get("/me", userHandler.HandleMe)
			r.Get("/dashboard", dashboardHandler.HandleDashboard)

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", paymentHandler.HandleList)
				r.Post("/", paymentHandler.HandleCreate)
				r.Post("/bulk", paymentHandler.HandleBulk)
				r.Get("/summary", paymentHandler.HandleSummary)
				r.Get("/trends", paymentHandler.HandleTrends)
				r.Post("/name-enquiry", paymentHandler.HandleNameEnquiry)
				r.Post("/send-otp", paymentHandler.HandleSendOTP)
				r.Post("/verify-otp", paymentHandler.HandleVerifyOTP)
				r.Get("/approvals", paymentHandler.HandleApprovals)
				r.Get("/{id}/status", paymentHandler.HandleStatus)
				r.Post("/{id}/approve", paymentHandler.HandleApprove)
				r.Post("/{id}/reject", paymentHandler.HandleReject)
			})

			r.Route("/collections", func(r chi.Router) {
				r.Get("/", collectionHandler.HandleList)
				r.Post("/", collectionHandler.HandleCreate)
				r.Get("/summary", collectionHandler.HandleSummary)
				r.Get("/trends", collectionHandler.HandleTrends)
			})

			r.Route("/recurring/subscriptions", func(r chi.Router) {
				r.Post("/", recurringHandler.HandleCreate)
				r.Post("/{id}/authorize", recurringHandler.HandleAuthorize)
				r.Post("/{id}/resend-otp", recurringHandler.HandleResendOTP)
				r.Post("/{id}/first-installment", recurringHandler.HandleFirstInstallment)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/profile", settingsHandler.HandleProfile)
				r.Put("/profile", settingsHandler.HandleUpdateProfile)
				r.Post("/credentials", settingsHandler.HandleRegenerateCredentials)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.HandleList)
				r.Post("/", userHandler.HandleRegister)
			})
		})
	})

	return r
}
