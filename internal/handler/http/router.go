package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/health"
	"github.com/agromart/marketplace/pkg/middleware"
)

// Services are the use cases the router exposes.
type Services struct {
	Catalog      Catalog
	Search       Searcher
	Registration Registrar
	Auth         Authenticator
	Profiles     Profiles
	Carts        Carts
	Checkout     Checkout
	Consultants  Consultants
	Templates    Templates
}

// RouterConfig wires the router. MediaRoot is the directory served under
// MediaPrefix; leave it empty when images live elsewhere.
type RouterConfig struct {
	Services       Services
	Tokens         middleware.TokenVerifier
	Health         *health.Handler
	OTPLimiter     *middleware.RateLimiter
	VerifyLimiter  *middleware.RateLimiter
	CORS           middleware.CORSConfig
	MediaRoot      string
	MediaPrefix    string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

var (
	roleUser       = string(domain.RoleUser)
	roleSeller     = string(domain.RoleSeller)
	roleConsultant = string(domain.RoleConsultant)
)

// NewRouter creates a chi router with every marketplace route registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	svc := cfg.Services
	authn := middleware.Authenticate(cfg.Tokens, logger)
	only := func(roles ...string) func(http.Handler) http.Handler {
		return middleware.RequireRole(logger, roles...)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORS))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.MediaRoot != "" {
		prefix := "/" + strings.Trim(cfg.MediaPrefix, "/")
		r.With(middleware.CacheControl(24*time.Hour)).
			Handle(prefix+"/*", http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(cfg.MediaRoot)))))
	}

	products := NewProductHandler(svc.Catalog, svc.Search, cfg.MaxUploadBytes, logger)
	consultants := NewConsultantHandler(svc.Consultants, cfg.MaxUploadBytes, logger)
	cart := NewCartHandler(svc.Carts, svc.Checkout, logger)
	profile := NewProfileHandler(svc.Profiles, svc.Registration, logger)
	templates := NewTemplateHandler(svc.Templates, cfg.MaxUploadBytes, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/categories", products.Categories)
			r.Get("/recent", products.Recent)
			r.Get("/category/{category}", products.ListByCategory)
			r.With(middleware.OptionalAuth(cfg.Tokens, logger)).Get("/search", products.Search)
			r.With(authn, only(roleUser)).Get("/suggestions", products.Suggestions)
			r.Get("/{id}", products.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(authn, only(roleSeller))
				r.Post("/", products.AddProduct)
				r.Put("/{id}", products.UpdateProduct)
			})
		})

		for _, role := range []domain.Role{domain.RoleUser, domain.RoleSeller, domain.RoleConsultant} {
			accounts := NewAccountHandler(role, svc.Registration, svc.Auth, logger)
			r.Route("/"+string(role)+"s", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(rateLimited(cfg.OTPLimiter))
					if role != domain.RoleUser {
						r.Post("/send-email-otp", accounts.SendEmailOTP)
					}
					r.Post("/send-otp", accounts.SendPhoneOTP)
				})
				r.Group(func(r chi.Router) {
					r.Use(rateLimited(cfg.VerifyLimiter))
					if role != domain.RoleUser {
						r.Post("/verify-email-otp", accounts.VerifyEmailOTP)
					}
					r.Post("/verify-otp", accounts.VerifyPhoneOTP)
				})
				r.Post("/signup", accounts.Signup)
				r.Post("/login", accounts.Login)
				r.Post("/refresh-token", accounts.RefreshToken)
				r.With(authn, only(string(role))).Get("/me", accounts.Me)

				if role == domain.RoleConsultant {
					r.Get("/", consultants.List)
					r.Get("/{id}/booked-slots", consultants.BookedSlots)
					r.With(authn, only(roleConsultant)).Put("/profile", consultants.UpdateProfile)

					r.Route("/appointments", func(r chi.Router) {
						r.Use(authn)
						r.With(only(roleUser)).Post("/", consultants.Book)
						r.With(only(roleUser)).Get("/", consultants.UserAppointments)
						r.With(only(roleConsultant)).Get("/consultant", consultants.ConsultantAppointments)
						r.With(only(roleConsultant)).Patch("/{id}/status", consultants.UpdateStatus)
					})
				}
			})
		}

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn, only(roleUser))
			r.Get("/", cart.GetCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{productID}", cart.UpdateItem)
			r.Delete("/items/{productID}", cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(authn, only(roleUser))
			r.Get("/summary", cart.Summary)
			r.Post("/orders", cart.PlaceOrder)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(authn, only(roleUser))
			r.Get("/addresses", profile.ListAddresses)
			r.Post("/addresses", profile.AddAddress)
			r.Put("/addresses/{id}", profile.UpdateAddress)
			r.Delete("/addresses/{id}", profile.DeleteAddress)
			r.Put("/name", profile.UpdateName)
			r.Put("/password", profile.ChangePassword)
			r.With(rateLimited(cfg.OTPLimiter)).Post("/phone/send-otp", profile.SendPhoneOTP)
			r.With(rateLimited(cfg.VerifyLimiter)).Post("/phone/verify-otp", profile.VerifyPhoneOTP)
			r.Put("/phone", profile.UpdatePhone)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templates.List)
			r.Group(func(r chi.Router) {
				r.Use(authn, only(roleSeller))
				r.Post("/", templates.Upload)
				r.Delete("/{filename}", templates.Delete)
			})
		})
	})

	return r
}

// rateLimited applies rl, or nothing when rl is nil.
func rateLimited(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// noListing hides directory indexes of the media root.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
