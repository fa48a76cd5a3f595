package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Payments       *PaymentHandler
	Redirects      *RedirectHandler
	Carts          *CartHandler
	Auth           *AuthHandler
	Tokens         TokenService
	Admins         AdminChecker
	Limiter        *RateLimiter
	Health         map[string]Pinger
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/jwt", d.Auth.IssueToken)

	r.Get("/carts", d.Carts.GetCart)
	r.Post("/carts", d.Carts.AddItem)
	r.Delete("/carts/{id}", d.Carts.RemoveItem)

	r.Group(func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		r.Post("/create-payment-intent", d.Payments.CreateIntent)
		r.Post("/payments", d.Payments.ConfirmPayment)
		r.Post("/create-payment", d.Redirects.CreatePayment)
	})

	// Gateway callbacks are posted by the hosted page and carry no token.
	r.Post("/success-payment", d.Redirects.Success)
	r.Post("/fail", d.Redirects.Fail)
	r.Post("/cancle", d.Redirects.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Tokens))
		r.Get("/payments/{email}", d.Payments.ListForOwner)

		r.With(AdminMiddleware(d.Admins, d.Logger)).Get("/ssl", d.Payments.ListRedirects)
	})

	return otelhttp.NewHandler(r, "bistro-http")
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		respondJSON(w, code, status)
	}
}
