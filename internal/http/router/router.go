package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcel-dispatch/internal/http/handlers"
	"parcel-dispatch/internal/http/middleware"
	"parcel-dispatch/internal/http/middleware/ratelimit"
	"parcel-dispatch/internal/logx"
)

// New constructs a chi-based http.Handler with base middleware and routes.
func New(
	logger logx.Logger,
	base *handlers.Handlers,
	drivers *handlers.DriverHandler,
	deliveries *handlers.DeliveryHandler,
	rl *ratelimit.Middleware,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(middleware.Observability(logger))
	if rl != nil {
		r.Use(rl.Handler())
	}

	r.Get("/ping", base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/driver", func(r chi.Router) {
		r.Post("/", drivers.Create)
		r.Put("/", drivers.Update)
		r.Get("/{id}", drivers.GetByID)
		r.Post("/{id}/heartbeat", drivers.Heartbeat)
	})
	r.Get("/drivers", drivers.List)

	r.Route("/delivery", func(r chi.Router) {
		r.Post("/", deliveries.Create)
		r.Get("/{id}", deliveries.GetByID)
		r.Post("/{id}/accept", deliveries.Accept)
		r.Patch("/{id}/status", deliveries.AdvanceStatus)
		r.Post("/{id}/cancel", deliveries.Cancel)
		r.Get("/{id}/track", deliveries.Track)
		r.Post("/{id}/rebroadcast", deliveries.Rebroadcast)
		r.Post("/{id}/rating", deliveries.Rate)
	})

	r.NotFound(http.HandlerFunc(base.NotFound))

	return r
}
