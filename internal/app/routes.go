package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFoundResponse)
	mux.MethodNotAllowed(app.methodNotAllowedResponse)

	mux.Use(middleware.RequestID)
	mux.Use(app.recoverPanic)
	mux.Use(app.logRequest)

	// the websocket endpoint loads the session itself, the wrapped writers of
	// the session and tracing middlewares get in the way of the upgrade
	mux.Get("/showtimes/ws", app.ServeRealtime)
	mux.Handle("/metrics", promhttp.HandlerFor(app.promRegistry, promhttp.HandlerOpts{}))

	mux.Group(func(r chi.Router) {
		r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(mux)))
		r.Use(middleware.Logger)
		r.Use(app.recordMetrics)

		r.Get("/healthcheck", app.GetHealth)
		r.Post("/webhook", app.StripeWebhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.sessionManager.LoadAndSave)
			r.Use(app.ensureGuestUserSession)

			r.Get("/showtimes/{showtimeId}/seats", app.GetSeatMapByShowtime)

			r.Post("/sessions", app.Login)
			r.Delete("/sessions", app.Logout)

			r.Group(func(r chi.Router) {
				r.Use(app.requireAuthentication)

				r.Post("/showtimes/{showtimeId}/checkout", app.CreateCheckoutSessionHandler)
				r.Get("/bookings/{code}", app.GetBookingByCode)

				r.With(app.requireStaff).Post("/admin/showtimes/{showtimeId}/bookings", app.CreateBoxOfficeBooking)
			})
		})
	})

	return mux
}
