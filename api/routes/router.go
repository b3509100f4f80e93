package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hirelanka/marketplace-backend/api/controllers"
	"github.com/hirelanka/marketplace-backend/api/middleware"
	"github.com/hirelanka/marketplace-backend/internal/escrow"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/internal/payments"
	payherewebhook "github.com/hirelanka/marketplace-backend/internal/webhooks/payhere"
	"github.com/hirelanka/marketplace-backend/pkg/config"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/metrics"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
	pkgredis "github.com/hirelanka/marketplace-backend/pkg/redis"
	"github.com/hirelanka/marketplace-backend/pkg/telemetry"
)

// requestStore backs both request idempotency and rate limiting.
type requestStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    requestStore
	Gatherer prometheus.Gatherer

	Orders        orders.Service
	Bookings      orders.BookingService
	Payments      payments.Service
	Escrow        escrow.Service
	Notifications notifications.Service

	Signer       payhere.Signer
	WebhookGuard *payherewebhook.IdempotencyGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.PayHere.ClientURL),
	)
	if cfg.Telemetry.Enabled {
		r.Use(telemetry.Middleware("hirelanka-" + cfg.Service.Kind))
	}

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		if pinger, ok := deps.Redis.(controllers.Pinger); ok {
			ready["redis"] = pinger
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ready, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	store := deps.Redis
	window := cfg.RateLimit.Window

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(middleware.NewRateLimitPolicy("webhook", window, cfg.RateLimit.WebhookLimit), store, logg))
			webhook := controllers.PaymentWebhook(deps.Payments, deps.Signer, nil, logg)
			if deps.WebhookGuard != nil {
				webhook = controllers.PaymentWebhook(deps.Payments, deps.Signer, deps.WebhookGuard, logg)
			}
			r.Post("/payments/webhook", webhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if store != nil {
				r.Use(middleware.Idempotency(store, logg))
			}

			r.Post("/orders", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/orders/mine", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/orders/selling", controllers.ListSellingOrders(deps.Orders, logg))
			r.Get("/orders/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))

			r.Post("/bookings", controllers.CreateBooking(deps.Bookings, logg))
			r.Get("/bookings/mine", controllers.ListMyBookings(deps.Bookings, logg))
			r.Get("/bookings/provided", controllers.ListProvidedBookings(deps.Bookings, logg))
			r.Get("/bookings/{bookingId}", controllers.GetBooking(deps.Bookings, logg))
			r.Patch("/bookings/{bookingId}/status", controllers.UpdateBookingStatus(deps.Bookings, logg))
			r.Post("/bookings/{bookingId}/review", controllers.ReviewBooking(deps.Bookings, logg))

			r.With(middleware.RateLimit(middleware.NewRateLimitPolicy("checkout", window, cfg.RateLimit.CheckoutLimit), store, logg)).
				Post("/payments/checkout", controllers.InitiateCheckout(deps.Payments, logg))
			r.Get("/payments/history", controllers.PaymentHistory(deps.Payments, logg))
			r.Post("/payments/{paymentId}/release", controllers.ReleaseEscrow(deps.Escrow, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
