package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kachabazaar/kachabazaar-backend/api/controllers"
	ordercontrollers "github.com/kachabazaar/kachabazaar-backend/api/controllers/orders"
	webhookcontrollers "github.com/kachabazaar/kachabazaar-backend/api/controllers/webhooks"
	"github.com/kachabazaar/kachabazaar-backend/api/middleware"
	"github.com/kachabazaar/kachabazaar-backend/internal/notifications"
	"github.com/kachabazaar/kachabazaar-backend/internal/orders"
	"github.com/kachabazaar/kachabazaar-backend/internal/payments"
	"github.com/kachabazaar/kachabazaar-backend/internal/webhooks"
	"github.com/kachabazaar/kachabazaar-backend/pkg/config"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db"
	"github.com/kachabazaar/kachabazaar-backend/pkg/logger"
	pkgredis "github.com/kachabazaar/kachabazaar-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	webhooksSvc webhooks.Service,
	notificationsSvc notifications.Service,
) http.Handler {
	var (
		idemStore   pkgredis.IdempotencyStore
		cachePinger pkgredis.Pinger
	)
	if redisClient != nil {
		idemStore = redisClient
		cachePinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Gateway deliveries authenticate with their own HMAC, not a principal.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.Razorpay(webhooksSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Principal(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-order", controllers.CreatePaymentOrder(ordersSvc, logg))
			r.Post("/verify", controllers.VerifyPayment(paymentsSvc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/admission", ordercontrollers.Admission(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/{orderId}/accept", ordercontrollers.Accept(paymentsSvc, logg))
			r.Post("/{orderId}/processing", ordercontrollers.MarkProcessing(paymentsSvc, logg))
			r.Post("/{orderId}/ship", ordercontrollers.Ship(paymentsSvc, logg))
			r.Post("/{orderId}/complete", ordercontrollers.Complete(paymentsSvc, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(paymentsSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, logg))
		})
	})

	return r
}
