package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anaghvyas/trystyle-backend/api/controllers"
	"github.com/anaghvyas/trystyle-backend/api/middleware"
	"github.com/anaghvyas/trystyle-backend/internal/coupons"
	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	"github.com/anaghvyas/trystyle-backend/internal/notifications"
	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/internal/payments"
	"github.com/anaghvyas/trystyle-backend/internal/pricing"
	"github.com/anaghvyas/trystyle-backend/internal/reservations"
	"github.com/anaghvyas/trystyle-backend/pkg/auth"
	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
	pkgredis "github.com/anaghvyas/trystyle-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	reservationsService reservations.Service,
	ordersService orders.Service,
	couponsService coupons.Service,
	pricingEngine *pricing.Engine,
	inventoryService inventory.Service,
	notificationsService notifications.Service,
	paymentsService payments.Service,
) http.Handler {
	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Gateway callbacks authenticate by signature, not bearer token.
	r.Post("/api/v1/payments/webhook/{gateway}", controllers.PaymentWebhook(paymentsService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", controllers.ListHolds(reservationsService, logg))
			r.Post("/reserve-items", controllers.ReserveItems(reservationsService, logg))
			r.Post("/confirm", controllers.ConfirmReservations(reservationsService, logg))
			r.Post("/release", controllers.ReleaseReservations(reservationsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Post("/create", controllers.CreateOrder(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.Get("/{orderId}/track", controllers.TrackOrder(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/{orderId}/return", controllers.ReturnOrder(ordersService, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", controllers.ValidateCoupon(couponsService, logg))
			r.Post("/apply", controllers.ApplyCoupon(couponsService, logg))
		})

		r.Post("/tax/calculate", controllers.CalculateTax(pricingEngine, logg))

		r.Get("/inventory/{productId}/availability", controllers.GetAvailability(inventoryService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-intent", controllers.CreatePaymentIntent(paymentsService, logg))
			r.Post("/verify-payment", controllers.VerifyPayment(paymentsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(auth.RoleAdmin), logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))

		r.Post("/orders/{orderId}/status", controllers.UpdateOrderStatus(ordersService, logg))
		r.Post("/inventory/restock", controllers.Restock(inventoryService, logg))
		r.Post("/payments/refund", controllers.RefundPayment(paymentsService, logg))
	})

	return r
}
