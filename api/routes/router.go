package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumastore/storefront-backend/api/controllers"
	"github.com/lumastore/storefront-backend/api/middleware"
	"github.com/lumastore/storefront-backend/internal/cart"
	"github.com/lumastore/storefront-backend/internal/orders"
	"github.com/lumastore/storefront-backend/internal/settlement"
	"github.com/lumastore/storefront-backend/internal/wizard"
	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db"
	"github.com/lumastore/storefront-backend/pkg/logger"
	pkgredis "github.com/lumastore/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	wizardService wizard.Service,
	ordersService orders.Service,
	settlementService settlement.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadyDeps(dbP, redisClient)))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Tenant.DefaultID, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(cartService, logg))
			r.Post("/items", controllers.AddCartItem(cartService, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(cartService, logg))
			r.Delete("/", controllers.ClearCart(cartService, logg))
			r.Post("/open", controllers.SetCartOpen(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.GetCheckout(wizardService, logg))
			r.Post("/advance", controllers.AdvanceCheckout(wizardService, logg))
			r.Post("/jump", controllers.JumpCheckout(wizardService, logg))
			r.Post("/submit", controllers.SubmitCheckout(wizardService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Post("/{orderID}/status", controllers.UpdateOrderStatus(ordersService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/config", controllers.PaymentsConfig(settlementService, logg))
			r.With(middleware.ChargeRateLimit(redisClient, cfg.Payment.ChargeLimit, cfg.Payment.ChargeWindow, logg)).
				Post("/charge", controllers.Charge(settlementService, logg))
			r.Post("/subscription", controllers.Subscription(settlementService, logg))
		})
	})

	return r
}
