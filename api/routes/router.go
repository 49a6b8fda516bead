package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evanrosales/shopsphere-backend/api/controllers"
	"github.com/evanrosales/shopsphere-backend/api/middleware"
	cartsvc "github.com/evanrosales/shopsphere-backend/internal/cart"
	catalogsvc "github.com/evanrosales/shopsphere-backend/internal/catalog"
	checkoutsvc "github.com/evanrosales/shopsphere-backend/internal/checkout"
	feedsvc "github.com/evanrosales/shopsphere-backend/internal/feed"
	ordersvc "github.com/evanrosales/shopsphere-backend/internal/orders"
	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
	"github.com/evanrosales/shopsphere-backend/pkg/redis"
)

// Services groups everything the router needs behind the HTTP surface.
type Services struct {
	Catalog  catalogsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Feed     feedsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A typed-nil redis client must read as "skipped", not panic the probe.
	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Provider callbacks authenticate out of band, not with user JWTs.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", controllers.PaymentWebhook(svcs.Orders, logg))
	})

	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(svcs.Catalog, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
				r.Post("/", controllers.CreateProduct(svcs.Catalog, logg))
				r.Patch("/{productID}", controllers.UpdateProduct(svcs.Catalog, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(svcs.Catalog, logg))
				r.Patch("/{productID}/approval", controllers.SetProductApproval(svcs.Catalog, logg))
				r.Post("/{productID}/variants", controllers.AddVariant(svcs.Catalog, logg))
				r.Patch("/{productID}/variants/{variantID}", controllers.UpdateVariant(svcs.Catalog, logg))
				r.Delete("/{productID}/variants/{variantID}", controllers.RemoveVariant(svcs.Catalog, logg))
				r.Post("/{productID}/stock-adjustments", controllers.AdjustStock(svcs.Catalog, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{itemID}", controllers.CartSetQuantity(svcs.Cart, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/checkout", controllers.CheckoutCart(svcs.Checkout, logg))
		})

		r.Post("/checkout/buy-now", controllers.BuyNow(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(svcs.Orders, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Patch("/{orderID}/status", controllers.OrderTransition(svcs.Orders, logg))
		})

		r.Route("/feed", func(r chi.Router) {
			r.Get("/", controllers.FeedList(svcs.Feed, logg))
			r.Post("/", controllers.FeedCreatePost(svcs.Feed, logg))
			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", controllers.FeedGetPost(svcs.Feed, logg))
				r.Delete("/", controllers.FeedDeletePost(svcs.Feed, logg))
				r.Post("/comments", controllers.FeedAddComment(svcs.Feed, logg))
				r.Post("/like", controllers.FeedLike(svcs.Feed, logg))
				r.Delete("/like", controllers.FeedUnlike(svcs.Feed, logg))
			})
		})
	})

	return r
}
