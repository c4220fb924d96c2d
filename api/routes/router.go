package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadleaf/threadleaf-backend/api/controllers/address"
	cartcontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/cart"
	catalogcontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/catalog"
	couponcontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/coupons"
	ordercontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/orders"
	returncontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/returns"
	shipmentcontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/shipments"
	wishlistcontrollers "github.com/threadleaf/threadleaf-backend/api/controllers/wishlist"
	"github.com/threadleaf/threadleaf-backend/api/handlers"
	"github.com/threadleaf/threadleaf-backend/api/middleware"
	internaladdress "github.com/threadleaf/threadleaf-backend/internal/address"
	internalcart "github.com/threadleaf/threadleaf-backend/internal/cart"
	internalcatalog "github.com/threadleaf/threadleaf-backend/internal/catalog"
	internalcoupons "github.com/threadleaf/threadleaf-backend/internal/coupons"
	internalorders "github.com/threadleaf/threadleaf-backend/internal/orders"
	internalreturns "github.com/threadleaf/threadleaf-backend/internal/returns"
	"github.com/threadleaf/threadleaf-backend/internal/shipping"
	internalwishlist "github.com/threadleaf/threadleaf-backend/internal/wishlist"
	"github.com/threadleaf/threadleaf-backend/pkg/config"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
	"github.com/threadleaf/threadleaf-backend/pkg/metrics"
	"github.com/threadleaf/threadleaf-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Catalog  internalcatalog.Service
	Coupons  internalcoupons.Service
	Orders   internalorders.Service
	Returns  internalreturns.Service
	Cart     internalcart.Service
	Wishlist internalwishlist.Service
	Address  internaladdress.Service
	Shipping shipping.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", handlers.Healthz(cfg, logg))
		r.Get("/ready", handlers.Readyz(cfg, logg, dbP, redisClient))
	})
	if httpMetrics != nil {
		r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())
	}

	// storefront reads need no session
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", catalogcontrollers.List(svcs.Catalog, logg))
		r.Get("/{productId}", catalogcontrollers.Detail(svcs.Catalog, logg))
		r.Get("/slug/{slug}", catalogcontrollers.DetailBySlug(svcs.Catalog, logg))
	})
	r.Get("/api/v1/coupons/{code}", couponcontrollers.DetailByCode(svcs.Coupons, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/coupons/validate", couponcontrollers.Validate(svcs.Coupons, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(svcs.Orders, logg))
			r.Get("/", ordercontrollers.List(svcs.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(svcs.Orders, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", returncontrollers.Create(svcs.Returns, logg))
			r.Get("/", returncontrollers.List(svcs.Returns, logg))
			r.Get("/eligibility/{itemId}", returncontrollers.Eligibility(svcs.Returns, logg))
			r.Get("/{returnId}", returncontrollers.Detail(svcs.Returns, logg))
			r.Post("/{returnId}/cancel", returncontrollers.Cancel(svcs.Returns, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Get(svcs.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(svcs.Cart, logg))
			r.Post("/items", cartcontrollers.AddItem(svcs.Cart, logg))
			r.Patch("/items/{itemId}", cartcontrollers.UpdateQuantity(svcs.Cart, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(svcs.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistcontrollers.List(svcs.Wishlist, logg))
			r.Post("/", wishlistcontrollers.Add(svcs.Wishlist, logg))
			r.Delete("/{productId}", wishlistcontrollers.Remove(svcs.Wishlist, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", address.List(svcs.Address, logg))
			r.Post("/", address.Create(svcs.Address, logg))
			r.Get("/{addressId}", address.Detail(svcs.Address, logg))
			r.Put("/{addressId}", address.Update(svcs.Address, logg))
			r.Delete("/{addressId}", address.Delete(svcs.Address, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", catalogcontrollers.CreateProduct(svcs.Catalog, logg))
				r.Patch("/{productId}", catalogcontrollers.UpdateProduct(svcs.Catalog, logg))
				r.Post("/{productId}/variants", catalogcontrollers.AddVariant(svcs.Catalog, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Post("/", couponcontrollers.Create(svcs.Coupons, logg))
				r.Get("/", couponcontrollers.List(svcs.Coupons, logg))
				r.Patch("/{couponId}/active", couponcontrollers.SetActive(svcs.Coupons, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminList(svcs.Orders, logg))
				r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(svcs.Orders, logg))
				// carrier booking is wired only when credentials are configured
				if svcs.Shipping != nil {
					r.Post("/{orderId}/shipment", shipmentcontrollers.Book(svcs.Shipping, logg))
					r.Get("/{orderId}/shipment", shipmentcontrollers.Detail(svcs.Shipping, logg))
				}
			})

			r.Route("/order-items/{itemId}", func(r chi.Router) {
				r.Patch("/status", ordercontrollers.UpdateItemStatus(svcs.Orders, logg))
				r.Patch("/delivery-date", returncontrollers.SetDeliveryDate(svcs.Returns, logg))
			})

			r.Route("/returns", func(r chi.Router) {
				r.Get("/", returncontrollers.AdminList(svcs.Returns, logg))
				r.Post("/{returnId}/approve", returncontrollers.Approve(svcs.Returns, logg))
				r.Post("/{returnId}/reject", returncontrollers.Reject(svcs.Returns, logg))
				r.Patch("/{returnId}/status", returncontrollers.UpdateStatus(svcs.Returns, logg))
			})
		})
	})

	return r
}
