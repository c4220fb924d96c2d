package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/address"
	"github.com/threadleaf/threadleaf-backend/internal/cart"
	"github.com/threadleaf/threadleaf-backend/internal/catalog"
	"github.com/threadleaf/threadleaf-backend/internal/coupons"
	"github.com/threadleaf/threadleaf-backend/internal/inventory"
	"github.com/threadleaf/threadleaf-backend/internal/orders"
	"github.com/threadleaf/threadleaf-backend/internal/returns"
	"github.com/threadleaf/threadleaf-backend/internal/wishlist"
	pkgauth "github.com/threadleaf/threadleaf-backend/pkg/auth"
	"github.com/threadleaf/threadleaf-backend/pkg/config"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "threadleaf",
			ExpirationMinutes: 60,
		},
		Returns: config.ReturnsConfig{WindowDays: 7},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{},
		&models.Address{}, &models.CartItem{}, &models.WishlistItem{},
		&models.Coupon{}, &models.CouponUser{},
		&models.Order{}, &models.OrderItem{}, &models.OrderHistory{}, &models.OrderItemHistory{},
		&models.Return{}, &models.ReturnHistory{},
	); err != nil {
		t.Fatalf("migrate models: %v", err)
	}

	dbClient := db.NewWithConn(conn)
	catalogRepo := catalog.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	ledger := inventory.NewLedger()

	catalogSvc, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		t.Fatalf("coupon service: %v", err)
	}
	addressSvc, err := address.NewService(addressRepo, dbClient)
	if err != nil {
		t.Fatalf("address service: %v", err)
	}
	cartSvc, err := cart.NewService(cart.NewRepository(conn), catalogRepo)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(conn), catalogRepo)
	if err != nil {
		t.Fatalf("wishlist service: %v", err)
	}
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, catalogRepo, addressRepo, couponSvc, ledger)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	returnsSvc, err := returns.NewService(returns.NewRepository(conn), dbClient, ordersRepo, catalogRepo, ledger, 7)
	if err != nil {
		t.Fatalf("returns service: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(testConfig(), logg, dbClient, nil, nil, Services{
		Catalog:  catalogSvc,
		Coupons:  couponSvc,
		Orders:   ordersSvc,
		Returns:  returnsSvc,
		Cart:     cartSvc,
		Wishlist: wishlistSvc,
		Address:  addressSvc,
	})
}

func mintToken(t *testing.T, role enums.Role) string {
	t.Helper()
	cfg := testConfig()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Threadleaf-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-Threadleaf-Env"))
	}
}

func TestRouterPublicCatalog(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/api/v1/orders", "/api/v1/cart", "/api/v1/addresses", "/api/v1/returns"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, resp.Code)
		}
	}
}

func TestRouterAdminRoutesRequireAdminRole(t *testing.T) {
	router := newTestRouter(t)
	userToken := mintToken(t, enums.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	adminToken := mintToken(t, enums.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterShipmentRoutesAbsentWithoutCarrier(t *testing.T) {
	router := newTestRouter(t)
	adminToken := mintToken(t, enums.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/"+uuid.NewString()+"/shipment", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
