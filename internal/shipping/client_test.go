package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/address"
	"github.com/threadleaf/threadleaf-backend/internal/orders"
	"github.com/threadleaf/threadleaf-backend/pkg/config"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

func TestClientMemoizesToken(t *testing.T) {
	t.Parallel()

	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		logins++
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		token, err := client.Token(ctx)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if token != "tok-123" {
			t.Fatalf("expected tok-123, got %q", token)
		}
	}
	if logins != 1 {
		t.Fatalf("expected a single login, got %d", logins)
	}

	// expire the token and expect a fresh login
	client.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := client.Token(ctx); err != nil {
		t.Fatalf("token after expiry: %v", err)
	}
	if logins != 2 {
		t.Fatalf("expected re-login after expiry, got %d logins", logins)
	}
}

func TestClientCreateOrderSendsAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
		case "/orders/create/adhoc":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
				t.Fatalf("expected bearer token, got %q", got)
			}
			var req BookingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode booking request: %v", err)
			}
			if req.OrderID == "" || len(req.OrderItems) == 0 {
				t.Fatalf("incomplete booking request: %+v", req)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"order_id":    91001,
				"shipment_id": 81001,
				"status":      "NEW",
				"awb_code":    "AWB0042",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	booking, raw, err := client.CreateOrder(context.Background(), BookingRequest{
		OrderID:    "ORD-1",
		OrderItems: []BookingItem{{Name: "SKU-1", SKU: "SKU-1", Units: 1, SellingPrice: "100.00"}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if booking.ShipmentID != 81001 || booking.AWBCode != "AWB0042" {
		t.Fatalf("unexpected booking response: %+v", booking)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw response body")
	}
}

func TestClientSurfacesCarrierFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Token(context.Background())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestBookShipmentPersistsPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
		case "/orders/create/adhoc":
			json.NewEncoder(w).Encode(map[string]any{
				"order_id":    91002,
				"shipment_id": 81002,
				"status":      "NEW",
				"awb_code":    "AWB0099",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	conn := newTestDB(t)
	svc, err := NewService(
		NewRepository(conn),
		newTestClient(t, server.URL),
		orders.NewRepository(conn),
		address.NewRepository(conn),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order := seedOrder(t, conn)
	shipment, err := svc.BookShipment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("book shipment: %v", err)
	}
	if shipment.Provider != ProviderShiprocket || shipment.Status != "NEW" {
		t.Fatalf("unexpected shipment: %+v", shipment)
	}
	if shipment.ShipmentID == nil || *shipment.ShipmentID != "81002" {
		t.Fatalf("expected shipment id 81002, got %v", shipment.ShipmentID)
	}
	if shipment.AWBCode == nil || *shipment.AWBCode != "AWB0099" {
		t.Fatalf("expected awb AWB0099, got %v", shipment.AWBCode)
	}
	if len(shipment.Payload) == 0 {
		t.Fatal("expected raw payload to be persisted")
	}

	// a second booking for the same order is rejected
	_, err = svc.BookShipment(context.Background(), order.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	found, err := svc.GetByOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get by order: %v", err)
	}
	if found.ID != shipment.ID {
		t.Fatalf("expected shipment %s, got %s", shipment.ID, found.ID)
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.ShippingConfig{
		BaseURL:  baseURL,
		Email:    "ops@threadleaf.test",
		Password: "secret",
		TokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:shipping_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Address{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderHistory{},
		&models.OrderItemHistory{},
		&models.ShipmentOrder{},
	)
	if err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB) *models.Order {
	t.Helper()
	addr := &models.Address{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Name:       "Asha Rao",
		Phone:      "9876543210",
		Line1:      "14 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
	if err := conn.Create(addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-TEST-" + uuid.NewString()[:8],
		UserID:        addr.UserID,
		AddressID:     addr.ID,
		PaymentMethod: "COD",
		FinalAmount:   decimal.NewFromInt(499),
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	item := &models.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		SKU:       "SKU-TEST",
		Quantity:  1,
		Price:     decimal.NewFromInt(499),
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}
	return order
}
