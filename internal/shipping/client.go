package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/threadleaf/threadleaf-backend/pkg/config"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// ProviderShiprocket names the only carrier currently wired in.
const ProviderShiprocket = "SHIPROCKET"

// BookingItem is one order line in a carrier booking request.
type BookingItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice string `json:"selling_price"`
}

// BookingRequest is the adhoc order payload the carrier expects.
type BookingRequest struct {
	OrderID             string        `json:"order_id"`
	OrderDate           string        `json:"order_date"`
	BillingCustomerName string        `json:"billing_customer_name"`
	BillingAddress      string        `json:"billing_address"`
	BillingCity         string        `json:"billing_city"`
	BillingPincode      string        `json:"billing_pincode"`
	BillingState        string        `json:"billing_state"`
	BillingCountry      string        `json:"billing_country"`
	BillingPhone        string        `json:"billing_phone"`
	ShippingIsBilling   bool          `json:"shipping_is_billing"`
	OrderItems          []BookingItem `json:"order_items"`
	PaymentMethod       string        `json:"payment_method"`
	SubTotal            string        `json:"sub_total"`
	Length              float64       `json:"length"`
	Breadth             float64       `json:"breadth"`
	Height              float64       `json:"height"`
	Weight              float64       `json:"weight"`
}

// BookingResponse is the carrier's acknowledgement of a booking.
type BookingResponse struct {
	OrderID    int64  `json:"order_id"`
	ShipmentID int64  `json:"shipment_id"`
	Status     string `json:"status"`
	AWBCode    string `json:"awb_code"`
}

// Client talks to the Shiprocket external API. The auth token is
// memoized until its TTL lapses; all calls share one resty client.
type Client struct {
	http *resty.Client
	cfg  config.ShippingConfig
	now  func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg config.ShippingConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("shipping base url required")
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("shipping credentials required")
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, cfg: cfg, now: time.Now}, nil
}

// Token returns a valid auth token, logging in again only after expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"email":    c.cfg.Email,
			"password": c.cfg.Password,
		}).
		Post("/auth/login")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier login")
	}
	if resp.IsError() {
		return "", pkgerrors.Newf(pkgerrors.CodeDependency,
			"carrier login failed with status %d", resp.StatusCode())
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode login response")
	}
	if body.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "carrier login returned no token")
	}

	c.token = body.Token
	c.tokenExpiry = c.now().Add(c.cfg.TokenTTL)
	return c.token, nil
}

// CreateOrder books a shipment and returns both the parsed response and
// the raw body so callers can persist it.
func (c *Client) CreateOrder(ctx context.Context, req BookingRequest) (*BookingResponse, []byte, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		Post("/orders/create/adhoc")
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier booking")
	}
	if resp.IsError() {
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeDependency,
			"carrier booking failed with status %d", resp.StatusCode())
	}

	var booking BookingResponse
	if err := json.Unmarshal(resp.Body(), &booking); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode booking response")
	}
	return &booking, resp.Body(), nil
}
