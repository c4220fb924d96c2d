package shipping

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// Service books carrier shipments for placed orders.
type Service interface {
	BookShipment(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error)
}

// bookingClient lets tests stand in for the real carrier.
type bookingClient interface {
	CreateOrder(ctx context.Context, req BookingRequest) (*BookingResponse, []byte, error)
}

type orderReader interface {
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type addressReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
}

type service struct {
	repo      Repository
	client    bookingClient
	orders    orderReader
	addresses addressReader
}

func NewService(repo Repository, client bookingClient, orders orderReader, addresses addressReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("booking client required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address reader required")
	}
	return &service{repo: repo, client: client, orders: orders, addresses: addresses}, nil
}

func (s *service) BookShipment(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error) {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items to ship")
	}

	if existing, err := s.repo.FindByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict,
			"shipment %s already booked for this order", existing.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing shipment")
	}

	address, err := s.addresses.FindByID(ctx, order.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}

	booking, raw, err := s.client.CreateOrder(ctx, buildBookingRequest(order, address))
	if err != nil {
		return nil, err
	}

	shipment := &models.ShipmentOrder{
		OrderID:  order.ID,
		Provider: ProviderShiprocket,
		Status:   "CREATED",
		Payload:  datatypes.JSON(raw),
	}
	if booking.ShipmentID != 0 {
		id := strconv.FormatInt(booking.ShipmentID, 10)
		shipment.ShipmentID = &id
	}
	if booking.AWBCode != "" {
		awb := booking.AWBCode
		shipment.AWBCode = &awb
	}
	if booking.Status != "" {
		shipment.Status = booking.Status
	}

	if err := s.repo.Create(ctx, shipment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist shipment")
	}
	return shipment, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error) {
	shipment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

func buildBookingRequest(order *models.Order, address *models.Address) BookingRequest {
	items := make([]BookingItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, BookingItem{
			Name:         item.SKU,
			SKU:          item.SKU,
			Units:        item.Quantity,
			SellingPrice: item.Price.StringFixed(2),
		})
	}

	line := address.Line1
	if address.Line2 != nil && *address.Line2 != "" {
		line += ", " + *address.Line2
	}

	return BookingRequest{
		OrderID:             order.OrderNumber,
		OrderDate:           order.CreatedAt.Format("2006-01-02 15:04"),
		BillingCustomerName: address.Name,
		BillingAddress:      line,
		BillingCity:         address.City,
		BillingPincode:      address.PostalCode,
		BillingState:        address.State,
		BillingCountry:      address.Country,
		BillingPhone:        address.Phone,
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       paymentMethodFor(order),
		SubTotal:            order.FinalAmount.StringFixed(2),
		Length:              10,
		Breadth:             10,
		Height:              5,
		Weight:              0.5,
	}
}

// paymentMethodFor maps to the carrier's two buckets: COD or Prepaid.
func paymentMethodFor(order *models.Order) string {
	if order.PaymentMethod == "COD" {
		return "COD"
	}
	return "Prepaid"
}
