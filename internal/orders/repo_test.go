package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.Order{}, &models.OrderItem{},
		&models.OrderHistory{}, &models.OrderItemHistory{},
	))
	return conn
}

func seedOrderRow(t *testing.T, repo Repository, userID uuid.UUID, n int) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:    fmt.Sprintf("ORD-%s-%d", uuid.NewString()[:8], n),
		UserID:         userID,
		AddressID:      uuid.New(),
		Status:         enums.OrderStatusPending,
		PaymentMethod:  "COD",
		PaymentStatus:  enums.PaymentStatusPending,
		Subtotal:       decimal.NewFromInt(100),
		Discount:       decimal.Zero,
		DeliveryCharge: decimal.NewFromInt(40),
		FinalAmount:    decimal.NewFromInt(140),
		Items: []models.OrderItem{
			{
				ProductID: uuid.New(),
				SKU:       "SKU-1",
				Quantity:  1,
				Price:     decimal.NewFromInt(100),
				Status:    enums.OrderStatusPending,
			},
		},
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	return order
}

func TestCreateOrderAssignsIdentifiers(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupOrdersTestDB(t))
	order := seedOrderRow(t, repo, uuid.New(), 1)

	assert.NotEqual(t, uuid.Nil, order.ID)
	require.Len(t, order.Items, 1)
	assert.NotEqual(t, uuid.Nil, order.Items[0].ID)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
}

func TestFindOrderByIDPreloadsItemsAndHistory(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	order := seedOrderRow(t, repo, uuid.New(), 1)

	require.NoError(t, repo.CreateOrderHistory(ctx, &models.OrderHistory{
		OrderID:        order.ID,
		PreviousStatus: enums.OrderStatusPending,
		NewStatus:      enums.OrderStatusPending,
		ChangedBy:      enums.ActorUser,
	}))

	got, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Len(t, got.History, 1)

	_, err = repo.FindOrderByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByUserPaginates(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		seedOrderRow(t, repo, userID, i)
	}
	seedOrderRow(t, repo, uuid.New(), 99)

	rows, total, err := repo.ListByUser(ctx, userID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 2)

	rows, total, err = repo.ListByUser(ctx, userID, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 1)

	rows, total, err = repo.List(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, rows, 4)
}

func TestUpdateOrderPersistsStatusFields(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	order := seedOrderRow(t, repo, uuid.New(), 1)

	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = enums.PaymentStatusRefunded
	require.NoError(t, repo.UpdateOrder(ctx, order))

	got, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, got.PaymentStatus)
}
