package history

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/pkg/db/models"
	"github.com/angelmondragon/cinepass/pkg/enums"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/angelmondragon/cinepass/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHistoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:history_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}))
	return conn
}

var baseTime = time.Date(2024, 7, 1, 19, 0, 0, 0, time.UTC)

func sampleOrder(userID uuid.UUID, at time.Time) *cart.OrderSnapshot {
	return &cart.OrderSnapshot{
		ID:        uuid.New(),
		SessionID: "sess-1",
		Buyer:     cart.Buyer{ID: userID, Name: "Ana", Email: "ana@example.com"},
		Items: []cart.LineItem{{
			ID:       "1-19:00-2024-07-01-Sala 1",
			MovieID:  1,
			Title:    "Duna: Parte Dois",
			Price:    money.MustParse("28.50"),
			Quantity: 2,
			Showtime: "19:00",
			Date:     "2024-07-01",
			Theater:  "Sala 1",
		}},
		Totals: cart.Totals{
			Subtotal:       money.MustParse("57.00"),
			Discount:       money.Zero,
			ConvenienceFee: money.MustParse("5.00"),
			Taxes:          money.Zero,
			Total:          money.MustParse("62.00"),
			Quantity:       2,
		},
		Status:    enums.OrderStatusConfirmed,
		CreatedAt: at,
	}
}

func TestRecordAndGet(t *testing.T) {
	conn := setupHistoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	order := sampleOrder(userID, baseTime)
	require.NoError(t, repo.Record(ctx, order))

	var row models.Order
	require.NoError(t, conn.First(&row, "id = ?", order.ID).Error)
	assert.Equal(t, int64(6200), row.TotalCents)
	assert.Equal(t, 2, row.ItemCount)
	assert.Equal(t, string(enums.OrderStatusConfirmed), row.Status)

	got, err := repo.Get(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, order.Totals.Total.Equal(got.Totals.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Duna: Parte Dois", got.Items[0].Title)

	_, err = repo.Get(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRejectsInvalidOrders(t *testing.T) {
	repo := NewRepository(setupHistoryTestDB(t))
	ctx := context.Background()

	require.Error(t, repo.Record(ctx, nil))
	require.Error(t, repo.Record(ctx, sampleOrder(uuid.Nil, baseTime)))

	order := sampleOrder(uuid.New(), baseTime)
	require.NoError(t, repo.Record(ctx, order))
	require.Error(t, repo.Record(ctx, order), "duplicate order id")
}

func TestListByUserNewestFirstWithCursor(t *testing.T) {
	repo := NewRepository(setupHistoryTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		order := sampleOrder(userID, baseTime.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Record(ctx, order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, repo.Record(ctx, sampleOrder(uuid.New(), baseTime.Add(10*time.Hour))))

	first, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, ids[4], first.Orders[0].ID)
	assert.Equal(t, ids[3], first.Orders[1].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Equal(t, ids[2], second.Orders[0].ID)
	assert.Equal(t, ids[1], second.Orders[1].ID)

	third, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: second.Cursor})
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	assert.Equal(t, ids[0], third.Orders[0].ID)
	assert.Empty(t, third.Cursor)
}

func TestListByUserEmpty(t *testing.T) {
	repo := NewRepository(setupHistoryTestDB(t))

	page, err := repo.ListByUser(context.Background(), uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Empty(t, page.Cursor)

	_, err = repo.ListByUser(context.Background(), uuid.New(), pagination.Params{Cursor: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestListByUserRejectsAnotherAccountsCursor(t *testing.T) {
	repo := NewRepository(setupHistoryTestDB(t))
	ctx := context.Background()
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Record(ctx, sampleOrder(owner, baseTime.Add(time.Duration(i)*time.Minute))))
	}

	page, err := repo.ListByUser(ctx, owner, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, page.Cursor)

	_, err = repo.ListByUser(ctx, uuid.New(), pagination.Params{Limit: 1, Cursor: page.Cursor})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}
