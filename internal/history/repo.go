package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/pkg/db/models"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/angelmondragon/cinepass/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned by Get when no order matches.
var ErrNotFound = errors.New("order not found")

// Repository persists confirmed orders. It is the history sink handed to
// every cart ledger.
type Repository struct {
	db *gorm.DB
}

var _ cart.HistorySink = (*Repository)(nil)

// NewRepository constructs an order history repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record stores order. Recording the same order id twice fails.
func (r *Repository) Record(ctx context.Context, order *cart.OrderSnapshot) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.Buyer.ID == uuid.Nil {
		return fmt.Errorf("order has no buyer")
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	row := models.Order{
		ID:         order.ID,
		UserID:     order.Buyer.ID,
		SessionID:  order.SessionID,
		Status:     string(order.Status),
		ItemCount:  order.Totals.Quantity,
		TotalCents: money.ToCents(order.Totals.Total),
		Snapshot:   string(payload),
		CreatedAt:  order.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// Page is one slice of a user's purchases, newest first. Cursor is empty on
// the last page.
type Page struct {
	Orders []cart.OrderSnapshot `json:"orders"`
	Cursor string               `json:"next_cursor,omitempty"`
}

// ListByUser returns the user's purchases newest first. A cursor issued to
// another account fails with pagination.ErrInvalidCursor.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	window, err := params.Window(userID)
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if err := query.Scopes(window.Scope).Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(window, rows, func(o models.Order) (time.Time, uuid.UUID) {
		return o.CreatedAt, o.ID
	})
	page := &Page{Orders: make([]cart.OrderSnapshot, 0, len(rows)), Cursor: next}
	for _, row := range rows {
		order, err := decode(row)
		if err != nil {
			return nil, err
		}
		page.Orders = append(page.Orders, *order)
	}
	return page, nil
}

// Get loads one order belonging to userID.
func (r *Repository) Get(ctx context.Context, userID, orderID uuid.UUID) (*cart.OrderSnapshot, error) {
	var row models.Order
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(row)
}

func decode(row models.Order) (*cart.OrderSnapshot, error) {
	var order cart.OrderSnapshot
	if err := json.Unmarshal([]byte(row.Snapshot), &order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", row.ID, err)
	}
	return &order, nil
}
