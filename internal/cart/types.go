package cart

import (
	"strings"
	"time"
	"unicode"

	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one ticket line in the cart. Items sharing the same movie,
// date, showtime and theater are merged by quantity.
type LineItem struct {
	ID       string          `json:"id"`
	MovieID  int             `json:"movie_id"`
	Title    string          `json:"title"`
	Poster   string          `json:"poster,omitempty"`
	Genre    string          `json:"genre,omitempty"`
	Duration string          `json:"duration,omitempty"`
	Rating   float64         `json:"rating,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Showtime string          `json:"showtime"`
	Date     string          `json:"date"`
	Theater  string          `json:"theater"`
	Seats    []string        `json:"seats,omitempty"`
	AddedAt  time.Time       `json:"added_at"`
}

// LineTotal returns price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type showingKey struct {
	movieID  int
	date     string
	showtime string
	theater  string
}

func (i LineItem) showing() showingKey {
	return showingKey{movieID: i.MovieID, date: i.Date, showtime: i.Showtime, theater: i.Theater}
}

func (i LineItem) clone() LineItem {
	i.Seats = append([]string(nil), i.Seats...)
	return i
}

// AddOptions overrides the catalog defaults when adding an item. Zero values
// mean "use the default".
type AddOptions struct {
	Price    *decimal.Decimal
	Quantity int
	Showtime string
	Date     string
	Theater  string
	Seats    []string
}

// Buyer identifies the authenticated purchaser.
type Buyer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Totals holds every derived figure of the ledger at one point in time.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	ConvenienceFee decimal.Decimal `json:"convenience_fee"`
	Taxes          decimal.Decimal `json:"taxes"`
	Total          decimal.Decimal `json:"total"`
	Quantity       int             `json:"quantity"`
}

// PersonalData is the buyer information collected in the first checkout step.
type PersonalData struct {
	FullName  string `json:"full_name"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date,omitempty"`
}

// PaymentDetails is the payment information collected in the second step.
type PaymentDetails struct {
	Method       enums.PaymentMethod `json:"method"`
	CardNumber   string              `json:"card_number,omitempty"`
	CardExpiry   string              `json:"card_expiry,omitempty"`
	CardCVV      string              `json:"card_cvv,omitempty"`
	CardName     string              `json:"card_name,omitempty"`
	Installments int                 `json:"installments,omitempty"`
}

// PaymentPayload is what checkout attaches to an order.
type PaymentPayload struct {
	Personal PersonalData   `json:"personal"`
	Payment  PaymentDetails `json:"payment"`
}

// Masked returns a copy safe to store: the card number keeps only its last
// four digits and the CVV is dropped.
func (p PaymentPayload) Masked() PaymentPayload {
	p.Payment.CardNumber = maskCardNumber(p.Payment.CardNumber)
	p.Payment.CardCVV = ""
	return p
}

func maskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// OrderSnapshot is the immutable record produced by a successful checkout.
type OrderSnapshot struct {
	ID        uuid.UUID         `json:"id"`
	SessionID string            `json:"session_id"`
	Buyer     Buyer             `json:"buyer"`
	Items     []LineItem        `json:"items"`
	Coupons   []coupons.Coupon  `json:"coupons"`
	Totals    Totals            `json:"totals"`
	Payment   PaymentPayload    `json:"payment"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// Event is published to subscribers after every committed mutation.
type Event struct {
	Type      enums.CartEventType `json:"type"`
	SessionID string              `json:"session_id"`
	ItemID    string              `json:"item_id,omitempty"`
	Coupon    string              `json:"coupon,omitempty"`
	OrderID   *uuid.UUID          `json:"order_id,omitempty"`
	Totals    Totals              `json:"totals"`
	At        time.Time           `json:"at"`
}
