package cart

import (
	"strings"

	cartsvc "github.com/angelmondragon/cinepass/internal/cart"
	"github.com/shopspring/decimal"
)

type addItemRequest struct {
	MovieID  int              `json:"movie_id" validate:"required,min=1"`
	Quantity int              `json:"quantity" validate:"omitempty,min=1,max=20"`
	Price    *decimal.Decimal `json:"price"`
	Showtime string           `json:"showtime" validate:"omitempty,max=16"`
	Date     string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Theater  string           `json:"theater" validate:"omitempty,max=64"`
	Seats    []string         `json:"seats" validate:"omitempty,max=20,dive,notblank"`
}

func (r addItemRequest) toOptions() cartsvc.AddOptions {
	seats := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		seats = append(seats, strings.TrimSpace(s))
	}
	return cartsvc.AddOptions{
		Price:    r.Price,
		Quantity: r.Quantity,
		Showtime: strings.TrimSpace(r.Showtime),
		Date:     strings.TrimSpace(r.Date),
		Theater:  strings.TrimSpace(r.Theater),
		Seats:    seats,
	}
}

// A quantity of zero removes the line.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type couponRequest struct {
	Code string `json:"code" validate:"notblank,max=32"`
}
