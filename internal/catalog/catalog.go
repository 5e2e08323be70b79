package catalog

import (
	"sort"

	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultBasePrice applies to movies that carry no price of their own.
var DefaultBasePrice = money.MustParse("25.00")

// Movie is a catalog entry a ticket can be bought for.
type Movie struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	Poster    string          `json:"poster"`
	Genre     string          `json:"genre"`
	Duration  string          `json:"duration"`
	Rating    float64         `json:"rating"`
	Price     decimal.Decimal `json:"price"`
	Showtimes []string        `json:"showtimes"`
	InTheater bool            `json:"in_theater"`
}

// BasePrice returns the movie price, falling back to DefaultBasePrice.
func (m Movie) BasePrice() decimal.Decimal {
	if m.Price.IsPositive() {
		return m.Price
	}
	return DefaultBasePrice
}

// DefaultShowtime returns the first listed showtime, if any.
func (m Movie) DefaultShowtime() (string, bool) {
	if len(m.Showtimes) == 0 {
		return "", false
	}
	return m.Showtimes[0], true
}

// Provider resolves movie references for the cart.
type Provider interface {
	Lookup(movieID int) (Movie, bool)
}

// Static is an immutable in-memory catalog.
type Static struct {
	byID map[int]Movie
}

// NewStatic indexes movies by id. Later duplicates replace earlier ones.
func NewStatic(movies []Movie) *Static {
	byID := make(map[int]Movie, len(movies))
	for _, m := range movies {
		m.Showtimes = append([]string(nil), m.Showtimes...)
		byID[m.ID] = m
	}
	return &Static{byID: byID}
}

func (s *Static) Lookup(movieID int) (Movie, bool) {
	m, ok := s.byID[movieID]
	if !ok {
		return Movie{}, false
	}
	m.Showtimes = append([]string(nil), m.Showtimes...)
	return m, true
}

// List returns every movie ordered by id, optionally only those in theaters.
func (s *Static) List(inTheaterOnly bool) []Movie {
	out := make([]Movie, 0, len(s.byID))
	for _, m := range s.byID {
		if inTheaterOnly && !m.InTheater {
			continue
		}
		m.Showtimes = append([]string(nil), m.Showtimes...)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
