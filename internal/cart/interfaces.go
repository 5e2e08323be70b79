package cart

import (
	"context"

	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
)

// AuthProvider answers who, if anyone, is logged in on the ledger's session.
// CurrentUser returns nil without error when nobody is.
type AuthProvider interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	CurrentUser(ctx context.Context) (*Buyer, error)
}

// HistorySink receives every confirmed order.
type HistorySink interface {
	Record(ctx context.Context, order *OrderSnapshot) error
}

// MovieLookup resolves catalog entries.
type MovieLookup interface {
	Lookup(movieID int) (catalog.Movie, bool)
}

// CouponLookup resolves coupon codes case-insensitively.
type CouponLookup interface {
	Lookup(code string) (coupons.Coupon, bool)
}
