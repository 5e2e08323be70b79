package cart

import (
	cartsvc "github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/coupons"
)

// Cart is the cart view returned by every cart endpoint.
type Cart struct {
	SessionID string             `json:"session_id"`
	Items     []cartsvc.LineItem `json:"items"`
	Coupons   []coupons.Coupon   `json:"coupons"`
	Totals    cartsvc.Totals     `json:"totals"`
}

func newCart(l *cartsvc.Ledger) Cart {
	items := l.Items()
	if items == nil {
		items = []cartsvc.LineItem{}
	}
	applied := l.AppliedCoupons()
	if applied == nil {
		applied = []coupons.Coupon{}
	}
	return Cart{
		SessionID: l.SessionID(),
		Items:     items,
		Coupons:   applied,
		Totals:    l.Totals(),
	}
}
