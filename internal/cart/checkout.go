package cart

import (
	"context"

	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/pkg/enums"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
)

const (
	outcomeConfirmed        = "confirmed"
	outcomeEmpty            = "empty_cart"
	outcomeUnauthenticated  = "not_authenticated"
	outcomeDependencyFailed = "dependency_error"
)

// Checkout turns the cart into a confirmed order. It fails with EMPTY_CART
// when there is nothing to buy and NOT_AUTHENTICATED without a logged in
// buyer; in both cases the cart is untouched. The order is handed to the
// history sink before the cart is cleared, so a sink failure also leaves the
// cart as it was.
func (l *Ledger) Checkout(ctx context.Context, payment PaymentPayload) (*OrderSnapshot, error) {
	ctx = l.ctx(ctx)
	if l.IsEmpty() {
		l.metrics.IncCheckout(outcomeEmpty)
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	buyer, err := l.authenticatedBuyer(ctx)
	if err != nil {
		return nil, err
	}

	totals := l.Totals()
	order := &OrderSnapshot{
		ID:        l.newID(),
		SessionID: l.sessionID,
		Buyer:     *buyer,
		Items:     cloneItems(l.state.items),
		Coupons:   append([]coupons.Coupon(nil), l.state.applied...),
		Totals:    totals,
		Payment:   payment.Masked(),
		Status:    enums.OrderStatusConfirmed,
		CreatedAt: l.now().UTC(),
	}
	ctx = l.logg.WithOrderID(ctx, order.ID.String())

	if err := l.history.Record(ctx, order); err != nil {
		l.metrics.IncCheckout(outcomeDependencyFailed)
		l.logg.Error(ctx, "record order failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order")
	}

	// The order is recorded at this point; memory is cleared even when
	// persisting the clear fails.
	if err := l.persist(ctx, state{}, true, true); err != nil {
		l.logg.Error(ctx, "clear cart after checkout failed", err)
	}
	l.state = state{}

	l.metrics.IncCheckout(outcomeConfirmed)
	l.metrics.ObserveOrderTotal(totals.Total)
	l.logg.Info(l.logg.WithField(ctx, "order_total", totals.Total.StringFixed(2)), "order confirmed")

	orderID := order.ID
	l.emit(Event{Type: enums.CartEventCheckedOut, OrderID: &orderID})
	return order, nil
}

func (l *Ledger) authenticatedBuyer(ctx context.Context) (*Buyer, error) {
	ok, err := l.auth.IsAuthenticated(ctx)
	if err != nil {
		l.metrics.IncCheckout(outcomeDependencyFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check authentication")
	}
	if !ok {
		l.metrics.IncCheckout(outcomeUnauthenticated)
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "login required to checkout")
	}
	buyer, err := l.auth.CurrentUser(ctx)
	if err != nil {
		l.metrics.IncCheckout(outcomeDependencyFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current user")
	}
	if buyer == nil {
		l.metrics.IncCheckout(outcomeUnauthenticated)
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "login required to checkout")
	}
	return buyer, nil
}
