package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/pkg/enums"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/metrics"
	"github.com/angelmondragon/cinepass/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultShowtime = "19:00"
	DefaultTheater  = "Sala 1"

	dateLayout = "2006-01-02"
)

// ItemsKey is the storage key holding a session's line items.
func ItemsKey(sessionID string) string {
	return "cart:" + sessionID + ":items"
}

// CouponsKey is the storage key holding a session's applied coupon codes.
func CouponsKey(sessionID string) string {
	return "cart:" + sessionID + ":coupons"
}

// Config tunes pricing and what the ledger persists.
type Config struct {
	Pricing        Pricing
	PersistCoupons bool
}

// Deps are the collaborators a ledger needs. Logger and Metrics are optional.
type Deps struct {
	Movies  MovieLookup
	Coupons CouponLookup
	Store   storage.Store
	Auth    AuthProvider
	History HistorySink
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
}

type state struct {
	items   []LineItem
	applied []coupons.Coupon
}

type subscriber struct {
	id int
	fn func(Event)
}

// Ledger is the cart of one storefront session. It is owned by a single
// caller at a time; concurrent use must be serialized by the owner.
type Ledger struct {
	sessionID string
	cfg       Config

	movies  MovieLookup
	coupons CouponLookup
	store   storage.Store
	auth    AuthProvider
	history HistorySink
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics

	now   func() time.Time
	newID func() uuid.UUID

	state   state
	subs    []subscriber
	nextSub int
}

// NewLedger builds the ledger for sessionID and rehydrates it from the store.
func NewLedger(ctx context.Context, sessionID string, deps Deps, cfg Config) (*Ledger, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if deps.Movies == nil {
		return nil, fmt.Errorf("movie catalog required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon catalog required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth provider required")
	}
	if deps.History == nil {
		return nil, fmt.Errorf("history sink required")
	}
	if cfg.Pricing.ConvenienceFee.IsNegative() || cfg.Pricing.TaxRate.IsNegative() {
		return nil, fmt.Errorf("pricing must be non-negative")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	l := &Ledger{
		sessionID: sessionID,
		cfg:       cfg,
		movies:    deps.Movies,
		coupons:   deps.Coupons,
		store:     deps.Store,
		auth:      deps.Auth,
		history:   deps.History,
		logg:      logg,
		metrics:   deps.Metrics,
		now:       time.Now,
		newID:     uuid.New,
	}
	if err := l.rehydrate(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// WithClock overrides the time source used for timestamps and default dates.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// SessionID returns the session the ledger belongs to.
func (l *Ledger) SessionID() string {
	return l.sessionID
}

func (l *Ledger) rehydrate(ctx context.Context) error {
	var items []LineItem
	if _, err := storage.LoadJSON(ctx, l.store, ItemsKey(l.sessionID), &items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	kept, dropped := normalizeStored(items)
	if dropped > 0 {
		l.logg.Warn(l.logg.WithField(l.ctx(ctx), "dropped", dropped), "normalized stored cart items")
	}
	l.state.items = kept

	if !l.cfg.PersistCoupons {
		return nil
	}
	var codes []string
	if _, err := storage.LoadJSON(ctx, l.store, CouponsKey(l.sessionID), &codes); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart coupons")
	}
	for _, code := range codes {
		coupon, ok := l.coupons.Lookup(code)
		if !ok || indexOfCoupon(l.state.applied, coupon.Code) >= 0 {
			l.logg.Warn(l.logg.WithField(l.ctx(ctx), "coupon", code), "dropping stored coupon")
			continue
		}
		l.state.applied = append(l.state.applied, coupon)
	}
	return nil
}

// normalizeStored drops lines with no quantity or a negative price and folds
// lines for the same showing into the first one. It returns how many stored
// lines were dropped or folded.
func normalizeStored(items []LineItem) ([]LineItem, int) {
	kept := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 || item.Price.IsNegative() {
			continue
		}
		if idx := indexOfShowing(kept, item.showing()); idx >= 0 {
			kept[idx].Quantity += item.Quantity
			kept[idx].Seats = append(kept[idx].Seats, item.Seats...)
			continue
		}
		kept = append(kept, item.clone())
	}
	return kept, len(items) - len(kept)
}

func (l *Ledger) ctx(ctx context.Context) context.Context {
	return l.logg.WithSessionID(ctx, l.sessionID)
}

// AddItem adds a ticket line for movieID, merging it into an existing line
// for the same showing. It fails with NOT_FOUND when the movie is unknown.
func (l *Ledger) AddItem(ctx context.Context, movieID int, opts AddOptions) (LineItem, error) {
	movie, ok := l.movies.Lookup(movieID)
	if !ok {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found").
			WithDetails(map[string]any{"movie_id": movieID})
	}
	if opts.Quantity < 0 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	if opts.Price != nil && opts.Price.IsNegative() {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative").
			WithDetails(map[string]string{"price": "must be at least 0"})
	}

	now := l.now().UTC()
	item := LineItem{
		ID:       l.newID().String(),
		MovieID:  movie.ID,
		Title:    movie.Title,
		Poster:   movie.Poster,
		Genre:    movie.Genre,
		Duration: movie.Duration,
		Rating:   movie.Rating,
		Price:    movie.BasePrice(),
		Quantity: 1,
		Showtime: DefaultShowtime,
		Date:     now.Format(dateLayout),
		Theater:  DefaultTheater,
		Seats:    append([]string(nil), opts.Seats...),
		AddedAt:  now,
	}
	if opts.Price != nil {
		item.Price = *opts.Price
	}
	if opts.Quantity > 0 {
		item.Quantity = opts.Quantity
	}
	if opts.Showtime != "" {
		item.Showtime = opts.Showtime
	} else if showtime, ok := movie.DefaultShowtime(); ok {
		item.Showtime = showtime
	}
	if opts.Date != "" {
		item.Date = opts.Date
	}
	if opts.Theater != "" {
		item.Theater = opts.Theater
	}

	next := l.cloneState()
	result := item
	if idx := indexOfShowing(next.items, item.showing()); idx >= 0 {
		next.items[idx].Quantity += item.Quantity
		next.items[idx].Seats = append(next.items[idx].Seats, item.Seats...)
		result = next.items[idx]
	} else {
		next.items = append(next.items, item)
	}

	if err := l.commit(ctx, next, true, false); err != nil {
		return LineItem{}, err
	}
	l.metrics.IncMutation("add_item")
	l.emit(Event{Type: enums.CartEventItemAdded, ItemID: result.ID})
	return result.clone(), nil
}

// RemoveItem deletes the line with itemID. Removing an unknown id is a no-op
// reported as false.
func (l *Ledger) RemoveItem(ctx context.Context, itemID string) (bool, error) {
	idx := indexOfItem(l.state.items, itemID)
	if idx < 0 {
		return false, nil
	}
	next := l.cloneState()
	next.items = append(next.items[:idx], next.items[idx+1:]...)

	if err := l.commit(ctx, next, true, false); err != nil {
		return false, err
	}
	l.metrics.IncMutation("remove_item")
	l.emit(Event{Type: enums.CartEventItemRemoved, ItemID: itemID})
	return true, nil
}

// UpdateQuantity sets the quantity of itemID. A quantity of zero or less
// removes the line. Unknown ids report false.
func (l *Ledger) UpdateQuantity(ctx context.Context, itemID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return l.RemoveItem(ctx, itemID)
	}
	idx := indexOfItem(l.state.items, itemID)
	if idx < 0 {
		return false, nil
	}
	next := l.cloneState()
	next.items[idx].Quantity = quantity

	if err := l.commit(ctx, next, true, false); err != nil {
		return false, err
	}
	l.metrics.IncMutation("update_quantity")
	l.emit(Event{Type: enums.CartEventQuantityUpdated, ItemID: itemID})
	return true, nil
}

// Clear empties items and applied coupons.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.commit(ctx, state{}, true, true); err != nil {
		return err
	}
	l.metrics.IncMutation("clear")
	l.emit(Event{Type: enums.CartEventCleared})
	return nil
}

// ApplyCoupon activates code on the cart and returns its definition.
func (l *Ledger) ApplyCoupon(ctx context.Context, code string) (coupons.Coupon, error) {
	normalized := coupons.Normalize(code)
	coupon, ok := l.coupons.Lookup(normalized)
	if !ok {
		return coupons.Coupon{}, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon not recognized").
			WithDetails(map[string]string{"code": normalized})
	}
	if indexOfCoupon(l.state.applied, coupon.Code) >= 0 {
		return coupons.Coupon{}, pkgerrors.New(pkgerrors.CodeDuplicateCoupon, "coupon already applied").
			WithDetails(map[string]string{"code": coupon.Code})
	}
	next := l.cloneState()
	next.applied = append(next.applied, coupon)

	if err := l.commit(ctx, next, false, true); err != nil {
		return coupons.Coupon{}, err
	}
	l.metrics.IncMutation("apply_coupon")
	l.emit(Event{Type: enums.CartEventCouponApplied, Coupon: coupon.Code})
	return coupon, nil
}

// RemoveCoupon deactivates code. Codes that are not applied report false.
func (l *Ledger) RemoveCoupon(ctx context.Context, code string) (bool, error) {
	normalized := coupons.Normalize(code)
	idx := indexOfCoupon(l.state.applied, normalized)
	if idx < 0 {
		return false, nil
	}
	next := l.cloneState()
	next.applied = append(next.applied[:idx], next.applied[idx+1:]...)

	if err := l.commit(ctx, next, false, true); err != nil {
		return false, err
	}
	l.metrics.IncMutation("remove_coupon")
	l.emit(Event{Type: enums.CartEventCouponRemoved, Coupon: normalized})
	return true, nil
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []LineItem {
	return cloneItems(l.state.items)
}

// AppliedCoupons returns a copy of the active coupons in application order.
func (l *Ledger) AppliedCoupons() []coupons.Coupon {
	return append([]coupons.Coupon(nil), l.state.applied...)
}

// IsEmpty reports whether the cart has no lines.
func (l *Ledger) IsEmpty() bool {
	return len(l.state.items) == 0
}

// Subtotal is the exact sum of price times quantity over all lines.
func (l *Ledger) Subtotal() decimal.Decimal {
	return subtotal(l.state.items)
}

// TotalDiscount is the combined coupon discount, clamped to the subtotal.
func (l *Ledger) TotalDiscount() decimal.Decimal {
	return discount(l.Subtotal(), l.state.applied)
}

// ConvenienceFee is the fixed fee, or zero when a fee-waiver coupon is applied.
func (l *Ledger) ConvenienceFee() decimal.Decimal {
	return convenienceFee(l.cfg.Pricing, l.state.applied)
}

// Taxes applies the tax rate to the discounted subtotal.
func (l *Ledger) Taxes() decimal.Decimal {
	sub := l.Subtotal()
	return taxes(l.cfg.Pricing, sub, discount(sub, l.state.applied))
}

// Total is what the buyer pays, never below zero.
func (l *Ledger) Total() decimal.Decimal {
	return l.Totals().Total
}

// TotalQuantity returns the number of tickets across all lines.
func (l *Ledger) TotalQuantity() int {
	return totalQuantity(l.state.items)
}

// Totals computes every derived figure at once.
func (l *Ledger) Totals() Totals {
	return computeTotals(l.cfg.Pricing, l.state.items, l.state.applied)
}

// Subscribe registers fn for every committed mutation. The returned function
// removes the subscription.
func (l *Ledger) Subscribe(fn func(Event)) (cancel func()) {
	l.nextSub++
	id := l.nextSub
	l.subs = append(l.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range l.subs {
			if sub.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

// commit persists next and, only once that succeeded, makes it current.
func (l *Ledger) commit(ctx context.Context, next state, itemsDirty, couponsDirty bool) error {
	if err := l.persist(ctx, next, itemsDirty, couponsDirty); err != nil {
		l.logg.Error(l.ctx(ctx), "persist cart failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	l.state = next
	return nil
}

func (l *Ledger) persist(ctx context.Context, next state, itemsDirty, couponsDirty bool) error {
	if itemsDirty {
		key := ItemsKey(l.sessionID)
		if len(next.items) == 0 {
			if err := l.store.Delete(ctx, key); err != nil {
				return err
			}
		} else if err := storage.SaveJSON(ctx, l.store, key, next.items); err != nil {
			return err
		}
	}
	if couponsDirty && l.cfg.PersistCoupons {
		key := CouponsKey(l.sessionID)
		if len(next.applied) == 0 {
			return l.store.Delete(ctx, key)
		}
		codes := make([]string, 0, len(next.applied))
		for _, c := range next.applied {
			codes = append(codes, c.Code)
		}
		return storage.SaveJSON(ctx, l.store, key, codes)
	}
	return nil
}

func (l *Ledger) emit(evt Event) {
	if len(l.subs) == 0 {
		return
	}
	evt.SessionID = l.sessionID
	evt.Totals = l.Totals()
	evt.At = l.now().UTC()
	for _, sub := range append([]subscriber(nil), l.subs...) {
		sub.fn(evt)
	}
}

func (l *Ledger) cloneState() state {
	return state{
		items:   cloneItems(l.state.items),
		applied: append([]coupons.Coupon(nil), l.state.applied...),
	}
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}

func indexOfShowing(items []LineItem, key showingKey) int {
	for i, item := range items {
		if item.showing() == key {
			return i
		}
	}
	return -1
}

func indexOfItem(items []LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func indexOfCoupon(applied []coupons.Coupon, code string) int {
	for i, c := range applied {
		if c.Code == code {
			return i
		}
	}
	return -1
}
