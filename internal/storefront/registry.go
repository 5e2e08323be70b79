package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/checkout"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/metrics"
	"github.com/angelmondragon/cinepass/pkg/storage"
)

const defaultIdleAfter = 30 * time.Minute

// AuthFunc returns the auth provider bound to a session.
type AuthFunc func(sessionID string) cart.AuthProvider

// Params bundles what the registry needs to build workspaces.
type Params struct {
	Movies    cart.MovieLookup
	Coupons   cart.CouponLookup
	Store     storage.Store
	History   cart.HistorySink
	AuthFor   AuthFunc
	Cart      cart.Config
	IdleAfter time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.StorefrontMetrics
}

// Runner hands out exclusive access to session workspaces.
type Runner interface {
	Do(ctx context.Context, sessionID string, fn func(ctx context.Context, ws *Workspace) error) error
}

// Workspace is the cart and checkout flow of one session. It is only handed
// out while its lock is held.
type Workspace struct {
	mu        sync.Mutex
	sessionID string
	ledger    *cart.Ledger
	flow      *checkout.Flow
	auth      cart.AuthProvider
	lastUsed  time.Time
	evicted   bool
}

func (w *Workspace) SessionID() string { return w.sessionID }

func (w *Workspace) Ledger() *cart.Ledger { return w.ledger }

func (w *Workspace) Flow() *checkout.Flow { return w.flow }

func (w *Workspace) Auth() cart.AuthProvider { return w.auth }

// Registry keeps one workspace per live session and serializes all work on
// a session. Idle workspaces are dropped by Sweep; their cart survives in the
// store and is rehydrated on next use, the checkout progress does not.
type Registry struct {
	params Params
	logg   *logger.Logger
	now    func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry validates params and builds an empty registry.
func NewRegistry(params Params) (*Registry, error) {
	if params.Movies == nil {
		return nil, fmt.Errorf("movie catalog required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon catalog required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history sink required")
	}
	if params.AuthFor == nil {
		return nil, fmt.Errorf("auth provider factory required")
	}
	if params.IdleAfter <= 0 {
		params.IdleAfter = defaultIdleAfter
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
		params.Logger = logg
	}
	return &Registry{
		params:     params,
		logg:       logg,
		now:        time.Now,
		workspaces: map[string]*Workspace{},
	}, nil
}

// WithClock overrides the time source used for idle tracking.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Do runs fn with exclusive access to the workspace of sessionID, creating
// and rehydrating it on first use.
func (r *Registry) Do(ctx context.Context, sessionID string, fn func(ctx context.Context, ws *Workspace) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "session required")
	}
	ctx = r.logg.WithSessionID(ctx, sessionID)

	for {
		ws := r.lookup(sessionID)
		ws.mu.Lock()
		if ws.evicted {
			ws.mu.Unlock()
			continue
		}
		err := r.run(ctx, ws, fn)
		ws.mu.Unlock()
		return err
	}
}

func (r *Registry) lookup(sessionID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[sessionID]
	if !ok {
		ws = &Workspace{sessionID: sessionID}
		r.workspaces[sessionID] = ws
	}
	return ws
}

func (r *Registry) run(ctx context.Context, ws *Workspace, fn func(ctx context.Context, ws *Workspace) error) error {
	if ws.ledger == nil {
		if err := r.build(ctx, ws); err != nil {
			return err
		}
	}
	ws.lastUsed = r.now()
	return fn(ctx, ws)
}

func (r *Registry) build(ctx context.Context, ws *Workspace) error {
	auth := r.params.AuthFor(ws.sessionID)
	ledger, err := cart.NewLedger(ctx, ws.sessionID, cart.Deps{
		Movies:  r.params.Movies,
		Coupons: r.params.Coupons,
		Store:   r.params.Store,
		Auth:    auth,
		History: r.params.History,
		Logger:  r.params.Logger,
		Metrics: r.params.Metrics,
	}, r.params.Cart)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart")
	}
	flow, err := checkout.NewFlow(ledger, checkout.Options{Logger: r.params.Logger})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build checkout flow")
	}
	ws.auth = auth
	ws.ledger = ledger
	ws.flow = flow
	return nil
}

// Len reports how many workspaces are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep drops workspaces unused for longer than the idle window and returns
// how many were dropped. Workspaces busy at the time are skipped.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.params.IdleAfter)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, ws := range r.workspaces {
		if !ws.mu.TryLock() {
			continue
		}
		if ws.lastUsed.Before(cutoff) {
			ws.evicted = true
			delete(r.workspaces, id)
			evicted++
		}
		ws.mu.Unlock()
	}
	if evicted > 0 {
		r.logg.Info(r.logg.WithField(ctx, "evicted", evicted), "idle workspaces dropped")
	}
	return evicted
}
