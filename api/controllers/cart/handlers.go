package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/storefront"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

// Fetch returns the caller's cart with its current totals.
func Fetch(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
		return nil
	})
}

// AddItem adds a ticket line, merging it with an existing line for the same
// showing.
func AddItem(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handle(runner, logg, http.StatusCreated, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
			_, err := ws.Ledger().AddItem(ctx, body.MovieID, body.toOptions())
			return err
		})(w, r)
	}
}

// UpdateQuantity sets the quantity of one line; zero removes it.
func UpdateQuantity(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID := chi.URLParam(r, "itemID")
		handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
			ok, err := ws.Ledger().UpdateQuantity(ctx, itemID, *body.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return itemNotFound(itemID)
			}
			return nil
		})(w, r)
	}
}

func RemoveItem(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
		itemID := chi.URLParam(r, "itemID")
		ok, err := ws.Ledger().RemoveItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return itemNotFound(itemID)
		}
		return nil
	})
}

func Clear(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
		return ws.Ledger().Clear(ctx)
	})
}

func ApplyCoupon(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
			_, err := ws.Ledger().ApplyCoupon(ctx, body.Code)
			return err
		})(w, r)
	}
}

func RemoveCoupon(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return handle(runner, logg, http.StatusOK, func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		ok, err := ws.Ledger().RemoveCoupon(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not applied").
				WithDetails(map[string]string{"code": strings.ToUpper(code)})
		}
		return nil
	})
}

// handle runs fn inside the caller's workspace and answers with the cart as
// it stands afterwards.
func handle(runner storefront.Runner, logg *logger.Logger, status int, fn func(ctx context.Context, r *http.Request, ws *storefront.Workspace) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable"))
			return
		}

		var view Cart
		err := runner.Do(r.Context(), middleware.SessionIDFromContext(r.Context()), func(ctx context.Context, ws *storefront.Workspace) error {
			if err := fn(ctx, r, ws); err != nil {
				return err
			}
			view = newCart(ws.Ledger())
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, view)
	}
}

func itemNotFound(itemID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
		WithDetails(map[string]string{"item_id": itemID})
}
