package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/history"
	"github.com/angelmondragon/cinepass/internal/users"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/pagination"
)

// Repository reads a user's purchase history.
type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*history.Page, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*cart.OrderSnapshot, error)
}

// CurrentUser resolves the user logged in on a session.
type CurrentUser interface {
	Me(ctx context.Context, sessionID string) (*users.UserDTO, error)
}

// List returns the logged in user's purchases newest first.
func List(repo Repository, current CurrentUser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || current == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order history unavailable"))
			return
		}

		user, err := current.Me(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.QueryPage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := repo.ListByUser(r.Context(), user.ID, params)
		if errors.Is(err, pagination.ErrInvalidCursor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
				WithDetails(map[string]string{"cursor": "is invalid"}))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns one of the logged in user's purchases.
func Detail(repo Repository, current CurrentUser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || current == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order history unavailable"))
			return
		}

		user, err := current.Me(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := repo.Get(r.Context(), user.ID, orderID)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}
