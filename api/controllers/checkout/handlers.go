package checkout

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/cart"
	checkoutsvc "github.com/angelmondragon/cinepass/internal/checkout"
	"github.com/angelmondragon/cinepass/internal/storefront"
	"github.com/angelmondragon/cinepass/pkg/enums"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

type goBackRequest struct {
	Step string `json:"step" validate:"notblank"`
}

type termsRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// Start opens the checkout for the logged in buyer.
func Start(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return step(runner, logg, http.StatusOK, func(ctx context.Context, ws *storefront.Workspace) error {
		buyer, err := ws.Auth().CurrentUser(ctx)
		if err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve current user")
		}
		return ws.Flow().Start(buyer)
	})
}

func SubmitPersonalData(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutsvc.PersonalDataInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		step(runner, logg, http.StatusOK, func(_ context.Context, ws *storefront.Workspace) error {
			return ws.Flow().SubmitPersonalData(body)
		})(w, r)
	}
}

func SubmitPayment(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutsvc.PaymentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		step(runner, logg, http.StatusOK, func(_ context.Context, ws *storefront.Workspace) error {
			return ws.Flow().SubmitPayment(body)
		})(w, r)
	}
}

// GoBack moves to an earlier step named by step ("personal_data", "payment"
// or the step number).
func GoBack(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body goBackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseCheckoutStep(strings.ToLower(strings.TrimSpace(body.Step)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout step").
				WithDetails(map[string]string{"step": "is invalid"}))
			return
		}
		step(runner, logg, http.StatusOK, func(_ context.Context, ws *storefront.Workspace) error {
			return ws.Flow().GoBack(to)
		})(w, r)
	}
}

func AcceptTerms(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body termsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		step(runner, logg, http.StatusOK, func(_ context.Context, ws *storefront.Workspace) error {
			return ws.Flow().AcceptTerms(*body.Accepted)
		})(w, r)
	}
}

// Review returns the confirmation view without changing anything.
func Review(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return step(runner, logg, http.StatusOK, func(context.Context, *storefront.Workspace) error {
		return nil
	})
}

// Finalize places the order and returns its snapshot.
func Finalize(runner storefront.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable"))
			return
		}

		var order *cart.OrderSnapshot
		err := runner.Do(r.Context(), middleware.SessionIDFromContext(r.Context()), func(ctx context.Context, ws *storefront.Workspace) error {
			placed, err := ws.Flow().Finalize(ctx)
			if err != nil {
				return err
			}
			order = placed
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderID(r.Context(), order.ID.String()), "order placed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func step(runner storefront.Runner, logg *logger.Logger, status int, fn func(ctx context.Context, ws *storefront.Workspace) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable"))
			return
		}

		var review checkoutsvc.Review
		err := runner.Do(r.Context(), middleware.SessionIDFromContext(r.Context()), func(ctx context.Context, ws *storefront.Workspace) error {
			if err := fn(ctx, ws); err != nil {
				return err
			}
			review = ws.Flow().Review()
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, review)
	}
}
