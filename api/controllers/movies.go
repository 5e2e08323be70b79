package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

type movieCatalog interface {
	Lookup(movieID int) (catalog.Movie, bool)
	List(inTheaterOnly bool) []catalog.Movie
}

type couponCatalog interface {
	List() []coupons.Coupon
}

// MoviesList returns the catalog. ?in_theater=true limits it to movies with
// showtimes.
func MoviesList(movies movieCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inTheater, err := validators.QueryBool(r, "in_theater")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movies.List(inTheater))
	}
}

func MovieGet(movies movieCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "movieID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movie id"))
			return
		}
		movie, ok := movies.Lookup(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found"))
			return
		}
		responses.WriteSuccess(w, movie)
	}
}

func CouponsList(list couponCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, list.List())
	}
}
