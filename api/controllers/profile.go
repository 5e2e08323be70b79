package controllers

import (
	"net/http"
	"strconv"

	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/auth"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// AuthUpdateProfile merges the submitted profile fields into the logged in
// customer's profile.
func AuthUpdateProfile(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), middleware.SessionIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func FavoritesList(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		ids, err := svc.Favorites(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string][]int{"movie_ids": ids})
	}
}

// FavoriteAdd answers 201 when the movie became a favorite and 200 when it
// already was one.
func FavoriteAdd(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		movieID, err := favoriteMovieID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		added, err := svc.AddFavorite(r.Context(), middleware.SessionIDFromContext(r.Context()), movieID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, auth.FavoriteStatus{MovieID: movieID, Favorite: true})
	}
}

func FavoriteRemove(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		movieID, err := favoriteMovieID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveFavorite(r.Context(), middleware.SessionIDFromContext(r.Context()), movieID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auth.FavoriteStatus{MovieID: movieID})
	}
}

func FavoriteStatus(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		movieID, err := favoriteMovieID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.IsFavorite(r.Context(), middleware.SessionIDFromContext(r.Context()), movieID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func favoriteMovieID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil || id < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid movie id").
			WithDetails(map[string]string{"movie_id": "must be a positive integer"})
	}
	return id, nil
}
