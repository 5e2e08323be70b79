package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/api/responses"
	"github.com/angelmondragon/cinepass/api/validators"
	"github.com/angelmondragon/cinepass/internal/auth"
	"github.com/angelmondragon/cinepass/internal/users"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

// AuthService is the slice of internal/auth the HTTP layer drives.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, sessionID string, req auth.LoginRequest) (*users.UserDTO, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, sessionID string) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, sessionID string, req auth.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, sessionID string, req auth.UpdateProfileRequest) (*users.UserDTO, error)
	Favorites(ctx context.Context, sessionID string) ([]int, error)
	AddFavorite(ctx context.Context, sessionID string, movieID int) (bool, error)
	RemoveFavorite(ctx context.Context, sessionID string, movieID int) error
	IsFavorite(ctx context.Context, sessionID string, movieID int) (*auth.FavoriteStatus, error)
}

func AuthRegister(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AuthLogin binds the credentials' owner to the caller's session.
func AuthLogin(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Login(r.Context(), middleware.SessionIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AuthLogout(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

func AuthMe(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		user, err := svc.Me(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AuthChangePassword(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), middleware.SessionIDFromContext(r.Context()), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"password_changed": true})
	}
}
