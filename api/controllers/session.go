package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/cinepass/api/responses"
	pkgAuth "github.com/angelmondragon/cinepass/pkg/auth"
	"github.com/angelmondragon/cinepass/pkg/config"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCreate opens an anonymous storefront session and returns the bearer
// token that identifies it on later calls.
func SessionCreate(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		sessionID := pkgAuth.NewSessionID()

		token, err := pkgAuth.MintSessionToken(cfg, now, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithSessionID(r.Context(), sessionID), "session opened")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			SessionID: sessionID,
			Token:     token,
			ExpiresAt: now.Add(cfg.TokenTTL()),
		})
	}
}
