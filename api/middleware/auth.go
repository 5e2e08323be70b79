package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/cinepass/api/responses"
	pkgAuth "github.com/angelmondragon/cinepass/pkg/auth"
	"github.com/angelmondragon/cinepass/pkg/config"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

// Session validates the bearer session token and seeds the request context
// with its session id. It says nothing about whether a user is logged in.
func Session(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "missing session token"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid session token"))
				return
			}

			ctx := WithSessionID(r.Context(), claims.SessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, claims.SessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
