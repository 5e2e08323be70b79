package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/angelmondragon/cinepass/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Upstream proxies may send their own id; anything else is replaced so log
// lines never carry client-controlled junk.
var inboundRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags every request with an id. The id goes out in the response
// header, into error bodies and onto every log line of the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !inboundRequestID.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
