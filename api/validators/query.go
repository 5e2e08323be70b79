package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/pagination"
)

// QueryInt reads an integer query parameter bounded to [min, max]. A missing
// parameter yields fallback.
func QueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be a whole number")
	}
	if value < min || value > max {
		return 0, queryError(key, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return value, nil
}

// QueryBool reads a boolean flag such as ?in_theater=true.
func QueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, "must be true or false")
	}
	return value, nil
}

// QueryPage reads the ?limit and ?cursor pair used by the purchase history.
func QueryPage(r *http.Request) (pagination.Params, error) {
	limit, err := QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func queryError(key, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter "+key).
		WithDetails(map[string]string{key: reason})
}
