// Package pagination pages through purchase history newest first, keyed on
// (created_at, id) so pages stay stable while new orders arrive.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrInvalidCursor is wrapped by every cursor that fails to decode or belongs
// to another account.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is a page request as it arrives from the orders endpoint.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks the last order of a page. Owner ties it to the account that
// listed it.
type Cursor struct {
	Owner     uuid.UUID
	CreatedAt time.Time
	ID        uuid.UUID
}

// Window is a checked page request for one owner.
type Window struct {
	Owner uuid.UUID
	Limit int
	After *Cursor
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for
// anything not positive.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Window decodes the cursor and checks it was issued to owner.
func (p Params) Window(owner uuid.UUID) (Window, error) {
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return Window{}, err
	}
	if after != nil && after.Owner != owner {
		return Window{}, fmt.Errorf("%w: issued to another account", ErrInvalidCursor)
	}
	return Window{Owner: owner, Limit: NormalizeLimit(p.Limit), After: after}, nil
}

// Scope narrows an orders query to rows older than the cursor, newest first,
// reading one row past the page so Trim can tell whether more remain.
func (w Window) Scope(q *gorm.DB) *gorm.DB {
	if w.After != nil {
		at := w.After.CreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, w.After.ID)
	}
	return q.Order("created_at DESC, id DESC").Limit(w.Limit + 1)
}

// Trim drops the look-ahead row and returns the cursor for the next page, or
// "" when rows was the last page.
func Trim[T any](w Window, rows []T, key func(T) (time.Time, uuid.UUID)) ([]T, string) {
	if len(rows) <= w.Limit {
		return rows, ""
	}
	rows = rows[:w.Limit]
	createdAt, id := key(rows[len(rows)-1])
	return rows, EncodeCursor(Cursor{Owner: w.Owner, CreatedAt: createdAt, ID: id})
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	payload := strings.Join([]string{
		c.Owner.String(),
		strconv.FormatInt(c.CreatedAt.UnixNano(), 10),
		c.ID.String(),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a token from EncodeCursor. A blank token means the
// first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.Split(string(decoded), "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}

	owner, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidCursor, err)
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{Owner: owner, CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
