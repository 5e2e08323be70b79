package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string-keyed blob store. Implementations must be safe for
// concurrent use.
//
// Replace writes value only when key is currently present and reports whether
// it did. It is atomic with respect to Delete, so a refresh racing a delete
// never brings the key back.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Replace(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
}

// LoadJSON decodes the value stored under key into dest. The boolean is false
// when the key is absent, in which case dest is left untouched.
func LoadJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes value and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, raw)
}

// ReplaceJSON encodes value and overwrites key only if it still exists.
func ReplaceJSON(ctx context.Context, s Store, key string, value any) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Replace(ctx, key, raw)
}
