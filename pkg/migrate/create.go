package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateSQLMigration writes an empty goose migration with the same version
// into every dialect folder under dir and returns the created paths.
func CreateSQLMigration(dir, name string, now time.Time) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	safe := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	safe = strings.Trim(nameSanitizeRe.ReplaceAllString(safe, "_"), "_")
	if safe == "" {
		return nil, fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	filename := fmt.Sprintf("%s_%s.sql", now.UTC().Format("20060102150405"), safe)
	body := fmt.Sprintf("-- +goose Up\n-- %s\n\n-- +goose Down\n-- rollback %s\n", safe, safe)

	paths := make([]string, 0, len(dialectDirs))
	for _, dialect := range dialectDirs {
		target := filepath.Join(dir, dialect)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", target, err)
		}
		full := filepath.Join(target, filename)
		if _, err := os.Stat(full); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", full)
		}
		paths = append(paths, full)
	}
	for _, full := range paths {
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("write migration %q: %w", full, err)
		}
	}
	return paths, nil
}
