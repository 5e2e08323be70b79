package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var dialectDirs = []string{"postgres", "sqlite"}

// ValidateDir checks the migrations checked out under dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return ValidateFS(sub)
}

// ValidateFS requires every dialect folder to carry the same versions, each
// with well formed names and both goose sections.
func ValidateFS(fsys fs.FS) error {
	var reference map[string]string
	for _, dialect := range dialectDirs {
		versions, err := validateDialect(fsys, dialect)
		if err != nil {
			return err
		}
		if reference == nil {
			reference = versions
			continue
		}
		for version, name := range reference {
			if _, ok := versions[version]; !ok {
				return fmt.Errorf("migration %q has no %s counterpart", name, dialect)
			}
		}
		for version, name := range versions {
			if _, ok := reference[version]; !ok {
				return fmt.Errorf("migration %s/%q has no %s counterpart", dialect, name, dialectDirs[0])
			}
		}
	}
	return nil
}

func validateDialect(fsys fs.FS, dialect string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dialect)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %s/%q (expected YYYYMMDDHHMMSS_name.sql)", dialect, name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate %s migration version %s in %q and %q", dialect, version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, dialect+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read %s/%q: %w", dialect, name, err)
		}
		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %s/%q missing \"-- +goose Up\"", dialect, name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %s/%q missing \"-- +goose Down\"", dialect, name)
		}
	}
	return seen, nil
}
