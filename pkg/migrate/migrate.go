package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location of the migrations, used by create and validate.
const DefaultDir = "pkg/migrate/migrations"

// Dialect selects both the goose dialect and the matching migration folder.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and base filesystem in package globals.
var gooseMu sync.Mutex

// DialectFor maps a gorm dialector name ("postgres", "sqlite") to a Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

func (d Dialect) dir() string {
	if d == SQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// Run executes a goose command against the embedded migrations for dialect.
func Run(ctx context.Context, db *sql.DB, dialect Dialect, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if command == "" {
		return fmt.Errorf("command is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := use(dialect); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dialect.dir(), args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect Dialect, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := use(dialect); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dialect.dir(), target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dialect.dir(), target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

// Version reports the latest applied migration, 0 on a fresh database.
func Version(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := use(dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

// Latest returns the highest version shipped in the embedded migrations.
func Latest(dialect Dialect) (int64, error) {
	versions, err := embeddedVersions(dialect)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[len(versions)-1], nil
}

func use(dialect Dialect) error {
	if dialect != Postgres && dialect != SQLite {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

func embeddedVersions(dialect Dialect) ([]int64, error) {
	entries, err := migrationsFS.ReadDir(dialect.dir())
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	versions := make([]int64, 0, len(entries))
	for _, e := range entries {
		m := sqlFileRe.FindStringSubmatch(path.Base(e.Name()))
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}
