// Package libsql provides a libSQL (Turso) storage driver. libSQL speaks the
// SQLite dialect, so it shares the ent SQLite code path.
package libsql

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/tursodatabase/go-libsql" // register the libSQL driver as "libsql"

	entdriver "github.com/papercomputeco/storyline/pkg/storage/ent/driver"
)

// Driver implements storage.Driver using libSQL via the ent driver.
type Driver struct {
	*entdriver.EntDriver
}

// NewDriver creates a new libSQL-backed store. The url is either a local
// "file:" URL or a remote "libsql://" URL with an authToken query parameter.
func NewDriver(ctx context.Context, url string) (*Driver, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ed, err := entdriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{EntDriver: ed}, nil
}
