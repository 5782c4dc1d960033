package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rubenv/sql-migrate"
	"github.com/stark-indexer/strkindexer/internal/logger"
)

// Markers match sql-migrate's own convention, carried over from the
// teacher's internal/db/migrations.go so migration files stay portable
// between the two.
const (
	upDownSeparator = "-- +migrate Up"
	downMarker      = "-- +migrate Down"
)

// Migration is one embedded SQL file split into an Up and a Down half.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations applies every pending migration, spec §4.G step 1 ("run
// schema migrations if the adapter supports them").
func RunMigrations(db *sql.DB, log *logger.Logger, migrations []Migration) error {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		upIdx := strings.Index(m.SQL, upDownSeparator)
		if upIdx == -1 {
			return fmt.Errorf("migration %s missing %q separator", m.ID, upDownSeparator)
		}
		rest := m.SQL[upIdx+len(upDownSeparator):]

		upSQL, downSQL := rest, ""
		if downIdx := strings.Index(rest, downMarker); downIdx != -1 {
			upSQL = rest[:downIdx]
			downSQL = rest[downIdx+len(downMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(upSQL)},
			Down: []string{strings.TrimSpace(downSQL)},
		})
	}

	n, err := migrate.Exec(db, "sqlite3", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infof("applied %d migrations", n)
	return nil
}
