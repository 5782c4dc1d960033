package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/internal/store/sqlite"
)

//go:embed 001_schema.sql
var mig001 string

// Run applies the indexer's blocks/events/cursor schema, following the
// teacher's internal/migrations embed-one-var-per-file convention.
func Run(db *sql.DB, log *logger.Logger) error {
	return sqlite.RunMigrations(db, log, []sqlite.Migration{
		{ID: "001_schema.sql", SQL: mig001},
	})
}
