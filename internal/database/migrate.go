package database

import (
	"fmt"

	"exam-room/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// migrations are applied in order on every start; each is idempotent.
var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "create_grid_sheets",
		stmt: `CREATE TABLE IF NOT EXISTS grid_sheets (
	name TEXT PRIMARY KEY,
	position INTEGER NOT NULL
)`,
	},
	{
		name: "create_grid_rows",
		stmt: `CREATE TABLE IF NOT EXISTS grid_rows (
	sheet TEXT NOT NULL,
	row_num INTEGER NOT NULL,
	cells TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (sheet, row_num),
	FOREIGN KEY (sheet) REFERENCES grid_sheets(name) ON DELETE CASCADE
)`,
	},
}

func RunMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("could not execute migration %s: %w", m.name, err)
		}
		logger.Get().Debug("Executed migration", zap.String("migration", m.name))
	}
	return nil
}
