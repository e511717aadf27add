package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/Simplici0/quoteworks/internal/logger"
)

const sqliteDialect = "sqlite3"

// gooseLogger routes goose output through the service logger.
type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.SugaredLogger.Infof(format, v...)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.SugaredLogger.Fatalf(format, v...)
}

// Up runs all pending SQL migrations found in migrationsDir. A nil log
// silences goose.
func Up(db *sql.DB, migrationsDir string, log *logger.Logger) error {
	if log == nil {
		goose.SetLogger(goose.NopLogger())
	} else {
		goose.SetLogger(gooseLogger{log: log})
	}

	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

// Version returns the current schema version.
func Version(db *sql.DB) (int64, error) {
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("get goose db version: %w", err)
	}
	return v, nil
}
