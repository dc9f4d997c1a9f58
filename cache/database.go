package cache

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseConfig selects and tunes the backing database of a DatabaseStore.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// DSN is the driver-specific connection string: a file path for sqlite,
	// a connection URL for postgres.
	DSN string

	// BusyTimeoutMS is the sqlite busy timeout. Defaults to 5000.
	BusyTimeoutMS int

	// EnableWAL turns on sqlite write-ahead logging. Recommended whenever
	// more than one process reads the cache.
	EnableWAL bool
}

// OpenDatabase opens a GORM handle for a DatabaseStore. SQLite connections
// get the usual pragmas applied after connecting.
func OpenDatabase(cfg DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("cache: unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		if err := applySQLitePragmas(db, cfg, log); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func applySQLitePragmas(db *gorm.DB, cfg DatabaseConfig, log *slog.Logger) error {
	busyTimeout := cfg.BusyTimeoutMS
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	if cfg.EnableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			log.Error("failed to apply pragma", slog.String("pragma", pragma), slog.Any("error", err))
			return fmt.Errorf("cache: apply pragma %s: %w", pragma, err)
		}
	}

	return nil
}
