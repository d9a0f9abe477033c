package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ailab/linkguard/internal/setup/config"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDialect is returned for a session dialect with no driver.
var ErrUnsupportedDialect = errors.New("unsupported session dialect")

// sessionDriver maps a configured dialect to its database/sql driver name
// and the dialect name understood by the session store.
func sessionDriver(dialect string) (string, string, error) {
	switch dialect {
	case "sqlite":
		return "sqlite", "sqlite3", nil
	case "postgres":
		return "pgx", "postgres", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
}

// OpenStore opens the device session store and applies pending schema upgrades.
// The store persists pairing credentials and keeps them current as the
// protocol rotates them.
func OpenStore(ctx context.Context, cfg *config.Session, logger *zap.Logger) (*sqlstore.Container, error) {
	driver, dialect, err := sessionDriver(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	container := sqlstore.NewWithDB(db, dialect, NewLogger(logger.Named("store")))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade session store: %w", err)
	}

	return container, nil
}
