// Package sessionstore keeps exported session blobs by name so callers do
// not have to carry session strings around. Blobs can be sealed with a
// passphrase before they reach the backend.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/flemzord/tgflow/internal/config"
	"github.com/flemzord/tgflow/internal/mtproto"
)

// ErrNotFound is returned when no session has the requested name.
var ErrNotFound = errors.New("sessionstore: session not found")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Entry is one stored session.
type Entry struct {
	Name    string
	Session mtproto.Blob
	// UserID and Username describe the account the session signs in as.
	UserID    string
	Username  string
	UpdatedAt time.Time
}

// Store is a named session repository.
type Store interface {
	Load(ctx context.Context, name string) (Entry, error)
	// Save inserts or replaces the entry and stamps UpdatedAt.
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, name string) error
	// List returns every entry sorted by name. Sessions may be omitted.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// ValidateName rejects names that are empty, too long or contain
// characters other than letters, digits, dot, dash and underscore.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("sessionstore: invalid session name %q", name)
	}
	return nil
}

// Open builds the store described by cfg. A passphrase wraps the backend
// with Sealed.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case "", config.StoreSQLite:
		store, err = OpenSQLite(ctx, cfg.Path)
	case config.StoreRedis:
		store, err = OpenRedis(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("sessionstore: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("session store opened", "component", "sessionstore", "driver", cfg.Driver, "sealed", cfg.Passphrase != "")
	if cfg.Passphrase != "" {
		return NewSealed(store, cfg.Passphrase), nil
	}
	return store, nil
}
