// Package credstore persists the logged-in session between runs.
//
// A Store holds at most one session. It is written as a flat set of string
// fields so every driver can replace the whole set atomically.
package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
)

// Store persists a single session.
type Store interface {
	// Save replaces whatever is stored with sess.
	Save(ctx context.Context, sess domain.Session) error

	// Load returns the stored session, or nil when nothing (or only an
	// incomplete record) is stored. Incomplete records are cleared.
	Load(ctx context.Context) (*domain.Session, error)

	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases the driver's resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrUnknownDriver is returned by Open for an unrecognised store name.
var ErrUnknownDriver = errors.New("credstore: unknown driver")

// Open builds the store selected by cfg.Store. The sqlite file defaults to
// paths.Credentials.
func Open(ctx context.Context, cfg config.CredentialsConfig, paths config.Paths, log *logging.Logger) (Store, error) {
	log = log.Sub("credstore")

	switch cfg.Store {
	case DriverMemory:
		return NewMemory(log), nil
	case DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = paths.Credentials
		}
		return OpenSQLite(path, log)
	case DriverRedis:
		return OpenRedis(ctx, cfg.Redis, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Store)
	}
}
