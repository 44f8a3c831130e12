// Package storage persists parsed sweeps in SQLite so that a capture can be
// imported once and rendered many times.
package storage

import (
	"context"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// Store provides an interface for managing imported sweep sessions.
type Store interface {
	// CreateSession registers a new import and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Where the sweeps come from (file path or URL)
	//   - freqStep: Frequency step of the dataset in Hz
	//   - config: Optional import settings. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, source string, freqStep float64, config any) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreDataset saves every sweep of ds in a single atomic transaction.
	StoreDataset(ctx context.Context, sessionID int64, ds *spectrum.Dataset) error

	// ReadDataset rebuilds a dataset from the stored sweeps of a session,
	// optionally restricted to a time and frequency window.
	ReadDataset(ctx context.Context, sessionID int64, opts ...ReaderOption) (*spectrum.Dataset, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
