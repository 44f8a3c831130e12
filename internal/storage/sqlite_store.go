package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/waterfall/internal/spectrum"
	"github.com/roman-kulish/waterfall/internal/sweep"
)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) func(s *SqliteStore) {
	return func(s *SqliteStore) {
		s.logger = logger
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string
	logger *slog.Logger

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store backed by the SQLite database at dbPath.
// Connections are opened lazily and the schema is created on first write.
func NewSqliteStore(dbPath string, options ...func(s *SqliteStore)) *SqliteStore {
	s := SqliteStore{
		dbPath: dbPath,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, source string, freqStep float64, config any) (sessionID int64, err error) {
	configData, err := toNullString(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, source, freqStep, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, id)); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreDataset(ctx context.Context, sessionID int64, ds *spectrum.Dataset) (err error) {
	if ds == nil {
		return spectrum.NewPreconditionError("storing without a dataset")
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for _, sw := range ds.Sweeps {
		if err = insertSweep(ctx, tx, sessionID, sw); err != nil {
			return fmt.Errorf("storing sweep %s: %w", sw.Timestamp, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("dataset stored",
		slog.Int64("sessionID", sessionID),
		slog.Int("sweeps", len(ds.Sweeps)),
		slog.Int("samples", ds.NumSamples()),
	)
	return nil
}

// insertSweep writes the samples of a sweep with multi-row inserts of at most
// maxBatchRows rows each.
func insertSweep(ctx context.Context, tx *sql.Tx, sessionID int64, sw spectrum.Sweep) error {
	const valuesPlaceholder = "(?, ?, ?, ?)"

	ts := sw.Timestamp.UnixNano()
	for start := 0; start < len(sw.Samples); start += maxBatchRows {
		batch := sw.Samples[start:min(start+maxBatchRows, len(sw.Samples))]

		var sb strings.Builder
		sb.WriteString(insertSampleSQL)

		values := make([]any, 0, len(batch)*4)
		for i, sample := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(valuesPlaceholder)
			values = append(values, sessionID, ts, sample.Frequency, sample.Power)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting samples: %w", err)
		}
	}
	return nil
}

// ReadSweeps creates a reader over the stored sweeps of a session. The reader
// must be closed after use.
func (s *SqliteStore) ReadSweeps(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SweepReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSweepReader(ctx, db, sessionID, opts...)
}

func (s *SqliteStore) ReadDataset(ctx context.Context, sessionID int64, opts ...ReaderOption) (ds *spectrum.Dataset, err error) {
	r, err := s.ReadSweeps(ctx, sessionID, opts...)
	if err != nil {
		return nil, err
	}
	defer closeWithError(r, &err)

	b := sweep.NewBuilder(sweep.WithLogger(s.logger))
	for r.Next(ctx) {
		if err = b.AddSweep(r.Current(), r.Session().FreqStep); err != nil {
			return nil, fmt.Errorf("adding sweep: %w", err)
		}
	}
	if err = r.Err(); err != nil {
		return nil, fmt.Errorf("reading sweeps: %w", err)
	}

	if ds, err = b.Build(); err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	return ds, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
