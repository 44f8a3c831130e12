package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// ErrNoData indicates that a session has no stored samples in the requested window.
var ErrNoData = errors.New("no data available")

// ReaderOption configures a SweepReader with filtering criteria.
type ReaderOption func(*SweepReader)

// WithFreqRange restricts the reader to samples within [minFreq, maxFreq].
func WithFreqRange(minFreq, maxFreq float64) ReaderOption {
	return func(r *SweepReader) {
		r.minFreq = &minFreq
		r.maxFreq = &maxFreq
	}
}

// WithTimeRange restricts the reader to sweeps taken within [startTime, endTime].
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SweepReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// SweepReader iterates over the stored sweeps of a session in time order.
// A reader must be used from a single goroutine and closed after use.
type SweepReader struct {
	db        *sql.DB
	sessionID int64
	session   *Session

	startTime *time.Time
	endTime   *time.Time
	minFreq   *float64
	maxFreq   *float64

	rows    *sql.Rows
	current spectrum.Sweep
	next    *sample // First sample of the following sweep
	err     error
}

type sample struct {
	timestamp int64
	frequency float64
	power     float64
}

func newSweepReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SweepReader, error) {
	r := &SweepReader{
		db:        db,
		sessionID: sessionID,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *SweepReader) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: r.loadSession},
		{msg: "initializing filters", fn: r.initFilters},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *SweepReader) loadSession(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if r.session, err = scanSession(stmt.QueryRowContext(ctx, r.sessionID)); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	return nil
}

// initFilters validates explicit filters and fills the missing ones with the
// bounds of the stored data.
func (r *SweepReader) initFilters(ctx context.Context) (err error) {
	if r.startTime != nil && r.endTime != nil && r.startTime.After(*r.endTime) {
		return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
	}
	if r.minFreq != nil && r.maxFreq != nil && *r.minFreq > *r.maxFreq {
		return fmt.Errorf("min frequency %f is greater than max frequency %f", *r.minFreq, *r.maxFreq)
	}

	stmt, err := r.db.PrepareContext(ctx, selectFilterValuesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var minFreq, maxFreq sql.NullFloat64
	var startTime, endTime sql.NullInt64
	if err = stmt.QueryRowContext(ctx, r.sessionID).Scan(&minFreq, &maxFreq, &startTime, &endTime); err != nil {
		return fmt.Errorf("scanning filters data: %w", err)
	}
	if !minFreq.Valid {
		return ErrNoData
	}

	if r.minFreq == nil {
		r.minFreq = &minFreq.Float64
	}
	if r.maxFreq == nil {
		r.maxFreq = &maxFreq.Float64
	}
	if r.startTime == nil {
		t := time.Unix(0, startTime.Int64).UTC()
		r.startTime = &t
	}
	if r.endTime == nil {
		t := time.Unix(0, endTime.Int64).UTC()
		r.endTime = &t
	}

	return nil
}

func (r *SweepReader) initQuery(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	r.rows, err = stmt.QueryContext(ctx,
		r.sessionID,
		r.startTime.UnixNano(),
		r.endTime.UnixNano(),
		*r.minFreq,
		*r.maxFreq,
	)
	return err
}

// Session returns the session the reader is accessing.
func (r *SweepReader) Session() *Session {
	return r.session
}

// Next advances to the next sweep. It returns false when the iteration is
// complete or an error occurred; check Err to tell them apart.
func (r *SweepReader) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}

	var sweep spectrum.Sweep
	var ts int64

	if r.next != nil {
		ts = r.next.timestamp
		sweep.Samples = append(sweep.Samples, spectrum.Sample{Frequency: r.next.frequency, Power: r.next.power})
		r.next = nil
	}

	for r.rows.Next() {
		var s sample
		if err := r.rows.Scan(&s.timestamp, &s.frequency, &s.power); err != nil {
			r.err = fmt.Errorf("scanning sample: %w", err)
			return false
		}

		if len(sweep.Samples) > 0 && s.timestamp != ts {
			r.next = &s
			break
		}

		ts = s.timestamp
		sweep.Samples = append(sweep.Samples, spectrum.Sample{Frequency: s.frequency, Power: s.power})
	}
	if err := r.rows.Err(); err != nil {
		r.err = fmt.Errorf("iterating samples: %w", err)
		return false
	}

	if len(sweep.Samples) == 0 {
		return false
	}

	sweep.Timestamp = time.Unix(0, ts).UTC()
	r.current = sweep
	return true
}

// Current returns the sweep read by the last call to Next.
func (r *SweepReader) Current() spectrum.Sweep {
	return r.current
}

func (r *SweepReader) Err() error {
	return r.err
}

func (r *SweepReader) Close() error {
	if r.rows == nil {
		return nil
	}
	return r.rows.Close()
}
