package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// maxBatchRows bounds the number of rows of a single multi-row insert, keeping
// it under the SQLite host parameter limit.
const maxBatchRows = 1000

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

// toNullString encodes an optional config value. Strings and byte slices are
// stored as is, anything else as JSON.
func toNullString(config any) (sql.NullString, error) {
	switch v := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: v, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(v), Valid: true}, nil
	}

	p, err := json.Marshal(config)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
	}
	return sql.NullString{String: string(p), Valid: true}, nil
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var sess Session
	var config sql.NullString
	if err := row.Scan(&sess.ID, &sess.StartTime, &sess.Source, &sess.FreqStep, &config, &sess.Sweeps); err != nil {
		return nil, err
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}
