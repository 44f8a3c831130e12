package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL,
    source     TEXT      NOT NULL,
    freq_step  REAL      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS samples (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions (id),
    timestamp  INTEGER NOT NULL, -- Unix nanoseconds, UTC
    frequency  REAL    NOT NULL,
    power      REAL    NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_samples_session_time_freq
    ON samples (session_id, timestamp, frequency);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      source,
                      freq_step,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT s.id,
       s.start_time,
       s.source,
       s.freq_step,
       s.config,
       (SELECT COUNT(DISTINCT timestamp) FROM samples WHERE session_id = s.id)
FROM sessions s
WHERE s.id = ?`

	selectSessionsSQL = `
SELECT s.id,
       s.start_time,
       s.source,
       s.freq_step,
       s.config,
       (SELECT COUNT(DISTINCT timestamp) FROM samples WHERE session_id = s.id)
FROM sessions s
ORDER BY s.start_time, s.id`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     timestamp,
                     frequency,
                     power)
VALUES `

	selectFilterValuesSQL = `
SELECT MIN(frequency),
       MAX(frequency),
       MIN(timestamp),
       MAX(timestamp)
FROM samples
WHERE session_id = ?`

	selectSamplesSQL = `
SELECT timestamp,
       frequency,
       power
FROM samples
WHERE session_id = ?
  AND timestamp BETWEEN ? AND ?
  AND frequency BETWEEN ? AND ?
ORDER BY timestamp, frequency`
)
