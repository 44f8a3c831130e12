package storage

import (
	"time"
)

// Session is one imported sweep capture.
type Session struct {
	ID        int64
	StartTime time.Time // When the session was imported
	Source    string    // Where the sweeps were read from
	FreqStep  float64   // Dataset frequency step in Hz
	Config    *string   // Optional JSON encoded import settings
	Sweeps    int       // Number of stored sweeps
}
