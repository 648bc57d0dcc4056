package model

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string for use as a sweep identifier.
func NewID() string {
	return ulid.Make().String()
}

// NewRecordID generates a row identifier for a persisted evaluation record.
func NewRecordID() string {
	return uuid.NewString()
}

// TraceID returns the trace identifier linking an evaluation record to the
// sweep and model run that produced it.
func TraceID(sweepID, modelID string) string {
	return sweepID + "/" + modelID
}
