package types

import (
	"time"

	"github.com/google/uuid"
)

// RunID identifies one validation run in the diary.
// String alias enables type safety while keeping JSON string serialization.
// UUIDv7 time-ordering ensures sequential inserts cluster in B-tree pages.
type RunID string

// SkillID identifies a skill specification in the registry.
type SkillID string

// NewRunID generates a UUIDv7 run identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// ParseRunID validates and converts a string to RunID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the diary.
func ParseRunID(s string) (RunID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RunID(s), nil
}

// RunIDTime extracts the timestamp embedded in a UUIDv7 run ID.
// Enables time-based diary queries without a database lookup.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RunIDTime(id RunID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
