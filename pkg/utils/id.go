package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix, e.g.
// run-20260101-120000-<uuid>. Time-ordered uuids keep IDs sortable.
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("run-%s-%s", timestamp, id.String())
}

// IsValidRunID reports whether a caller-supplied run ID is usable as a path segment
func IsValidRunID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
