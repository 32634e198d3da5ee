package retention

import (
	"fmt"
	"time"

	"aircheck/internal/store"
)

// ExpiresAt computes the expiry instant for a recording started at
// recordedAt under the given policy. A nil result means the recording never
// expires. Calendar units follow the wall clock: "2 months" from Jan 31
// lands where time.AddDate puts it, not a fixed number of hours later.
func ExpiresAt(recordedAt time.Time, ttlType store.TTLType, value int) *time.Time {
	if ttlType == store.TTLIndefinite || value <= 0 {
		return nil
	}
	var at time.Time
	switch ttlType {
	case store.TTLDays:
		at = recordedAt.AddDate(0, 0, value)
	case store.TTLWeeks:
		at = recordedAt.AddDate(0, 0, 7*value)
	case store.TTLMonths:
		at = recordedAt.AddDate(0, value, 0)
	default:
		return nil
	}
	return &at
}

// ValidatePolicy rejects malformed TTL settings before anything is written.
func ValidatePolicy(ttlType store.TTLType, value int) error {
	if !ttlType.Valid() {
		return fmt.Errorf("invalid ttl type %q", ttlType)
	}
	if ttlType != store.TTLIndefinite && value < 1 {
		return fmt.Errorf("ttl value %d must be >= 1 for type %q", value, ttlType)
	}
	return nil
}
