package availability

import "time"

// Hours is the opening window of one clinic day, as offsets from midnight.
type Hours struct {
	Open  time.Duration
	Close time.Duration
}

// DailySlots returns slot start offsets within [Open, Close) for slots of
// the given length, skipping any that would overlap an existing slot or
// start before notBefore. Existing slots are assumed to be length long.
func DailySlots(h Hours, length time.Duration, existing []time.Duration, notBefore time.Duration) []time.Duration {
	if length <= 0 || h.Close <= h.Open || h.Open+length > h.Close {
		return nil
	}

	var slots []time.Duration
	for t := h.Open; t+length <= h.Close; t += length {
		if t < notBefore {
			continue
		}
		if !overlapsAny(t, t+length, existing, length) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Duration, existing []time.Duration, length time.Duration) bool {
	for _, b := range existing {
		// half-open: [start,end) overlaps [b,b+length) iff start < b+length && b < end
		if start < b+length && b < end {
			return true
		}
	}
	return false
}

// NotBefore returns the earliest offset on day that is still in the future
// relative to now. Past days yield a value past the end of the day, future
// days yield zero.
func NotBefore(day, now time.Time) time.Duration {
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case now.Before(midnight):
		return 0
	case now.Sub(midnight) >= 24*time.Hour:
		return 24 * time.Hour
	default:
		return now.Sub(midnight)
	}
}
