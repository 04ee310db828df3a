package repository

import (
	"time"
)

// The provider hands back timestamps in more than one shape depending on
// how the document was written (committed server time, a client that wrote
// an RFC3339 string, or epoch milliseconds from older writers). Rather than
// probe fields at runtime, each known shape has one conversion arm and
// anything else is explicitly unrecognized.
func normalizeTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	default:
		// Unrecognized shape, including a pending server timestamp.
		return time.Time{}, false
	}
}
