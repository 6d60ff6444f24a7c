// Package timespec parses the --since/--until flags shared by the watch and
// cases commands.
package timespec

import (
	"fmt"
	"time"
)

// Parse parses a time specification into a Unix timestamp (milliseconds).
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m" - relative, meaning that long ago
//   - RFC3339 timestamps: "2026-08-30T13:00:00Z"
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or RFC3339 like '2026-08-30T13:00:00Z')", spec)
}

// ParseRange parses --since and --until into a millisecond time range.
// Zero values mean "no bound" for that end of the range.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		untilMS, err = Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}
	return sinceMS, untilMS, nil
}
