package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		ms, err := Parse("2026-08-30T13:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC).UnixMilli(), ms)
	})

	t.Run("relative duration", func(t *testing.T) {
		before := time.Now().Add(-time.Hour).UnixMilli()
		ms, err := Parse("1h")
		require.NoError(t, err)
		after := time.Now().Add(-time.Hour).UnixMilli()
		assert.GreaterOrEqual(t, ms, before)
		assert.LessOrEqual(t, ms, after)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Parse("last tuesday")
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := Parse("")
		assert.Error(t, err)
	})
}

func TestParseRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		since, until, err := ParseRange("2h", "1h")
		require.NoError(t, err)
		assert.Less(t, since, until)
	})

	t.Run("unset bounds are zero", func(t *testing.T) {
		since, until, err := ParseRange("", "")
		require.NoError(t, err)
		assert.Zero(t, since)
		assert.Zero(t, until)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, _, err := ParseRange("1h", "2h")
		assert.Error(t, err)
	})
}
