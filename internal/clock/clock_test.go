package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Run("fixed width with microsecond precision", func(t *testing.T) {
		instants := []time.Time{
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC),
			time.Date(2024, 12, 31, 23, 59, 59, 999999000, time.UTC),
		}
		for _, instant := range instants {
			formatted := Format(instant)
			assert.Len(t, formatted, len("2024-01-02T03:04:05.000000Z"))
		}

		assert.Equal(t, "2024-01-02T03:04:05.123456Z", Format(time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)))
	})

	t.Run("normalizes to UTC", func(t *testing.T) {
		helsinki := time.FixedZone("EET", 2*60*60)
		instant := time.Date(2024, 6, 1, 12, 0, 0, 0, helsinki)
		assert.Equal(t, "2024-06-01T10:00:00.000000Z", Format(instant))
	})

	t.Run("lexicographic order equals chronological order", func(t *testing.T) {
		earlier := time.Date(2024, 6, 1, 9, 59, 59, 999999000, time.UTC)
		later := earlier.Add(time.Microsecond)

		assert.Less(t, Format(earlier), Format(later))
	})
}

func TestNew(t *testing.T) {
	now := New().Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFixed(t *testing.T) {
	instant := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := Fixed(instant)

	assert.Equal(t, instant, c.Now())
	assert.Equal(t, instant, c.Now())
}
