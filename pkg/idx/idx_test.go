package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("generates valid ulids", func(t *testing.T) {
		id := New()
		require.False(t, id.IsZero())
		require.Len(t, id.String(), 26)

		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("ids are monotonically increasing", func(t *testing.T) {
		prev := New()
		for i := 0; i < 1000; i++ {
			next := New()
			require.Greater(t, next.String(), prev.String())
			prev = next
		}
	})

	t.Run("embeds the creation time", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		id := New()
		after := time.Now().Add(time.Second)

		require.True(t, id.Time().After(before))
		require.True(t, id.Time().Before(after))
	})
}

func TestNewAt(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.Equal(t, at.UnixMilli(), id.Time().UnixMilli())
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Parse("definitely-not-a-ulid")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := Parse("")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("must parse panics on bad input", func(t *testing.T) {
		require.Panics(t, func() { MustParse("nope") })
	})
}
