package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkoenig/tonbox/internal/domain/track"
)

func tracks(ids ...string) []track.Track {
	out := make([]track.Track, len(ids))
	for i, id := range ids {
		out[i] = track.Track{ID: id, Name: "track " + id}
	}
	return out
}

// checkInvariant asserts the pointer invariant that must hold after every
// mutation: -1 on empty, in range otherwise.
func checkInvariant(t *testing.T, q *Queue) {
	t.Helper()
	if q.Len() == 0 {
		assert.Equal(t, -1, q.CurrentIndex())
	} else {
		assert.GreaterOrEqual(t, q.CurrentIndex(), 0)
		assert.Less(t, q.CurrentIndex(), q.Len())
	}
}

func TestNew(t *testing.T) {
	q := New()

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, -1, q.CurrentIndex())
	_, ok := q.Current()
	assert.False(t, ok)
}

func TestQueue_Replace(t *testing.T) {
	q := New()

	require.NoError(t, q.Replace(tracks("t1", "t2", "t3", "t4"), 2))
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 2, q.CurrentIndex())
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "t3", cur.ID)
	checkInvariant(t, q)

	// Replace does not alias the caller's slice
	src := tracks("a", "b")
	require.NoError(t, q.Replace(src, 0))
	src[0].ID = "mutated"
	cur, _ = q.Current()
	assert.Equal(t, "a", cur.ID)

	assert.ErrorIs(t, q.Replace(tracks("x"), 1), ErrOutOfRange)
	assert.ErrorIs(t, q.Replace(tracks("x"), -1), ErrOutOfRange)

	require.NoError(t, q.Replace(nil, 0))
	checkInvariant(t, q)
}

func TestQueue_Append(t *testing.T) {
	q := New()

	q.Append(track.Track{ID: "t1"})
	assert.Equal(t, 0, q.CurrentIndex())
	checkInvariant(t, q)

	q.Append(track.Track{ID: "t2"})
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, q.Len())
	checkInvariant(t, q)
}

func TestQueue_InsertAfterCurrent(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(tracks("t1", "t2", "t3"), 1))

	at := q.InsertAfterCurrent(track.Track{ID: "x"})
	assert.Equal(t, 2, at)
	assert.Equal(t, []string{"t1", "t2", "x", "t3"}, ids(q))
	assert.Equal(t, 1, q.CurrentIndex())
	checkInvariant(t, q)

	// Empty queue: inserted track becomes current
	empty := New()
	at = empty.InsertAfterCurrent(track.Track{ID: "solo"})
	assert.Equal(t, 0, at)
	assert.Equal(t, 0, empty.CurrentIndex())
	checkInvariant(t, empty)
}

func TestQueue_Jump(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(tracks("t1", "t2", "t3"), 0))

	require.NoError(t, q.Jump(2))
	assert.Equal(t, 2, q.CurrentIndex())

	// Idempotent: a second jump to the same index changes nothing
	require.NoError(t, q.Jump(2))
	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(q))

	assert.ErrorIs(t, q.Jump(3), ErrOutOfRange)
	assert.ErrorIs(t, q.Jump(-1), ErrOutOfRange)
	assert.Equal(t, 2, q.CurrentIndex())
	checkInvariant(t, q)
}

func TestQueue_Remove(t *testing.T) {
	t.Run("below current shifts pointer", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1", "t2", "t3"), 1))

		require.NoError(t, q.Remove(0))
		assert.Equal(t, []string{"t2", "t3"}, ids(q))
		assert.Equal(t, 0, q.CurrentIndex())
		cur, _ := q.Current()
		assert.Equal(t, "t2", cur.ID, "pointer must stay on the same logical track")
		checkInvariant(t, q)
	})

	t.Run("above current leaves pointer", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1", "t2", "t3"), 1))

		require.NoError(t, q.Remove(2))
		assert.Equal(t, 1, q.CurrentIndex())
		cur, _ := q.Current()
		assert.Equal(t, "t2", cur.ID)
		checkInvariant(t, q)
	})

	t.Run("current points at successor", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1", "t2", "t3"), 1))

		require.NoError(t, q.Remove(1))
		assert.Equal(t, 1, q.CurrentIndex())
		cur, _ := q.Current()
		assert.Equal(t, "t3", cur.ID)
		checkInvariant(t, q)
	})

	t.Run("current at tail clamps", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1", "t2"), 1))

		require.NoError(t, q.Remove(1))
		assert.Equal(t, 0, q.CurrentIndex())
		checkInvariant(t, q)
	})

	t.Run("last track empties queue", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1"), 0))

		require.NoError(t, q.Remove(0))
		assert.Equal(t, 0, q.Len())
		assert.Equal(t, -1, q.CurrentIndex())
		checkInvariant(t, q)
	})

	t.Run("out of range rejected", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Replace(tracks("t1"), 0))

		assert.ErrorIs(t, q.Remove(1), ErrOutOfRange)
		assert.ErrorIs(t, q.Remove(-1), ErrOutOfRange)
		assert.Equal(t, 1, q.Len())
	})
}

func TestQueue_AdvanceRetreat(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(tracks("t1", "t2"), 0))

	assert.True(t, q.Advance())
	assert.Equal(t, 1, q.CurrentIndex())

	// End of queue: pointer stays put
	assert.False(t, q.Advance())
	assert.Equal(t, 1, q.CurrentIndex())

	assert.True(t, q.Retreat())
	assert.Equal(t, 0, q.CurrentIndex())

	// Head of queue: no-op
	assert.False(t, q.Retreat())
	assert.Equal(t, 0, q.CurrentIndex())
	checkInvariant(t, q)

	assert.False(t, New().Advance())
	assert.False(t, New().Retreat())
}

func TestQueue_TracksIsCopy(t *testing.T) {
	q := New()
	require.NoError(t, q.Replace(tracks("t1", "t2"), 0))

	got := q.Tracks()
	got[0].ID = "mutated"

	cur, _ := q.Current()
	assert.Equal(t, "t1", cur.ID)
}

func ids(q *Queue) []string {
	ts := q.Tracks()
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
