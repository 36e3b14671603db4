// Package queue provides the ordered playback queue with a current-position
// pointer. It is a plain data structure: only the session controller mutates
// it, every other component sees copies.
package queue

import (
	"errors"

	"github.com/pkoenig/tonbox/internal/domain/track"
)

// ErrOutOfRange is returned for index-addressed operations outside the queue.
var ErrOutOfRange = errors.New("queue index out of range")

// Queue is an ordered track list plus the index of the current track.
// Invariant: current == -1 when empty, otherwise 0 <= current < len(tracks).
type Queue struct {
	tracks  []track.Track
	current int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{current: -1}
}

// Replace discards all tracks and installs a fresh list with the pointer at
// startIndex. An empty list resets the queue.
func (q *Queue) Replace(tracks []track.Track, startIndex int) error {
	if len(tracks) == 0 {
		q.tracks = nil
		q.current = -1
		return nil
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		return ErrOutOfRange
	}
	q.tracks = make([]track.Track, len(tracks))
	copy(q.tracks, tracks)
	q.current = startIndex
	return nil
}

// Clear removes all tracks and resets the pointer.
func (q *Queue) Clear() {
	q.tracks = nil
	q.current = -1
}

// Append adds a track to the end of the queue without moving the pointer.
func (q *Queue) Append(t track.Track) {
	q.tracks = append(q.tracks, t)
	if q.current < 0 {
		q.current = 0
	}
}

// InsertAfterCurrent places a track immediately after the current one and
// returns its index. On an empty queue the track becomes the first entry.
func (q *Queue) InsertAfterCurrent(t track.Track) int {
	if len(q.tracks) == 0 {
		q.tracks = []track.Track{t}
		q.current = 0
		return 0
	}
	at := q.current + 1
	q.tracks = append(q.tracks, track.Track{})
	copy(q.tracks[at+1:], q.tracks[at:])
	q.tracks[at] = t
	return at
}

// Jump moves the pointer to index.
func (q *Queue) Jump(index int) error {
	if index < 0 || index >= len(q.tracks) {
		return ErrOutOfRange
	}
	q.current = index
	return nil
}

// Remove deletes the track at index, keeping the pointer on the same logical
// track where possible. Removing the current track leaves the pointer on its
// successor (clamped to the new tail).
func (q *Queue) Remove(index int) error {
	if index < 0 || index >= len(q.tracks) {
		return ErrOutOfRange
	}
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	switch {
	case len(q.tracks) == 0:
		q.current = -1
	case index < q.current:
		q.current--
	case q.current >= len(q.tracks):
		q.current = len(q.tracks) - 1
	}
	return nil
}

// Advance moves the pointer forward by one. Returns false at the end of the
// queue (the pointer does not move past the last track).
func (q *Queue) Advance() bool {
	if q.current < 0 || q.current >= len(q.tracks)-1 {
		return false
	}
	q.current++
	return true
}

// Retreat moves the pointer back by one. At the head it is a no-op and
// returns false.
func (q *Queue) Retreat() bool {
	if q.current <= 0 {
		return false
	}
	q.current--
	return true
}

// Current returns the track under the pointer.
func (q *Queue) Current() (track.Track, bool) {
	if q.current < 0 || q.current >= len(q.tracks) {
		return track.Track{}, false
	}
	return q.tracks[q.current], true
}

// CurrentIndex returns the pointer position (-1 when empty).
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []track.Track {
	out := make([]track.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}
