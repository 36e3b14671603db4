package session

import (
	"context"

	"github.com/pkoenig/tonbox/internal/domain/track"
)

// Catalog resolves album identifiers to ordered track lists. The controller
// never mutates state before resolution has succeeded.
type Catalog interface {
	AlbumTracks(ctx context.Context, albumID string) ([]track.Track, error)
}
