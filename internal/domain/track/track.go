// Package track provides the catalog reference entities.
package track

// Track is an immutable reference to a playable item.
// All fields come from the catalog; nothing here is mutated after resolution.
type Track struct {
	ID              string  // Catalog item ID
	Name            string  // Track title
	Artist          string  // Primary artist name
	ImageURL        string  // Artwork URL (may be empty)
	DurationSeconds float64 // Track length reported by the catalog
	Overview        string  // Optional description (audiobooks mostly)
	StreamURL       string  // Direct stream URL handed to the player
}

// Same reports whether two tracks refer to the same catalog item.
// Identity is by ID only; position or metadata must never be used for
// "is this the current track" decisions.
func (t Track) Same(other Track) bool {
	return t.ID != "" && t.ID == other.ID
}

// Album is a catalog album reference.
type Album struct {
	ID       string
	Name     string
	Year     int
	ImageURL string
}

// Artist is a catalog artist reference.
type Artist struct {
	ID       string
	Name     string
	ImageURL string
}

// Library is a top-level catalog media folder.
type Library struct {
	ID   string
	Name string
}

// IndexByID returns the position of the track with the given ID, or -1.
func IndexByID(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
