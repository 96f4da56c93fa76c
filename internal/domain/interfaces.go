package domain

// ArtworkSubject is anything artist artwork can be resolved for:
// Artist, ArtistWithAlbums, or a music Directory.
type ArtworkSubject interface {
	// GetID returns the id used to look up artist info
	GetID() string

	// CoverArtCandidates returns server cover-art ids in priority order
	CoverArtCandidates() []string
}
