package domain

import "time"

// Artist is an ID3 artist (or a folder-index artist when it comes from
// GetIndexes, in which case only ID and Name are set).
type Artist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CoverArt       string    `json:"coverArt,omitempty"`
	AlbumCount     int       `json:"albumCount,omitempty"`
	ArtistImageURL string    `json:"artistImageUrl,omitempty"`
	Starred        Timestamp `json:"starred,omitzero"`
}

func (a Artist) GetID() string { return a.ID }

// CoverArtCandidates returns the server cover-art ids to try, best first.
func (a Artist) CoverArtCandidates() []string {
	return nonEmpty(a.CoverArt)
}

// ArtistIndex is one letter group of the artist index.
type ArtistIndex struct {
	Name    string   `json:"name"`
	Artists []Artist `json:"artist,omitempty"`
}

// ArtistWithAlbums is the artist detail view.
type ArtistWithAlbums struct {
	Artist
	Albums []Album `json:"album,omitempty"`
}

func (a ArtistWithAlbums) CoverArtCandidates() []string {
	ids := nonEmpty(a.CoverArt)
	if len(a.Albums) > 0 {
		ids = append(ids, nonEmpty(a.Albums[0].CoverArt)...)
	}
	return ids
}

// ArtistInfo holds the biography and external images for an artist.
type ArtistInfo struct {
	Biography      string   `json:"biography,omitempty"`
	MusicBrainzID  string   `json:"musicBrainzId,omitempty"`
	LastFmURL      string   `json:"lastFmUrl,omitempty"`
	SmallImageURL  string   `json:"smallImageUrl,omitempty"`
	MediumImageURL string   `json:"mediumImageUrl,omitempty"`
	LargeImageURL  string   `json:"largeImageUrl,omitempty"`
	SimilarArtists []Artist `json:"similarArtist,omitempty"`
}

// IsEmpty reports whether the server returned nothing useful.
func (i ArtistInfo) IsEmpty() bool {
	return i.Biography == "" && i.MusicBrainzID == "" && i.LastFmURL == "" &&
		i.SmallImageURL == "" && i.MediumImageURL == "" && i.LargeImageURL == "" &&
		len(i.SimilarArtists) == 0
}

// Album is an ID3 album as it appears in album lists and artist details.
type Album struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Artist    string    `json:"artist,omitempty"`
	ArtistID  string    `json:"artistId,omitempty"`
	CoverArt  string    `json:"coverArt,omitempty"`
	SongCount int       `json:"songCount,omitempty"`
	Duration  Seconds   `json:"duration,omitempty"`
	PlayCount int       `json:"playCount,omitempty"`
	Year      int       `json:"year,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Created   Timestamp `json:"created,omitzero"`
	Starred   Timestamp `json:"starred,omitzero"`
}

// AlbumWithSongs is the album detail view.
type AlbumWithSongs struct {
	Album
	Songs []Song `json:"song,omitempty"`
}

// Song is a track, or a sub-directory entry when IsDir is set (music
// directories mix both).
type Song struct {
	ID          string    `json:"id"`
	Parent      string    `json:"parent,omitempty"`
	IsDir       bool      `json:"isDir,omitempty"`
	Title       string    `json:"title"`
	Album       string    `json:"album,omitempty"`
	AlbumID     string    `json:"albumId,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	ArtistID    string    `json:"artistId,omitempty"`
	Track       int       `json:"track,omitempty"`
	DiscNumber  int       `json:"discNumber,omitempty"`
	Year        int       `json:"year,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	CoverArt    string    `json:"coverArt,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Suffix      string    `json:"suffix,omitempty"`
	Duration    Seconds   `json:"duration,omitempty"`
	BitRate     int       `json:"bitRate,omitempty"`
	Path        string    `json:"path,omitempty"`
	UserRating  int       `json:"userRating,omitempty"`
	Starred     Timestamp `json:"starred,omitzero"`
}

// Directory is a folder-based listing.
type Directory struct {
	ID       string `json:"id"`
	Parent   string `json:"parent,omitempty"`
	Name     string `json:"name,omitempty"`
	Children []Song `json:"child,omitempty"`
}

func (d Directory) GetID() string { return d.ID }

func (d Directory) CoverArtCandidates() []string {
	if len(d.Children) == 0 {
		return nil
	}
	return nonEmpty(d.Children[0].CoverArt)
}

// Playlist is a user playlist summary.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	Public    bool      `json:"public,omitempty"`
	SongCount int       `json:"songCount,omitempty"`
	Duration  Seconds   `json:"duration,omitempty"`
	CoverArt  string    `json:"coverArt,omitempty"`
	Created   Timestamp `json:"created,omitzero"`
	Changed   Timestamp `json:"changed,omitzero"`
}

// PlayQueue is the server-side saved play queue.
type PlayQueue struct {
	Current   string        `json:"current,omitempty"`
	Position  time.Duration `json:"position,omitempty"`
	Username  string        `json:"username,omitempty"`
	ChangedBy string        `json:"changedBy,omitempty"`
	Changed   Timestamp     `json:"changed,omitzero"`
	Songs     []Song        `json:"entry,omitempty"`
}

// SearchResults is what the server returns for a search query.
type SearchResults struct {
	Artists []Artist
	Albums  []Album
	Songs   []Song
}

// AlbumListOptions are the optional filters of an album list request.
type AlbumListOptions struct {
	FromYear      int
	ToYear        int
	Genre         string
	MusicFolderID string
}

func nonEmpty(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
