package subsonic

import "time"

// envelope is the outer object of every JSON response
type envelope struct {
	Response Response `json:"subsonic-response"`
}

// Response carries the status plus whichever payload the endpoint returns
type Response struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Type          string         `json:"type,omitempty"`
	ServerVersion string         `json:"serverVersion,omitempty"`
	Error         *ErrorDTO      `json:"error,omitempty"`
	Artists       *IndexesDTO    `json:"artists,omitempty"`
	Indexes       *IndexesDTO    `json:"indexes,omitempty"`
	Artist        *ArtistDTO     `json:"artist,omitempty"`
	ArtistInfo2   *ArtistInfoDTO `json:"artistInfo2,omitempty"`
	Directory     *DirectoryDTO  `json:"directory,omitempty"`
	Album         *AlbumDTO      `json:"album,omitempty"`
	AlbumList2    *AlbumListDTO  `json:"albumList2,omitempty"`
	Playlists     *PlaylistsDTO  `json:"playlists,omitempty"`
	SearchResult3 *SearchDTO     `json:"searchResult3,omitempty"`
	PlayQueue     *PlayQueueDTO  `json:"playQueue,omitempty"`
}

// ErrorDTO is the error object of a failed response
type ErrorDTO struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IndexesDTO is returned by getArtists (ID3) and getIndexes (folders)
type IndexesDTO struct {
	IgnoredArticles string     `json:"ignoredArticles,omitempty"`
	LastModified    int64      `json:"lastModified,omitempty"`
	Index           []IndexDTO `json:"index,omitempty"`
}

// IndexDTO is one letter group
type IndexDTO struct {
	Name   string      `json:"name"`
	Artist []ArtistDTO `json:"artist,omitempty"`
}

// ArtistDTO is an artist, with albums when returned by getArtist
type ArtistDTO struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	CoverArt       string     `json:"coverArt,omitempty"`
	AlbumCount     int        `json:"albumCount,omitempty"`
	ArtistImageURL string     `json:"artistImageUrl,omitempty"`
	Starred        *time.Time `json:"starred,omitempty"`
	Album          []AlbumDTO `json:"album,omitempty"`
}

// ArtistInfoDTO is the getArtistInfo2 payload
type ArtistInfoDTO struct {
	Biography      string      `json:"biography,omitempty"`
	MusicBrainzID  string      `json:"musicBrainzId,omitempty"`
	LastFmURL      string      `json:"lastFmUrl,omitempty"`
	SmallImageURL  string      `json:"smallImageUrl,omitempty"`
	MediumImageURL string      `json:"mediumImageUrl,omitempty"`
	LargeImageURL  string      `json:"largeImageUrl,omitempty"`
	SimilarArtist  []ArtistDTO `json:"similarArtist,omitempty"`
}

// DirectoryDTO is a music folder listing
type DirectoryDTO struct {
	ID     string     `json:"id"`
	Parent string     `json:"parent,omitempty"`
	Name   string     `json:"name"`
	Child  []ChildDTO `json:"child,omitempty"`
}

// AlbumDTO is an ID3 album, with songs when returned by getAlbum
type AlbumDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Artist    string     `json:"artist,omitempty"`
	ArtistID  string     `json:"artistId,omitempty"`
	CoverArt  string     `json:"coverArt,omitempty"`
	SongCount int        `json:"songCount,omitempty"`
	Duration  int        `json:"duration,omitempty"`
	PlayCount int        `json:"playCount,omitempty"`
	Year      int        `json:"year,omitempty"`
	Genre     string     `json:"genre,omitempty"`
	Created   *time.Time `json:"created,omitempty"`
	Starred   *time.Time `json:"starred,omitempty"`
	Song      []ChildDTO `json:"song,omitempty"`
}

// AlbumListDTO is the getAlbumList2 payload
type AlbumListDTO struct {
	Album []AlbumDTO `json:"album,omitempty"`
}

// ChildDTO is a song or a sub-directory
type ChildDTO struct {
	ID          string     `json:"id"`
	Parent      string     `json:"parent,omitempty"`
	IsDir       bool       `json:"isDir"`
	Title       string     `json:"title"`
	Album       string     `json:"album,omitempty"`
	AlbumID     string     `json:"albumId,omitempty"`
	Artist      string     `json:"artist,omitempty"`
	ArtistID    string     `json:"artistId,omitempty"`
	Track       int        `json:"track,omitempty"`
	DiscNumber  int        `json:"discNumber,omitempty"`
	Year        int        `json:"year,omitempty"`
	Genre       string     `json:"genre,omitempty"`
	CoverArt    string     `json:"coverArt,omitempty"`
	Size        int64      `json:"size,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Suffix      string     `json:"suffix,omitempty"`
	Duration    int        `json:"duration,omitempty"`
	BitRate     int        `json:"bitRate,omitempty"`
	Path        string     `json:"path,omitempty"`
	UserRating  int        `json:"userRating,omitempty"`
	Starred     *time.Time `json:"starred,omitempty"`
}

// PlaylistsDTO is the getPlaylists payload
type PlaylistsDTO struct {
	Playlist []PlaylistDTO `json:"playlist,omitempty"`
}

// PlaylistDTO is a playlist summary
type PlaylistDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Comment   string     `json:"comment,omitempty"`
	Owner     string     `json:"owner,omitempty"`
	Public    bool       `json:"public,omitempty"`
	SongCount int        `json:"songCount,omitempty"`
	Duration  int        `json:"duration,omitempty"`
	CoverArt  string     `json:"coverArt,omitempty"`
	Created   *time.Time `json:"created,omitempty"`
	Changed   *time.Time `json:"changed,omitempty"`
}

// SearchDTO is the search3 payload
type SearchDTO struct {
	Artist []ArtistDTO `json:"artist,omitempty"`
	Album  []AlbumDTO  `json:"album,omitempty"`
	Song   []ChildDTO  `json:"song,omitempty"`
}

// PlayQueueDTO is the getPlayQueue payload. Position is in milliseconds.
type PlayQueueDTO struct {
	Current   string     `json:"current,omitempty"`
	Position  int64      `json:"position,omitempty"`
	Username  string     `json:"username,omitempty"`
	Changed   *time.Time `json:"changed,omitempty"`
	ChangedBy string     `json:"changedBy,omitempty"`
	Entry     []ChildDTO `json:"entry,omitempty"`
}
