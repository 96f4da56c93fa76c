package subsonic

import (
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
)

func mapTime(t *time.Time) domain.Timestamp {
	if t == nil {
		return domain.Timestamp{}
	}
	return domain.NewTimestamp(*t)
}

// MapIndexes converts index groups to domain artist indexes
func MapIndexes(index []IndexDTO) []domain.ArtistIndex {
	groups := make([]domain.ArtistIndex, 0, len(index))
	for _, group := range index {
		groups = append(groups, domain.ArtistIndex{
			Name:    group.Name,
			Artists: MapArtists(group.Artist),
		})
	}
	return groups
}

// MapArtists converts artist DTOs to domain artists
func MapArtists(artists []ArtistDTO) []domain.Artist {
	out := make([]domain.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, mapArtist(a))
	}
	return out
}

func mapArtist(a ArtistDTO) domain.Artist {
	return domain.Artist{
		ID:             a.ID,
		Name:           a.Name,
		CoverArt:       a.CoverArt,
		AlbumCount:     a.AlbumCount,
		ArtistImageURL: a.ArtistImageURL,
		Starred:        mapTime(a.Starred),
	}
}

// MapArtistWithAlbums converts a getArtist payload
func MapArtistWithAlbums(a ArtistDTO) *domain.ArtistWithAlbums {
	return &domain.ArtistWithAlbums{
		Artist: mapArtist(a),
		Albums: MapAlbums(a.Album),
	}
}

// MapArtistInfo converts a getArtistInfo2 payload
func MapArtistInfo(i ArtistInfoDTO) *domain.ArtistInfo {
	info := &domain.ArtistInfo{
		Biography:      i.Biography,
		MusicBrainzID:  i.MusicBrainzID,
		LastFmURL:      i.LastFmURL,
		SmallImageURL:  i.SmallImageURL,
		MediumImageURL: i.MediumImageURL,
		LargeImageURL:  i.LargeImageURL,
	}
	if len(i.SimilarArtist) > 0 {
		info.SimilarArtists = MapArtists(i.SimilarArtist)
	}
	return info
}

// MapAlbums converts album DTOs to domain albums
func MapAlbums(albums []AlbumDTO) []domain.Album {
	out := make([]domain.Album, 0, len(albums))
	for _, a := range albums {
		out = append(out, mapAlbum(a))
	}
	return out
}

func mapAlbum(a AlbumDTO) domain.Album {
	return domain.Album{
		ID:        a.ID,
		Name:      a.Name,
		Artist:    a.Artist,
		ArtistID:  a.ArtistID,
		CoverArt:  a.CoverArt,
		SongCount: a.SongCount,
		Duration:  domain.Seconds(a.Duration),
		PlayCount: a.PlayCount,
		Year:      a.Year,
		Genre:     a.Genre,
		Created:   mapTime(a.Created),
		Starred:   mapTime(a.Starred),
	}
}

// MapAlbumWithSongs converts a getAlbum payload
func MapAlbumWithSongs(a AlbumDTO) *domain.AlbumWithSongs {
	return &domain.AlbumWithSongs{
		Album: mapAlbum(a),
		Songs: MapSongs(a.Song),
	}
}

// MapSongs converts child DTOs to domain songs
func MapSongs(children []ChildDTO) []domain.Song {
	out := make([]domain.Song, 0, len(children))
	for _, c := range children {
		out = append(out, domain.Song{
			ID:          c.ID,
			Parent:      c.Parent,
			IsDir:       c.IsDir,
			Title:       c.Title,
			Album:       c.Album,
			AlbumID:     c.AlbumID,
			Artist:      c.Artist,
			ArtistID:    c.ArtistID,
			Track:       c.Track,
			DiscNumber:  c.DiscNumber,
			Year:        c.Year,
			Genre:       c.Genre,
			CoverArt:    c.CoverArt,
			Size:        c.Size,
			ContentType: c.ContentType,
			Suffix:      c.Suffix,
			Duration:    domain.Seconds(c.Duration),
			BitRate:     c.BitRate,
			Path:        c.Path,
			UserRating:  c.UserRating,
			Starred:     mapTime(c.Starred),
		})
	}
	return out
}

// MapDirectory converts a getMusicDirectory payload
func MapDirectory(d DirectoryDTO) *domain.Directory {
	return &domain.Directory{
		ID:       d.ID,
		Parent:   d.Parent,
		Name:     d.Name,
		Children: MapSongs(d.Child),
	}
}

// MapPlaylists converts playlist DTOs to domain playlists
func MapPlaylists(playlists []PlaylistDTO) []domain.Playlist {
	out := make([]domain.Playlist, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, domain.Playlist{
			ID:        p.ID,
			Name:      p.Name,
			Comment:   p.Comment,
			Owner:     p.Owner,
			Public:    p.Public,
			SongCount: p.SongCount,
			Duration:  domain.Seconds(p.Duration),
			CoverArt:  p.CoverArt,
			Created:   mapTime(p.Created),
			Changed:   mapTime(p.Changed),
		})
	}
	return out
}

// MapSearchResults converts a search3 payload
func MapSearchResults(s SearchDTO) *domain.SearchResults {
	return &domain.SearchResults{
		Artists: MapArtists(s.Artist),
		Albums:  MapAlbums(s.Album),
		Songs:   MapSongs(s.Song),
	}
}

// MapPlayQueue converts a getPlayQueue payload
func MapPlayQueue(q PlayQueueDTO) *domain.PlayQueue {
	return &domain.PlayQueue{
		Current:   q.Current,
		Position:  time.Duration(q.Position) * time.Millisecond,
		Username:  q.Username,
		ChangedBy: q.ChangedBy,
		Changed:   mapTime(q.Changed),
		Songs:     MapSongs(q.Entry),
	}
}
