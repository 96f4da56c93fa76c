package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/library"
	"github.com/mmcdole/sonicache/internal/search"
)

// Flags are built per command; a cli.Flag holds its parsed value.
func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "force",
		Aliases: []string{"f"},
		Usage:   "Ignore cached data and fetch from the server",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print JSON instead of text",
	}
}

func configureCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "configure",
		Usage: "Set the server connection and verify it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Usage: "Server URL, e.g. https://music.example.com", Required: true},
			&cli.StringFlag{Name: "username", Usage: "Subsonic user name", Required: true},
			&cli.StringFlag{Name: "name", Usage: "Display name of the server"},
			&cli.StringFlag{Name: "local-address", Usage: "Server URL to use on the local network"},
			&cli.StringFlag{Name: "local-ssid", Usage: "SSID of the local network"},
			&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS certificate verification"},
		},
		Action: r.Configure,
	}
}

// Configure stores the server settings after checking the credentials.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	cfg.Server = adapter.ServerConfig{
		Name:                cmd.String("name"),
		Address:             cmd.String("address"),
		LocalNetworkAddress: cmd.String("local-address"),
		LocalNetworkSSID:    cmd.String("local-ssid"),
		Username:            cmd.String("username"),
		DisableCertVerify:   cmd.Bool("insecure"),
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	if err := m.Server().Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Server.Address, err)
	}

	if err := adapter.SaveConfig(cfg, cmd.String("config")); err != nil {
		return err
	}
	return r.writePlain("✓ Connected to %s as %s", cfg.Server.Address, cfg.Server.Username)
}

func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artists",
		Usage: "List artists",
		Flags: []cli.Flag{
			forceFlag(),
			jsonFlag(),
			&cli.BoolFlag{Name: "folders", Usage: "Use the folder index instead of ID3 tags"},
		},
		Action: r.Artists,
	}
}

// Artists prints the artist index.
func (r *Runner) Artists(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	get := m.GetArtists
	if cmd.Bool("folders") {
		get = m.GetIndexes
	}
	artists, err := await(get(library.WithForce(cmd.Bool("force"))))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(artists)
	}
	for _, a := range artists {
		if err := r.writePlain("%s\t%s\t%d albums", a.ID, a.Name, a.AlbumCount); err != nil {
			return err
		}
	}
	return nil
}

func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "List albums",
		Flags: []cli.Flag{
			forceFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:  "type",
				Usage: "List type: alphabeticalByName, newest, recent, frequent, random, starred, byYear, byGenre",
				Value: "alphabeticalByName",
			},
			&cli.IntFlag{Name: "from-year", Usage: "First year (byYear)"},
			&cli.IntFlag{Name: "to-year", Usage: "Last year (byYear)"},
			&cli.StringFlag{Name: "genre", Usage: "Genre (byGenre)"},
		},
		Action: r.Albums,
	}
}

// Albums prints a complete album list.
func (r *Runner) Albums(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	params := domain.AlbumListOptions{
		FromYear: cmd.Int("from-year"),
		ToYear:   cmd.Int("to-year"),
		Genre:    cmd.String("genre"),
	}
	albums, err := await(m.GetAlbumList(cmd.String("type"), params,
		library.WithForce(cmd.Bool("force")),
		library.WithProgress(func(loaded, pages int) {
			r.logger.Info("album list progress", "loaded", loaded, "pages", pages)
		}),
	))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums)
	}
	for _, a := range albums {
		if err := r.writePlain("%s\t%s\t%s\t%d", a.ID, a.Name, a.Artist, a.Year); err != nil {
			return err
		}
	}
	return nil
}

func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Show an album and its songs",
		ArgsUsage: "<album-id>",
		Flags:     []cli.Flag{forceFlag(), jsonFlag()},
		Action:    r.Album,
	}
}

// Album prints the track list of one album.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("album ID is required")
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	album, err := await(m.GetAlbum(id, library.WithForce(cmd.Bool("force"))))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(album)
	}
	if err := r.writePlain("%s - %s (%d)", album.Artist, album.Name, album.Year); err != nil {
		return err
	}
	for _, s := range album.Songs {
		if err := r.writePlain("%2d. %s\t%s", s.Track, s.Title, s.Duration.Duration()); err != nil {
			return err
		}
	}
	return nil
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search cached data, then the server",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "highlight",
				Usage: "Mark matched characters in bold (default: when printing to a terminal)",
			},
		},
		Action: r.Search,
	}
}

// Search prints the ranked results of each search phase.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	mark := func(text string) string { return text }
	if cmd.Bool("highlight") || (!cmd.IsSet("highlight") && r.outputIsTerminal()) {
		mark = func(text string) string { return highlight(query, text) }
	}

	_, err = await(m.Search(query, func(res *search.SearchResult, final bool) {
		phase := "cached"
		if final {
			phase = "server"
		}
		r.writePlain("== %s results", phase)
		for _, a := range res.Artists() {
			r.writePlain("artist\t%s\t%s", a.ID, mark(a.Name))
		}
		for _, a := range res.Albums() {
			r.writePlain("album\t%s\t%s", a.ID, mark(a.Artist+" - "+a.Name))
		}
		for _, s := range res.Songs() {
			r.writePlain("song\t%s\t%s", s.ID, mark(s.Artist+" - "+s.Title))
		}
		for _, p := range res.Playlists() {
			r.writePlain("playlist\t%s\t%s", p.ID, mark(p.Name))
		}
	}))
	return err
}

const (
	boldOn  = "\x1b[1m"
	boldOff = "\x1b[0m"
)

// highlight wraps each run of characters of text matched by query in bold.
func highlight(query, text string) string {
	indexes := search.Highlights(query, text)
	if len(indexes) == 0 {
		return text
	}
	matched := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		matched[i] = true
	}

	var b strings.Builder
	on := false
	for i, c := range text {
		if matched[i] != on {
			if on {
				b.WriteString(boldOff)
			} else {
				b.WriteString(boldOn)
			}
			on = !on
		}
		b.WriteRune(c)
	}
	if on {
		b.WriteString(boldOff)
	}
	return b.String()
}

func artworkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artwork",
		Usage:     "Download the picture of an artist and print its path",
		ArgsUsage: "<artist-id>",
		Flags:     []cli.Flag{forceFlag()},
		Action:    r.Artwork,
	}
}

// Artwork resolves and prints the local artwork path of an artist.
func (r *Runner) Artwork(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("artist ID is required")
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	artist, err := await(m.GetArtist(id))
	if err != nil {
		return err
	}
	path, err := await(m.GetArtistArtwork(artist, library.WithForce(cmd.Bool("force"))))
	if err != nil {
		return err
	}
	if path == "" {
		return r.writePlain("no artwork available for %s", artist.Name)
	}
	return r.writePlain("%s", path)
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Warm the cache with artists, playlists, albums and cover art",
		Flags: []cli.Flag{
			forceFlag(),
			&cli.BoolFlag{Name: "covers", Usage: "Also download album cover art", Value: true},
		},
		Action: r.Sync,
	}
}

// Sync fetches the library overview into the cache.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	force := library.WithForce(cmd.Bool("force"))
	started := time.Now()

	artists, err := await(m.GetArtists(force))
	if err != nil {
		return fmt.Errorf("failed to sync artists: %w", err)
	}
	playlists, err := await(m.GetPlaylists(force))
	if err != nil {
		return fmt.Errorf("failed to sync playlists: %w", err)
	}
	albums, err := await(m.GetAlbumList("alphabeticalByName", domain.AlbumListOptions{}, force))
	if err != nil {
		return fmt.Errorf("failed to sync albums: %w", err)
	}

	covers, failed := 0, 0
	if cmd.Bool("covers") {
		covers, failed = r.syncCovers(albums)
	}

	downloads := m.Downloads()
	return r.writePlain("✓ %d artists, %d playlists, %d albums, %d covers (%d failed, %d downloads, %d joined) in %s",
		len(artists), len(playlists), len(albums), covers, failed,
		downloads.Fetches(), downloads.Coincidences(), time.Since(started).Round(time.Millisecond))
}

func (r *Runner) syncCovers(albums []domain.Album) (int, int) {
	var pending []func() error
	for _, a := range albums {
		res, submitErr := r.manager.GetCoverArtFilename(a.CoverArt)
		pending = append(pending, func() error {
			_, err := await(res, submitErr)
			return err
		})
	}

	covers, failed := 0, 0
	for _, wait := range pending {
		if err := wait(); err != nil {
			r.logger.Warn("failed to download cover art", "error", err)
			failed++
			continue
		}
		covers++
	}
	return covers, failed
}

func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect or update the saved play queue",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the saved play queue",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.QueueShow,
			},
			{
				Name:      "save",
				Usage:     "Replace the saved play queue",
				ArgsUsage: "<song-id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Usage: "ID of the current song"},
					&cli.DurationFlag{Name: "position", Usage: "Position within the current song"},
				},
				Action: r.QueueSave,
			},
			{
				Name:      "scrobble",
				Usage:     "Report a song as played",
				ArgsUsage: "<song-id>",
				Action:    r.Scrobble,
			},
		},
	}
}

// QueueShow prints the server-side play queue.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	queue, err := await(m.GetPlayQueue())
	if err != nil {
		return err
	}
	if queue == nil {
		return r.writePlain("no saved play queue")
	}

	if cmd.Bool("json") {
		return r.writeJSON(queue)
	}
	for _, s := range queue.Songs {
		marker := " "
		if s.ID == queue.Current {
			marker = ">"
		}
		if err := r.writePlain("%s %s\t%s - %s", marker, s.ID, s.Artist, s.Title); err != nil {
			return err
		}
	}
	return nil
}

// QueueSave stores the given songs as the play queue. The request completes
// before the command exits.
func (r *Runner) QueueSave(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("at least one song ID is required")
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	m.SavePlayQueue(ids, cmd.String("current"), cmd.Duration("position"))
	return nil
}

// Scrobble reports a played song.
func (r *Runner) Scrobble(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("song ID is required")
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	m.Scrobble(id)
	return nil
}

func clearCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete cached data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cover-art", Usage: "Only delete the images of this cover art ID"},
		},
		Action: r.Clear,
	}
}

// Clear removes the whole cache, or the images of one cover art id.
func (r *Runner) Clear(ctx context.Context, cmd *cli.Command) error {
	if id := cmd.String("cover-art"); id != "" {
		m, err := r.open(ctx)
		if err != nil {
			return err
		}
		return m.DeleteCachedCoverArt(id)
	}
	return r.config.ClearCache()
}
