package library

import (
	"context"
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/result"
)

// GetPlayQueue fetches the saved play queue. It is never cached.
func (s *Service) GetPlayQueue(opts ...Option) (*result.Result[*domain.PlayQueue], error) {
	o := collect(opts)
	return result.FromServer(s.pool, s.server.GetPlayQueue,
		result.BeforeStart[*domain.PlayQueue](o.beforeDownload))
}

// SavePlayQueue stores the play queue on the server in the background.
// Failures are logged and otherwise ignored.
func (s *Service) SavePlayQueue(songIDs []string, current string, position time.Duration) {
	ids := append([]string(nil), songIDs...)
	s.background("save play queue", func(ctx context.Context) error {
		return s.server.SavePlayQueue(ctx, ids, current, position)
	})
}

// Scrobble reports a played song in the background.
func (s *Service) Scrobble(songID string) {
	s.background("scrobble", func(ctx context.Context) error {
		return s.server.Scrobble(ctx, songID)
	})
}

func (s *Service) background(op string, fn func(ctx context.Context) error) {
	err := s.pool.Go(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.Warn("background request failed", "op", op, "error", err)
		}
	})
	if err != nil {
		s.logger.Debug("background request dropped", "op", op, "error", err)
	}
}
