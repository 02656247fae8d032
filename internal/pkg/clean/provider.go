package clean

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
)

// ChatReleaser frees chats left waiting for a job that will never finish
type ChatReleaser interface {
	ReleaseChats(ctx context.Context) (int64, error)
}

// StaleProvider releases stuck chats before listing stale jobs
type StaleProvider struct {
	Jobs  IDsProvider
	Chats ChatReleaser
}

// GetExpired returns IDs of stale jobs, chat release failures are only logged
func (p *StaleProvider) GetExpired(ctx context.Context) ([]string, error) {
	n, err := p.Chats.ReleaseChats(ctx)
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't release chats")
	} else if n > 0 {
		goapp.Log.Info().Int64("chats", n).Msg("released")
	}
	return p.Jobs.GetExpired(ctx)
}
