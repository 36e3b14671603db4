// Package player creates the configured player backend.
package player

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/infra/config"
	"github.com/pkoenig/tonbox/internal/infra/mpv"
)

// New creates a player from configuration. Settings are backend-specific
// and decoded by the backend itself.
func New(cfg config.PlayerConfig) (session.Player, error) {
	zlog.Debug().Msgf("creating player: type=%s settings=%+v", cfg.Type, cfg.Settings)
	switch cfg.Type {
	case "mpv":
		p, err := mpv.New(cfg.Settings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create mpv player")
		}
		return p, nil
	case "null":
		return NewNull(), nil
	default:
		return nil, errors.Newf("unsupported player type: %s", cfg.Type)
	}
}
