package board

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval is used when no interval is configured
const DefaultRefreshInterval = 30 * time.Second

// Loader is what the poller refreshes
type Loader interface {
	Load(ctx context.Context) error
}

// Poller reloads the board on a fixed interval until its context ends
type Poller struct {
	loader   Loader
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller returns a poller; a non-positive interval means the default
func NewPoller(loader Loader, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{loader: loader, interval: interval, logger: logger}
}

// Interval returns the effective refresh period
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run blocks until ctx is done. onLoad, when set, is called after every
// tick with the result of the load; superseded loads are not reported.
func (p *Poller) Run(ctx context.Context, onLoad func(error)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.loader.Load(ctx)
			if errors.Is(err, ErrStale) || ctx.Err() != nil {
				continue
			}
			if err != nil {
				p.logger.Debug("periodic refresh failed", zap.Error(err))
			}
			if onLoad != nil {
				onLoad(err)
			}
		}
	}
}
