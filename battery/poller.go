package battery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrNotRegistered = errors.New("battery: no miniport registered")

// Poll is one status poll outcome.
type Poll struct {
	Tag    Tag
	Status Status
	Err    error
}

// Poller is a Registrar that polls the registered miniport's status on a
// fixed interval. Failed polls are reported and retried on the next tick.
type Poller struct {
	mx       sync.Mutex
	miniport Miniport
	interval time.Duration
	log      *slog.Logger
}

func NewPoller(interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{interval: interval, log: logger}
}

var _ Registrar = &Poller{}

func (p *Poller) Register(ctx context.Context, m Miniport) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.miniport = m
	return nil
}

// PollOnce queries the current tag and the status for it.
func (p *Poller) PollOnce(ctx context.Context) Poll {
	p.mx.Lock()
	m := p.miniport
	p.mx.Unlock()
	if m == nil {
		return Poll{Err: ErrNotRegistered}
	}
	tag, err := m.QueryTag(ctx)
	if err != nil {
		return Poll{Err: err}
	}
	status, err := m.QueryStatus(ctx, tag)
	return Poll{Tag: tag, Status: status, Err: err}
}

// Run polls until ctx is done, passing every outcome to handle.
func (p *Poller) Run(ctx context.Context, handle func(Poll)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		res := p.PollOnce(ctx)
		if res.Err != nil {
			p.log.WarnContext(ctx, "battery status poll failed", "error", res.Err)
		}
		handle(res)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
