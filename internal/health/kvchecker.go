package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/kv"
)

// KVHealthChecker probes the key-value backend.
type KVHealthChecker struct {
	healthy      atomic.Int32
	backend      kv.KV
	log          zerolog.Logger
	probeTimeout time.Duration
}

func NewKVHealthChecker(backend kv.KV, log zerolog.Logger, probeTimeout time.Duration) *KVHealthChecker {
	c := &KVHealthChecker{backend: backend, log: log, probeTimeout: probeTimeout}
	c.healthy.Store(0)
	return c
}

func (c *KVHealthChecker) Name() string { return "kv" }

func (c *KVHealthChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

func (c *KVHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
		if err := c.backend.Ping(probeCtx); err != nil {
			if c.healthy.Swap(0) == 1 {
				c.log.Error().Err(err).Msg("kv backend unhealthy")
			}
			return
		}
		if c.healthy.Swap(1) == 0 {
			c.log.Info().Msg("kv backend healthy")
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
