// Package factory builds the configured kv backend and broker publisher.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/config"
	"github.com/listsync/listsync/server/internal/kv"
	"github.com/listsync/listsync/server/internal/kv/memkv"
	"github.com/listsync/listsync/server/internal/kv/postgreskv"
	"github.com/listsync/listsync/server/internal/kv/sqlitekv"
	"github.com/listsync/listsync/server/internal/notify"
	"github.com/listsync/listsync/server/internal/notify/bus"
	"github.com/listsync/listsync/server/internal/notify/httpbridge"
)

// NewKV returns the kv.KV selected by config.
func NewKV(cfg *config.Config, log zerolog.Logger) (kv.KV, error) {
	switch cfg.KVDriver {
	case "memory":
		log.Warn().Msg("memory kv driver selected; data will not survive restarts")
		return memkv.New(), nil
	case "sqlite":
		return sqlitekv.Open(cfg.SQLitePath)
	case "postgres":
		return postgreskv.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown KV_DRIVER: %s", cfg.KVDriver)
	}
}

// NewPublisher returns the broker publisher: an HTTP bridge when one is
// configured, otherwise the in-process bus.
func NewPublisher(cfg *config.Config, log zerolog.Logger) notify.Publisher {
	if cfg.BrokerBridgeURL != "" {
		log.Info().Str("bridge", cfg.BrokerBridgeURL).Msg("publishing change events via broker bridge")
		return httpbridge.New(cfg.BrokerBridgeURL)
	}
	return bus.New(cfg.BusBuffer)
}
