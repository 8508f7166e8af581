package fx

import (
	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/config"
	"chess-explorer/internal/database"
	"chess-explorer/internal/logger"
	"chess-explorer/internal/metrics"
	"chess-explorer/internal/repository"
	"chess-explorer/internal/server"
	"chess-explorer/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideFetcher exposes the chess.com client as the cache's gateway.
func ProvideFetcher(client *api.ChessComClient) chesscom.Fetcher {
	return client
}

func ProvideCache(gateway chesscom.Fetcher, cfg *config.Config, m metrics.Provider, logger zerolog.Logger) *chesscom.Cache {
	return chesscom.New(gateway, logger,
		chesscom.WithTTL(cfg.CacheTTL),
		chesscom.WithOnlineTTL(cfg.OnlineTTL),
		chesscom.WithMetrics(m),
	)
}

func applyLogLevel(cfg *config.Config) error {
	return logger.SetLevel(cfg.LogLevel)
}

// Core wires configuration, logging, metrics and the entity cache.
var Core = fx.Options(
	logger.Module,
	config.Module,
	fx.Invoke(applyLogLevel),
	// metrics
	fx.Provide(ProvideRegistry),
	fx.Provide(metrics.New),
	// api client
	fx.Provide(api.NewChessComClient),
	fx.Provide(ProvideFetcher),
	fx.Provide(ProvideCache),
)

var Module = fx.Options(
	Core,
	// svc
	fx.Provide(service.NewRatingService),
	// server
	fx.Provide(server.NewExplorerServer),
)

var InviteModule = fx.Options(
	Core,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewInviteRepository),
	// svc
	fx.Provide(service.NewInviteService),
)
