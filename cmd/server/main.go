package main

import (
	"context"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/cache"
	"github.com/veloradating/matchsvc/internal/config"
	"github.com/veloradating/matchsvc/internal/db"
	"github.com/veloradating/matchsvc/internal/logger"
	"github.com/veloradating/matchsvc/internal/server"
	"github.com/veloradating/matchsvc/internal/service/integrity"
	"github.com/veloradating/matchsvc/internal/service/match"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	registrars := []server.Registrar{
		match.NewRegistrar(appCtx),
		integrity.NewRegistrar(appCtx),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
