package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ericogr/skirmish/internal/api"
	"github.com/ericogr/skirmish/internal/config"
	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/service"
	"github.com/ericogr/skirmish/internal/telemetry"
	"github.com/ericogr/skirmish/internal/version"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err == nil {
		logging.Debug("loaded .env", nil)
	}
	env, err := config.LoadEnv()
	if err != nil {
		logging.Fatal("Invalid environment", err, nil)
	}
	if env.Debug {
		logging.SetDebug(true)
	}
	logging.Info("Starting skirmish", logging.Fields{constants.LogFieldVersion: version.String()})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Settings{
		Endpoint: env.OTelEndpoint,
		Enabled:  env.OTelEnabled,
	})
	if err != nil {
		logging.Fatal("Failed to set up tracing", err, logging.Fields{"endpoint": env.OTelEndpoint})
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logging.Error("Failed to flush traces", err, nil)
		}
	}()

	cfg := loadConfigOrExit(env)
	repo := createRepositoryOrExit(env.DBPath, cfg)

	manager, err := service.NewManager(service.Options{
		Ref:       refdata.NewCached(repo),
		Profiles:  profileRegistryOrExit(cfg),
		Defaults:  cfg.Battle,
		Learnsets: cfg.Learnsets,
		Recorder:  repo,
	})
	if err != nil {
		logging.Fatal("Failed to create battle manager", err, nil)
	}

	tokens, err := api.NewTokenIssuer(env.TokenSecret, constants.DefaultTokenTTL)
	if err != nil {
		logging.Fatal("Failed to create token issuer", err, nil)
	}
	router := api.NewRouter(api.NewBattleHandler(manager, repo, tokens))

	addr := cfg.ServerAddress
	if addr == "" {
		addr = constants.DefaultAddr
	}
	if err := serve(ctx, addr, router, manager); err != nil {
		logging.Fatal("Server stopped with an error", err, nil)
	}
}
