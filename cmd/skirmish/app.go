package main

import (
	"os"
	"path/filepath"

	"github.com/ericogr/skirmish/internal/config"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/storage"
	"github.com/ericogr/skirmish/internal/timeline"
)

func loadConfigOrExit(env config.Env) *config.LoadedConfig {
	cfg, err := config.LoadConfig(env.ConfigPath)
	if err != nil {
		logging.Fatal("Missing or invalid skirmish configuration", err, logging.Fields{
			"config_path": env.ConfigPath,
			"hint":        "create a skirmish_config.json with species_list, move_list and optional item_list, timing_profiles, server and battle sections",
		})
	}
	cfg.ApplyEnv(env)
	return cfg
}

func createRepositoryOrExit(dbPath string, cfg *config.LoadedConfig) storage.Repository {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Fatal("Failed to create database directory", err, logging.Fields{"db_path": dbPath})
		}
	}
	db, err := storage.OpenAndMigrate(dbPath, storage.Seed{
		Species: cfg.Species,
		Moves:   cfg.Moves,
		Items:   cfg.Items,
	})
	if err != nil {
		logging.Fatal("Failed to initialize database", err, logging.Fields{"db_path": dbPath})
	}
	return storage.NewSQLiteRepository(db)
}

func profileRegistryOrExit(cfg *config.LoadedConfig) *timeline.Registry {
	reg, err := timeline.NewRegistry(cfg.Profiles...)
	if err != nil {
		logging.Fatal("Invalid timing profile", err, nil)
	}
	return reg
}
