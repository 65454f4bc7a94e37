package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"cineflow/internal/config"
	"cineflow/internal/logging"
	"cineflow/internal/pipeline"
	"cineflow/internal/rawstore"
	"cineflow/internal/runner"
	"cineflow/internal/warehouse"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to config file")
	only := flag.String("only", "", "run a single stage (ingest, validate, load, or admin)")
	skipValidate := flag.Bool("skip-validate", false, "skip data quality checks in a full run")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := logging.New(os.Stderr, level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		exitCode = 1
		return
	}

	ctx := context.Background()

	store, err := rawstore.ConnectMongo(ctx, cfg.Stores.Mongo, cfg.Stores.MongoDB)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to raw store")
		exitCode = 1
		return
	}
	defer store.Close(ctx)

	wh, err := warehouse.Connect(ctx, cfg.Stores.WarehouseDriver, cfg.Stores.Postgres, cfg.Stores.MySQL)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to warehouse")
		exitCode = 1
		return
	}
	defer wh.Close(ctx)

	ingest := &pipeline.Ingest{Store: store, SamplesDir: cfg.Data.SamplesDir, Log: log}
	validate := &pipeline.Validate{Store: store, Log: log}
	load := &pipeline.Load{Store: store, Warehouse: wh, Log: log}
	admin := &pipeline.Admin{Warehouse: wh, Log: log}

	r := &runner.Runner{
		Stages: []runner.Stage{
			{Name: "ingest", Label: "Ingest (Mongo raw)", Run: ingest.Run},
			{Name: "validate", Label: "DQ checks", Run: validate.Run},
			{Name: "load", Label: fmt.Sprintf("Load %s %s", runner.Arrow(), cfg.Stores.WarehouseDriver), Run: load.Run},
			{Name: "admin", Label: "Warehouse admin (indexes & MV)", Run: admin.Run},
		},
		Out: os.Stdout,
		Err: os.Stderr,
		Log: log,
	}

	if err := r.Run(ctx, runner.Options{Only: *only, SkipValidate: *skipValidate}); err != nil {
		exitCode = 1
		return
	}
}
