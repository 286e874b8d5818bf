// Daily index refresh: load today's persisted menu documents into the index
// store and retire yesterday's scope. Intended to run from cron once per day
// after midnight local time.
//
// Usage:
//
//	go build -o bin/menu-daily ./cmd/menu-daily/
//	bin/menu-daily [-config config/menupipe.yaml] [-date 2025-08-06]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menupipe/internal/config"
	"menupipe/internal/domain"
	"menupipe/internal/index"
	"menupipe/internal/metrics"
	"menupipe/internal/pipeline"
	"menupipe/internal/store"
	"menupipe/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file path (default config/menupipe.yaml or $MENUPIPE_CONFIG)")
	dateStr := flag.String("date", "", "run as if today were this date (YYYY-MM-DD, default now)")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		path = "config/menupipe.yaml"
		if p := os.Getenv("MENUPIPE_CONFIG"); p != "" {
			path = p
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Pipeline.Timezone, err)
	}
	ref := time.Now().In(loc)
	if *dateStr != "" {
		d, err := time.ParseInLocation(domain.DateLayout, *dateStr, loc)
		if err != nil {
			log.Fatalf("invalid -date %q: %v", *dateStr, err)
		}
		ref = d
	}

	manifest, err := store.OpenManifest(cfg.ManifestDBPath())
	if err != nil {
		log.Fatalf("failed to open manifest: %v", err)
	}
	defer manifest.Close()

	docs, err := store.NewFSStore(cfg.Storage.DataDir, manifest)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}

	embedder, err := index.NewOpenAIEmbedder(index.EmbedderConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to build embedder: %v", err)
	}

	idx, err := index.NewQdrantStore(index.QdrantConfig{
		Host:          cfg.Index.Host,
		Port:          cfg.Index.Port,
		APIKey:        cfg.Index.APIKey,
		UseTLS:        cfg.Index.UseTLS,
		Collection:    cfg.Index.Collection,
		BatchSize:     cfg.Index.BatchSize,
		MaxConcurrent: cfg.Embedding.MaxConcurrent,
	}, embedder)
	if err != nil {
		log.Fatalf("failed to connect to index store: %v", err)
	}
	defer idx.Close()

	gateway := ""
	if cfg.Metrics.Enabled {
		gateway = cfg.Metrics.Gateway
	}
	m := metrics.New(gateway, cfg.Metrics.Job+"_daily")

	meals := make([]domain.MealType, len(cfg.Provider.Meals))
	for i, s := range cfg.Provider.Meals {
		meals[i] = domain.MealType(s)
	}
	p := pipeline.New(nil, docs, idx, nil, m, cfg.Provider.Locations, meals)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := p.RunDaily(ctx, ref)
	if err := m.Push(); err != nil {
		log.Printf("metrics push failed: %v", err)
	}
	if runErr != nil {
		log.Fatalf("daily run failed: %v", runErr)
	}
}
