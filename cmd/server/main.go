package main

import (
	"context"
	"database/sql"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/config"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/db"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/migrations"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/seed"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout+10*time.Second)
	defer cancel()

	var database *sql.DB
	if cfg.DBPath != "" {
		var err error
		database, err = db.Open(ctx, cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()

		if err := migrations.Up(database); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	load := sourceLoader(cfg)
	table, source, err := load(ctx)
	switch {
	case err == nil && database != nil:
		stats, err := seed.Run(ctx, database, table, source)
		if err != nil {
			log.Fatalf("failed to cache price table: %v", err)
		}
		log.Printf("price table from %s cached as snapshot %d (inserts=%d updates=%d issues=%d)",
			source, stats.SnapshotID, stats.Inserts, stats.Updates, stats.Issues)
	case err != nil && database != nil:
		cached, snap, cacheErr := store.Latest(ctx, database)
		if cacheErr != nil {
			log.Fatalf("failed to load price table from %s: %v (cache: %v)", source, err, cacheErr)
		}
		log.Printf("warning: price table from %s unavailable: %v; using cached snapshot %d from %s",
			source, err, snap.ID, snap.Source)
		table = cached
	case err != nil:
		log.Fatalf("failed to load price table from %s: %v", source, err)
	}
	for _, issue := range pricetable.Lint(table) {
		log.Printf("price table: %s", issue)
	}

	srv := newServer(table, database, load, cfg.AdminToken)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("listening on %s (env=%s)", httpSrv.Addr, cfg.Env)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server stopped: %v", err)
	}
}

// setupLogging sends the standard logger to LOG_FILE with rotation. In dev
// the output is mirrored to stderr.
func setupLogging(cfg config.Config) {
	if cfg.LogFile == "" {
		return
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	var out io.Writer = rotating
	if cfg.IsDev() {
		out = io.MultiWriter(os.Stderr, rotating)
	}
	log.SetOutput(out)
}

// sourceLoader reads the configured artifact. A URL wins over a path.
func sourceLoader(cfg config.Config) tableLoader {
	source := cfg.PriceTablePath
	if cfg.PriceTableURL != "" {
		source = cfg.PriceTableURL
	}
	client := &http.Client{Timeout: cfg.FetchTimeout}

	return func(ctx context.Context) (*pricing.Table, string, error) {
		table, err := pricetable.Load(ctx, client, source)
		return table, source, err
	}
}
