package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/banshee-data/sholl.report/internal/api"
	"github.com/banshee-data/sholl.report/internal/config"
	"github.com/banshee-data/sholl.report/internal/db"
	"github.com/banshee-data/sholl.report/internal/units"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	listen := fs.String("listen", ":8080", "Listen address")
	configPath := fs.String("config", "", "JSON analysis config")
	dbPath := fs.String("db", "", "sqlite database holding stored profiles")
	unit := fs.String("units", "", "default output length unit")
	assets := fs.String("assets-host", "", "host serving echarts assets; empty uses the public CDN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		loaded, err := config.LoadAnalysisConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = merge(cfg, loaded)
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	if *unit != "" {
		u, ok := units.Normalise(*unit)
		if !ok {
			return fmt.Errorf("invalid -units %q (valid: %s)", *unit, units.GetValidUnitsString())
		}
		cfg.LengthUnit = &u
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	srv := api.NewServer(db.NewProfileStore(database), cfg.GetLengthUnit())
	srv.SetChartAssetsHost(*assets)
	mux := srv.ServeMux()
	database.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving %s on %s", cfg.GetDBPath(), *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
