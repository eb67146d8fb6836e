// Package main provides the fjord atlas HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/store"
	"go.ngs.io/fjord-atlas/internal/config"
	httpHandler "go.ngs.io/fjord-atlas/internal/http"
	"go.ngs.io/fjord-atlas/internal/logger"
	"go.ngs.io/fjord-atlas/internal/metrics"
	"go.ngs.io/fjord-atlas/internal/usecase"
)

const version = "0.1.0"

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to configuration file" default:"fjord-atlas.yaml"`
	Addr       string `short:"a" long:"addr"    env:"LISTEN_ADDRESS" description:"Address to listen on" default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"    env:"PORT"        description:"Port to listen on" default:"8080"`
	Release    bool   `long:"release"           env:"GIN_RELEASE" description:"Run gin in release mode"`
	Version    bool   `short:"v" long:"version" description:"Show version information"`
}

func main() {
	// ENV_FILE names the dotenv file; it is read before go-flags resolves env defaults.
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("fjord-atlas version %s\n", version)
		return
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	atlasUC := usecase.NewAtlasUseCase(store.NewFiles(cfg, m), m)
	router := httpHandler.SetupRouter(atlasUC, m)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Addr, opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("fjords", cfg.FjordPolygons).
		Str("regions", cfg.RegionPolygons).
		Str("group_annuals", cfg.GroupAnnuals).
		Int("bounds_year", cfg.BoundsYear).
		Msg("Fjord atlas server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
