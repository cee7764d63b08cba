package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cptrack/cptrack/internal/api/user"
	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/config"
	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/platform/codeforces"
	"github.com/cptrack/cptrack/internal/platform/leetcode"
	"github.com/cptrack/cptrack/internal/tracker"

	"go.uber.org/zap"
)

var Version = "dev-build"

// buildLogger configures zap from the logger section: debug gets the
// development config, everything else production, with an optional log file
// added alongside stderr.
func buildLogger(cfg config.Logger) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Level == "debug" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}
	return zapCfg.Build()
}

func main() {

	fmt.Fprintf(os.Stderr, "cptrack %s - Cross-Platform Competitive Programming Tracker\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	logger, err := buildLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage.Database)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Info("database initialized successfully")

	// cache store; an unreachable Redis degrades to direct computation
	ctx := context.Background()
	var store cache.Store
	if cfg.Redis.Addr != "" {
		store = cache.New(ctx, cfg.Redis)
	} else {
		zap.S().Warn("no redis configured, running without cache")
		store = cache.Noop{}
	}

	// platform adapters
	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	lc := leetcode.New(cfg.Upstream.LeetCodeBaseURL, timeout, store)
	cf := codeforces.New(cfg.Upstream.CodeforcesBaseURL, timeout)

	// sync workflow and aggregation service
	syncer := tracker.NewSyncer(db, store, timeout, lc, cf)
	service := tracker.NewService(db, store, syncer)

	// API router
	engine := user.NewRouter(cfg, db, store, syncer, service, lc)

	go func() {
		zap.S().Infof("starting server at %s", cfg.Listen)
		if err := engine.Run(cfg.Listen); err != nil {
			zap.S().Fatalf("failed to start server: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")
}
