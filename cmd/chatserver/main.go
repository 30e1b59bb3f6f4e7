// Command chatserver is the chat service's process entrypoint: it loads
// configuration, connects Postgres and Redis, starts the notification
// bridge, and serves the REST/websocket API until asked to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/authsvc"
	"github.com/coldharbor/chatcore/internal/chatbridge"
	"github.com/coldharbor/chatcore/internal/config"
	"github.com/coldharbor/chatcore/internal/database"
	"github.com/coldharbor/chatcore/internal/httpapi"
	"github.com/coldharbor/chatcore/internal/sessioncache"
	"github.com/coldharbor/chatcore/internal/telemetry"
	"github.com/coldharbor/chatcore/internal/wsgateway"
)

var (
	configFile  = flag.String("config", "", "path to a YAML configuration file")
	showVersion = flag.Bool("version", false, "print version information and exit")
	showHelp    = flag.Bool("help", false, "print usage and exit")
)

// AppConfig holds everything run needs, so tests can inject a fake shutdown
// signal instead of relying on a real SIGTERM.
type AppConfig struct {
	ConfigPath     string
	ShowHelp       bool
	ShowVersion    bool
	Logger         *logrus.Logger
	ShutdownSignal chan os.Signal
}

// DefaultAppConfig returns the configuration main() builds from flags.
func DefaultAppConfig() *AppConfig {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &AppConfig{Logger: logger}
}

func run(appCfg *AppConfig) error {
	if appCfg.ShowHelp {
		printHelp()
		return nil
	}
	if appCfg.ShowVersion {
		fmt.Println("chatserver v0.1.0")
		return nil
	}

	logger := appCfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("chatserver: load config: %w", err)
	}
	if cfg.Monitoring.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(cfg.Monitoring.LogLevel); err == nil {
			logger.SetLevel(lvl)
		}
	}

	var ctx context.Context
	var stop context.CancelFunc
	if appCfg.ShutdownSignal != nil {
		// Test injection: cancel ctx when the caller's channel fires instead
		// of waiting on a real OS signal.
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		stop = cancel
		go func() {
			select {
			case <-appCfg.ShutdownSignal:
				cancel()
			case <-ctx.Done():
			}
		}()
	} else {
		ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	}
	defer stop()

	var tracer *telemetry.Tracer
	if cfg.Monitoring.TracingEnabled {
		exporter := telemetry.ExporterStdout
		tracer, err = telemetry.New(ctx, &telemetry.Config{
			ServiceName:  "chatserver",
			ExporterType: exporter,
			SampleRate:   cfg.Monitoring.TracingSampleRate,
		})
		if err != nil {
			return fmt.Errorf("chatserver: init telemetry: %w", err)
		}
		defer tracer.Shutdown(context.Background())
	}

	pool, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("chatserver: connect database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("chatserver: migrate database: %w", err)
	}

	auth, err := authsvc.NewMiddleware(authsvc.AuthConfig{
		SecretKey:   cfg.Security.JWTSecret,
		TokenExpiry: cfg.Security.TokenExpiry,
	}, logger)
	if err != nil {
		return fmt.Errorf("chatserver: init auth: %w", err)
	}

	var cache *sessioncache.Cache
	if cfg.Services.Redis.Enabled {
		cache, err = sessioncache.New(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("chatserver: redis unavailable, sessions will not be cached")
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	broker, bridgeErrCh := chatbridge.StartWithTracer(ctx, pool, cfg.Database.DSN(), logger, tracer)

	users := database.NewUserRepository(pool, logger)
	sessions := database.NewSessionRepository(pool, logger)
	chats := database.NewChatRepository(pool, logger)

	publisher := wsgateway.NewRepositoryPublisher(chats)
	gateway := wsgateway.NewGateway(broker, publisher, wsgateway.DefaultConfig(), logger)

	var cacheDep httpapi.SessionCache
	if cache != nil {
		cacheDep = cache
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Health:   httpapi.NewPoolHealthChecker(pool),
		Auth:     auth,
		Users:    users,
		Sessions: sessions,
		Chats:    chats,
		Cache:    cacheDep,
		Gateway:  gateway,
		Log:      logger,
	}, cfg.Server.Mode == "debug")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("chatserver: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("chatserver: server failed: %w", err)
	case err := <-bridgeErrCh:
		if err != nil {
			return fmt.Errorf("chatserver: bridge failed: %w", err)
		}
	case <-ctx.Done():
		// SIGINT/SIGTERM received; fall through to graceful shutdown below.
	}

	logger.Info("chatserver: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("chatserver: shutdown: %w", err)
	}
	logger.Info("chatserver: shutdown complete")
	return nil
}

func printHelp() {
	fmt.Println(`chatserver - chat relay service

Usage:
  chatserver [options]

Options:
  -config string   path to a YAML configuration file
  -version         print version information and exit
  -help             print this message and exit`)
}

func main() {
	flag.Parse()

	appCfg := DefaultAppConfig()
	appCfg.ConfigPath = *configFile
	appCfg.ShowHelp = *showHelp
	appCfg.ShowVersion = *showVersion

	if err := run(appCfg); err != nil {
		appCfg.Logger.WithError(err).Fatal("chatserver: fatal error")
	}
}
