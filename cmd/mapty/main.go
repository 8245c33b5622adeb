package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mapty "github.com/claude/mapty"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/events"
	"github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and MAPTY_* env vars apply without one)")
	migrateOnly := flag.Bool("migrate-only", false, "apply the postgres schema and exit")
	flag.Parse()

	level := new(slog.LevelVar)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("mapty starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())

	if *migrateOnly {
		if err := storage.RunMigrations(cfg.Postgres.DSN()); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	// Open the session's workout collection
	ctx := context.Background()
	workouts, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.SQLite.Path,
		PostgresDSN: cfg.Postgres.DSN(),
		Migrate:     cfg.Postgres.Migrate,
	})
	if err != nil {
		log.Error("failed to open workout storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	log.Info("workout storage ready", "driver", cfg.Storage.Driver)

	// Event publishers
	pub := events.Multi{events.NewLogPublisher(log)}
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer kp.Close()
		pub = append(pub, kp)
		log.Info("publishing workout events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	m := metrics.New()
	sess := session.New(workouts, workout.NewFactory(), pub, log,
		session.WithZoom(cfg.Map.Zoom),
		session.WithMetrics(m),
	)
	defer func() {
		if err := sess.Close(); err != nil {
			log.Error("closing session", "error", err)
		}
	}()

	// Listener: tsnet or plain TCP
	var listener net.Listener
	var opts []server.Option
	if cfg.Auth.APIKey != "" {
		opts = append(opts, server.WithAPIKey(cfg.Auth.APIKey))
	}

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithIdentity(server.TailscaleIdentity(lc, log)))

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	srv := server.New(sess, m, cfg.Map, log, opts...)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcp.New(mcp.Local{Session: sess}, Version, log)))

	// Serve embedded frontend
	webFS, err := fs.Sub(mapty.WebFS, "web")
	if err != nil {
		log.Error("failed to load embedded frontend", "error", err)
		os.Exit(1)
	}
	srv.SetFrontend(webFS)

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped, session workouts discarded")
}
