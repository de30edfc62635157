package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/imelnik/syncmesh/internal/config"
	"github.com/imelnik/syncmesh/internal/events"
	auditdb "github.com/imelnik/syncmesh/internal/events/sqlite"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/session"
	statedb "github.com/imelnik/syncmesh/internal/storage/boltdb"
	"github.com/imelnik/syncmesh/internal/syncer"
	"github.com/imelnik/syncmesh/internal/transport"
	"github.com/imelnik/syncmesh/internal/trust"
	trustdb "github.com/imelnik/syncmesh/internal/trust/boltdb"
	"github.com/imelnik/syncmesh/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// passphraseEnv - переменная окружения с парольной фразой хранилища
// ключей для неинтерактивных запусков
const passphraseEnv = "SYNCMESH_PASSPHRASE"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	keystorePath := flag.String("keystore", "", "Keystore file path (default <data_dir>/keystore.json)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath, *listen, *dataDir, *keystorePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listenOverride, dataDirOverride, keystorePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenOverride != "" {
		cfg.Node.Listen = listenOverride
	}
	if dataDirOverride != "" {
		cfg.Node.DataDir = dataDirOverride
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Директория хранит приватные ключи, права только для владельца
	if err := os.MkdirAll(cfg.Node.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	passphrase, err := readPassphrase()
	if err != nil {
		return err
	}

	if keystorePath == "" {
		keystorePath = filepath.Join(cfg.Node.DataDir, "keystore.json")
	}

	id, created, err := identity.LoadOrCreateKeystore(keystorePath, cfg.Node.ID, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	if id.NodeID != cfg.Node.ID {
		return fmt.Errorf("keystore holds identity %s, config expects %s", id.NodeID, cfg.Node.ID)
	}
	if created {
		logger.Info("node identity created",
			"node_id", id.NodeID,
			"fingerprint", id.Fingerprint(),
		)
	} else {
		logger.Info("node identity loaded",
			"node_id", id.NodeID,
			"fingerprint", id.Fingerprint(),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// События безопасности всегда идут в лог; журнал аудита
	// подключается по конфигурации
	sink := events.Sink(events.NewSlogSink(logger))
	if cfg.Audit.Enabled {
		auditPath := cfg.Audit.Path
		if !filepath.IsAbs(auditPath) {
			auditPath = filepath.Join(cfg.Node.DataDir, auditPath)
		}

		audit, err := auditdb.New(ctx, auditPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer func() {
			if err := audit.Close(); err != nil {
				logger.Error("failed to close audit store", "error", err)
			}
		}()

		sink = events.NewMultiSink(sink, audit)
	}

	registry, err := trustdb.New(ctx, filepath.Join(cfg.Node.DataDir, "trust.db"))
	if err != nil {
		return fmt.Errorf("failed to open trust registry: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("failed to close trust registry", "error", err)
		}
	}()

	store, err := statedb.New(ctx, filepath.Join(cfg.Node.DataDir, "state.db"))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close state store", "error", err)
		}
	}()

	sessions := session.NewManager(id, sink)
	client := transport.NewClient(id, logger)

	engine, err := syncer.New(ctx, syncer.Config{
		Identity:      id,
		Sessions:      sessions,
		Trust:         registry,
		Store:         store,
		Transport:     client,
		Sink:          sink,
		Logger:        logger,
		Policy:        cfg.Policy.SecurityPolicy(),
		CacheCapacity: cfg.Sync.CacheCapacity,
	})
	if err != nil {
		return fmt.Errorf("failed to start sync engine: %w", err)
	}

	srv := transport.NewServer(id, cfg.Node.Name, engine, registry, sessions, logger)
	httpServer := &http.Server{
		Addr:              cfg.Node.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("node listening", "addr", cfg.Node.Listen, "node_id", id.NodeID)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Знакомимся с пирами из конфигурации. Недоступный пир не мешает
	// запуску: узел дееспособен и в одиночку, пир познакомится позже.
	for _, peerURL := range cfg.Sync.Peers {
		resp, err := client.Handshake(ctx, peerURL, cfg.Node.Name)
		if err != nil {
			logger.Warn("handshake failed", "peer_url", peerURL, "error", err)
			continue
		}
		if err := adoptPeer(ctx, registry, sessions, resp); err != nil {
			logger.Warn("failed to adopt peer", "peer_id", resp.NodeID, "error", err)
		}
	}

	go syncLoop(ctx, engine, sessions, cfg.Sync.Interval(), logger)
	go cleanupLoop(ctx, engine, cfg.Sync.CleanupInterval())

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Error("failed to save final state", "error", err)
	}

	logger.Info("node stopped", "node_id", id.NodeID)

	return nil
}

// adoptPeer регистрирует пира из ответа на рукопожатие и устанавливает
// сессию. Уже известный пир не ошибка: обновляется только сессия.
func adoptPeer(ctx context.Context, registry trust.Registry, sessions *session.Manager, resp *api.HandshakeResponse) error {
	err := registry.Register(ctx, models.Device{
		NodeID:      resp.NodeID,
		Name:        resp.Name,
		SigningPub:  resp.SigningPub,
		ExchangePub: resp.ExchangePub,
	})
	if err != nil && !errors.Is(err, trust.ErrDeviceExists) {
		return err
	}

	return sessions.Establish(identity.PublicIdentity{
		NodeID:      resp.NodeID,
		SigningPub:  resp.SigningPub,
		ExchangePub: resp.ExchangePub,
	})
}

// syncLoop выполняет раунды синхронизации со всеми пирами,
// с которыми установлены сессии
func syncLoop(ctx context.Context, engine *syncer.Engine, sessions *session.Manager, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, peer := range sessions.Active() {
				res, err := engine.SyncWith(ctx, peer)
				if err != nil {
					logger.Warn("sync round failed",
						"peer_id", peer,
						"phase", string(res.Phase),
						"error", err,
					)
					continue
				}
				logger.Debug("sync round completed",
					"peer_id", peer,
					"sent", res.Sent,
					"violations", res.Violations,
				)
			}
		}
	}
}

// cleanupLoop периодически вытесняет устаревшие операции из кэша
func cleanupLoop(ctx context.Context, engine *syncer.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.Cleanup()
		}
	}
}

// readPassphrase получает парольную фразу хранилища ключей:
// из переменной окружения либо с терминала без эха
func readPassphrase() (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("keystore passphrase required: set %s or run interactively", passphraseEnv)
	}

	fmt.Fprint(os.Stderr, "Keystore passphrase: ")
	pwBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}

	return string(pwBytes), nil
}

func printVersion() {
	fmt.Printf("SyncMesh Node\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
