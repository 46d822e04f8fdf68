// ABOUTME: Gateway orchestrator that wires the transport, ledger, and HTTP server
// ABOUTME: Manages component lifecycle, health endpoints, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pedronas2222/wa-nasohub-bot/internal/config"
	"github.com/pedronas2222/wa-nasohub-bot/internal/dedupe"
	"github.com/pedronas2222/wa-nasohub-bot/internal/flow"
	"github.com/pedronas2222/wa-nasohub-bot/internal/relay"
	"github.com/pedronas2222/wa-nasohub-bot/internal/store"
	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
	"github.com/pedronas2222/wa-nasohub-bot/internal/transport/matrix"
)

// Gateway orchestrates the server components: the chat transport, the
// dialogue pipeline, the ledger, and the HTTP server for dispatch and
// dashboard subscriptions.
type Gateway struct {
	config     *config.Config
	transport  transport.Transport
	sessions   *flow.Sessions
	store      store.Store
	bus        *relay.Bus
	pipeline   *relay.Pipeline
	dedupe     *dedupe.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the ledger based on config. An empty database path
// keeps everything in process memory.
func initStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Database.Path == "" {
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway connected to a Matrix transport.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	gw, pipeline, err := newCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	tr, err := matrix.New(matrix.Config{
		Homeserver:  cfg.Transport.Matrix.Homeserver,
		UserID:      cfg.Transport.Matrix.UserID,
		AccessToken: cfg.Transport.Matrix.AccessToken,
		ServerName:  cfg.Transport.Matrix.ServerName,
	}, pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("creating matrix transport: %w", err)
	}
	gw.setTransport(tr)
	return gw, nil
}

// newCore builds everything except the transport. The pipeline is returned
// separately so the caller can hand it to the transport as its handler.
func newCore(cfg *config.Config, logger *slog.Logger) (*Gateway, *relay.Pipeline, error) {
	ledger, err := initStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bus := relay.NewBus(logger)
	dedupeCache := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	sessions := flow.NewSessions()
	pipeline := relay.NewPipeline(sessions, ledger, bus, dedupeCache, logger)

	gw := &Gateway{
		config:   cfg,
		sessions: sessions,
		store:    ledger,
		bus:      bus,
		pipeline: pipeline,
		dedupe:   dedupeCache,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)
	mux.HandleFunc("POST /send-message", gw.handleSendMessage)
	mux.HandleFunc("GET /chats", gw.handleListChats)
	mux.HandleFunc("GET /chats/{id}/messages", gw.handleChatMessages)
	mux.HandleFunc("GET /reports", gw.handleListReports)
	mux.HandleFunc("GET /ws", gw.handleSubscriber)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, pipeline, nil
}

// setTransport wires the transport into the gateway and its pipeline.
func (g *Gateway) setTransport(tr transport.Transport) {
	g.transport = tr
	g.pipeline.SetSender(tr)
}

// Run starts the transport and HTTP server and blocks until the context is
// canceled. Returns nil on graceful shutdown, or an error if a component
// fails.
func (g *Gateway) Run(ctx context.Context) error {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	errCh := make(chan error, 2)

	go func() {
		if err := g.transport.Start(ctx); err != nil {
			errCh <- fmt.Errorf("transport: %w", err)
		}
	}()

	go func() {
		g.logger.Info("HTTP server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases component resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.pipeline.Close()
	g.bus.Close()
	g.dedupe.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the transport session is established.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.transport.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("transport not connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
