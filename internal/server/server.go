// Package server exposes the chat exchange pipeline over HTTP.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemchat/internal/chat"
)

// Exchanger is the orchestrator surface the server depends on.
type Exchanger interface {
	SubmitMessage(ctx context.Context, text string) (chat.Turn, error)
	ListHistory(ctx context.Context) ([]chat.Turn, error)
}

// Config holds server configuration.
type Config struct {
	Addr string // listen address, e.g. ":5000"
}

// Server is the HTTP server fronting the exchange orchestrator.
type Server struct {
	config  Config
	exch    Exchanger
	baseCtx context.Context
	cancel  context.CancelFunc
	httpSrv *http.Server
	logger  *log.Logger
}

// New creates a new Server with the given config.
func New(cfg Config, exch Exchanger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		exch:    exch,
		baseCtx: ctx,
		cancel:  cancel,
		logger:  log.New(os.Stderr, "[gemchat-server] ", log.LstdFlags),
	}

	mux := http.NewServeMux()

	// Go 1.22+ method+pattern routing.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chats", s.handleChats)

	s.httpSrv = &http.Server{
		Handler:     allowCORS(mux),
		ReadTimeout: 30 * time.Second,
		// Generation latency is unbounded upstream; the per-request
		// deadline lives in the orchestrator, not here.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s
}

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.logger.Printf("received %s, shutting down...", sig)
		s.Shutdown()
	}()

	s.logger.Printf("listening on %s", s.config.Addr)
	s.httpSrv.Addr = s.config.Addr
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// allowCORS permits cross-origin browser clients. The transcript UI is served
// from a different origin than the API, so every response carries a wildcard
// allow-origin header and preflight requests short-circuit here.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.cancel()
}
