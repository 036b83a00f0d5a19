package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/transport"
)

const (
	// DefaultModuleTimeout bounds one module run.
	DefaultModuleTimeout = 5 * time.Second
	writeWait            = 5 * time.Second
	shutdownGrace        = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// WebSocket enables the push channel and advertises it on the probe.
	WebSocket     bool
	ModuleTimeout time.Duration
	Log           logger.Logger
}

// Server serves a Registry over the linux-dash wire contract.
type Server struct {
	reg      *Registry
	opts     Options
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server for reg.
func NewServer(reg *Registry, opts Options) *Server {
	if opts.ModuleTimeout <= 0 {
		opts.ModuleTimeout = DefaultModuleTimeout
	}
	return &Server{
		reg:  reg,
		opts: opts,
		log:  logger.OrDefault(opts.Log),
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{transport.Subprotocol},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboards are not browsers; requests without Origin are the norm.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get(transport.ProbePath, s.handleProbe)
	r.Get(transport.ModulePath, s.handleModule)
	r.Get("/", s.handleRoot)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("agent listening on %s (websocket: %v, %d modules)", addr, s.opts.WebSocket, len(s.reg.Names()))

	select {
	case err := <-errCh:
		return errors.WrapWithCode(err, errors.ErrAgent,
			"Agent failed to listen on "+addr,
			"Check the address is free, or pick another with --listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent, "Agent shutdown did not finish cleanly", "")
	}
	return nil
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{transport.SupportField: s.opts.WebSocket})
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(transport.ModuleKey)
	if name == "" {
		http.Error(w, "missing module parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ModuleTimeout)
	defer cancel()

	out, err := s.reg.Run(ctx, name)
	switch {
	case err == errUnknownModule:
		http.Error(w, "unknown module "+name, http.StatusNotFound)
	case err != nil:
		s.log.Warn("module %s: %s", name, errors.Short(err))
		http.Error(w, errors.Short(err), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		if !s.opts.WebSocket {
			http.Error(w, "websocket disabled", http.StatusNotFound)
			return
		}
		s.serveWebSocket(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"modules": s.reg.Names()})
}

// serveWebSocket answers each text frame, a module name, with one response
// frame. Modules run concurrently; writes are serialized.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		name := string(msg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame := s.answer(ctx, name)

			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("websocket write %s: %v", name, err)
			}
		}()
	}
}

// answer builds the response frame for name. Failures answer with an empty
// output so the client stream is released instead of waiting for a timeout.
func (s *Server) answer(ctx context.Context, name string) []byte {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.ModuleTimeout)
	defer cancel()

	out, err := s.reg.Run(runCtx, name)
	if err != nil {
		s.log.Warn("module %s: %s", name, errors.Short(err))
		out = nil
	}
	frame, err := transport.EncodeFrame(name, out)
	if err != nil {
		s.log.Error("encode frame for %s: %v", name, err)
	}
	return frame
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("method=%s uri=%s status=%d size=%d duration=%s",
			r.Method, r.RequestURI, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
