// Package operator is the HTTP surface of a running station: the manual
// tanker call, a state snapshot, the live event stream and metrics.
package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"petrolstation/internal/events"
	"petrolstation/internal/station"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Controller is the station as seen by an operator.
type Controller interface {
	RequestManualReplenishment() bool
	Snapshot() station.Snapshot
}

// Server routes operator requests to a station.
type Server struct {
	ctl      Controller
	bus      *events.Bus
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	router   chi.Router
}

type envelope struct {
	Type  string       `json:"type"`
	Event events.Event `json:"event"`
}

type replenishResponse struct {
	Started bool `json:"started"`
}

// NewServer builds the routes. metrics may be nil. Manual tanker calls are
// accepted at most manualRate times per second (unlimited when <= 0).
func NewServer(ctl Controller, bus *events.Bus, metrics http.Handler, manualRate float64, logger *zap.SugaredLogger) *Server {
	limit := rate.Inf
	if manualRate > 0 {
		limit = rate.Limit(manualRate)
	}
	s := &Server{
		ctl:     ctl,
		bus:     bus,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Post("/replenish", s.replenish)
	r.Get("/snapshot", s.snapshot)
	r.Get("/events", s.stream)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	s.logger.Infow("operator surface listening", "addr", addr)

	select {
	case err := <-errs:
		return fmt.Errorf("operator server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("operator shutdown: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("operator server: %w", err)
	}
	return nil
}

func (s *Server) replenish(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "too many tanker requests", http.StatusTooManyRequests)
		return
	}
	started := s.ctl.RequestManualReplenishment()
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	writeJSON(w, status, replenishResponse{Started: started})
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Snapshot())
}

// stream forwards bus events to a websocket client until either side goes
// away. A client that cannot keep up loses events on the bus.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(envelope{Type: ev.Type(), Event: ev}); err != nil {
				s.logger.Debugw("event stream closed", "err", err)
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
