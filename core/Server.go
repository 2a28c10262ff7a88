package core

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"PongOnline/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	cfg      *Config
	registry *Registry
	router   *Router
	limiter  *RateLimiter
	srv      *http.Server
}

func NewServer(cfg *Config) *Server {
	registry := NewRegistry(cfg.RoomSettings())
	s := &Server{
		cfg:      cfg,
		registry: registry,
		router:   NewRouter(registry, cfg.MessageRate, cfg.MessageBurst),
		limiter:  NewRateLimiter(cfg.HandshakeRate),
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", s.handleWS)
	mux.HandleFunc("POST /create_game", s.handleCreateGame)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) ListenAndServe() error {
	logger.Log.WithFields(logrus.Fields{
		"addr": s.cfg.Addr(),
		"env":  s.cfg.Env,
		"tick": s.cfg.TickInterval.String(),
	}).Info(logger.ServerStartMsg)

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown 停止接受新連線並關閉所有房間
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.registry.CloseAll()
	s.limiter.Stop()
	logger.Log.Info(logger.ServerStopMsg)
	return err
}

// StartService 阻塞到 ctx 結束或伺服器發生錯誤
func StartService(ctx context.Context, cfg *Config) error {
	s := NewServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Error(logger.ServerListenFailedMsg)
		}
		s.registry.CloseAll()
		s.limiter.Stop()
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, s.cfg.TrustProxy)
	if !s.limiter.Allow(ip) {
		logger.Log.WithFields(logrus.Fields{"ip": ip}).Warn(logger.HandshakeRateLimitedMsg)
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	roomID := r.PathValue("room")
	if roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"ip": ip, "error": err}).Warn(logger.UpgradeFailedMsg)
		return
	}

	s.router.Serve(roomID, NewWSConn(ws))
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	key := uuid.NewString()
	logger.Log.WithFields(logrus.Fields{"game_key": key, "ip": clientIP(r, s.cfg.TrustProxy)}).Info(logger.GameKeyCreatedMsg)
	writeJSON(w, http.StatusOK, map[string]string{"game_key": key})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.registry.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// clientIP 只有 trustProxy 時才相信代理帶來的 header
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
