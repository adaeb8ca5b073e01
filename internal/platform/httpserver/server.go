package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	votetallyengine "livepoll/contexts/polling/vote-tally-engine"
	httpadapter "livepoll/contexts/polling/vote-tally-engine/adapters/http"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	httptransport "livepoll/contexts/polling/vote-tally-engine/transport/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "livepoll/internal/platform/httpserver/docs"
)

const (
	maxVoteBodyBytes = 1 << 16
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	tally      votetallyengine.Module
	sessions   SessionCodec
	metrics    http.Handler
	readiness  []ReadinessCheck
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

type Options struct {
	Addr          string
	SessionSecret string

	// Metrics is mounted on /metrics when set.
	Metrics   http.Handler
	Readiness []ReadinessCheck
	Logger    *slog.Logger
}

// ReadinessCheck probes one backing store for GET /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func New(tally votetallyengine.Module, options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := options.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		tally:     tally,
		sessions:  NewSessionCodec(options.SessionSecret),
		metrics:   options.Metrics,
		readiness: options.Readiness,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called, in which case it returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("GET /polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("POST /polls/{poll_id}/votes", s.handleSubmitVote)
	s.mux.HandleFunc("GET /polls/{poll_id}/results", s.handleResults)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(s.readiness))
	ready := true
	for _, check := range s.readiness {
		if err := check.Check(ctx); err != nil {
			ready = false
			status[check.Name] = err.Error()
			s.logger.Warn("readiness check failed",
				"event", "http_readiness_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"check", check.Name,
				"error", err.Error(),
			)
			continue
		}
		status[check.Name] = "ok"
	}
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := requirePollID(w, r)
	if !ok {
		return
	}
	resp, err := s.tally.Handler.GetPollHandler(r.Context(), pollID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := requirePollID(w, r)
	if !ok {
		return
	}

	var req httptransport.SubmitVoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	req.PollOptionID = strings.TrimSpace(req.PollOptionID)
	if !isUUID(req.PollOptionID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "poll_option_id must be a uuid")
		return
	}

	resp, assigned, err := s.tally.Handler.SubmitVoteHandler(r.Context(), s.sessions.Read(r), pollID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if assigned != "" {
		http.SetCookie(w, s.sessions.Cookie(assigned))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleResults streams every delta of one poll as a JSON text frame. Poll
// lookup happens before the upgrade so unknown polls get a plain 404.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	pollID, ok := requirePollID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.tally.Handler.SubscribeResultsHandler(ctx, pollID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("results websocket upgrade failed",
			"event", "results_ws_upgrade_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return
	}
	defer conn.Close()

	s.logger.Debug("results subscriber connected",
		"event", "results_ws_connected",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"poll_id", pollID,
	)

	// Clients never send data frames; reading only drives control frames
	// and notices the peer going away.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-sub.Events():
			if !open {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteWait),
				)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(httpadapter.ToDeltaMessage(event)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func requirePollID(w http.ResponseWriter, r *http.Request) (string, bool) {
	pollID := strings.TrimSpace(r.PathValue("poll_id"))
	if !isUUID(pollID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "poll_id must be a uuid")
		return "", false
	}
	return pollID, true
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidVoteInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVotedSameOption):
		writeError(w, http.StatusBadRequest, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrPollNotFound):
		writeError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrOptionNotFound):
		writeError(w, http.StatusNotFound, "option_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "vote store is unavailable")
	case errors.Is(err, domainerrors.ErrSubscriptionClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "results stream is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_canceled", "request was canceled")
	default:
		s.logger.Error("unhandled request error",
			"event", "http_unhandled_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
