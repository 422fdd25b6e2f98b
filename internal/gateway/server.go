// Package gateway exposes the duel controller over HTTP: a JSON REST surface,
// a PNG board endpoint, and a WebSocket event stream.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyeon-dev/chessduel/internal/archive"
	"github.com/hyeon-dev/chessduel/internal/boardimage"
	"github.com/hyeon-dev/chessduel/internal/duel"
	"github.com/hyeon-dev/chessduel/pkg/dueldto"
)

const requestTimeout = 60 * time.Second

type Server struct {
	controller *duel.Controller
	repo       archive.Repository
	renderer   boardimage.Renderer
	rdb        *redis.Client
	logger     *zap.Logger
	router     chi.Router
}

func NewServer(controller *duel.Controller, repo archive.Repository, renderer boardimage.Renderer, rdb *redis.Client, logger *zap.Logger) (*Server, error) {
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("archive repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		controller: controller,
		repo:       repo,
		renderer:   renderer,
		rdb:        rdb,
		logger:     logger,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/duels", func(r chi.Router) {
			r.Post("/", s.handleCreateDuel)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDuel)
				r.Post("/moves", s.handlePlayMove)
				r.Post("/reset", s.handleReset)
				r.Get("/hint", s.handleHint)
				r.Get("/board.png", s.handleBoardPNG)
				r.Get("/events", s.handleEvents)
			})
		})
		r.Route("/archive", func(r chi.Router) {
			r.Get("/duels", s.handleArchiveList)
			r.Get("/duels/{id}", s.handleArchiveGet)
			r.Get("/stats", s.handleArchiveStats)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.rdb.Ping(r.Context()).Err(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"redis":  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateDuel(w http.ResponseWriter, r *http.Request) {
	var req dueldto.CreateDuelRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	mode := duel.OpponentMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	switch mode {
	case "", duel.ModeProvider, duel.ModeRandom:
	default:
		s.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}

	snap, err := s.controller.CreateSession(r.Context(), mode)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSessionView(snap))
}

func (s *Server) handleGetDuel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionView(snap))
}

func (s *Server) handlePlayMove(w http.ResponseWriter, r *http.Request) {
	var req dueldto.PlayMoveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		s.writeError(w, http.StatusBadRequest, "bad_request", "from and to squares are required")
		return
	}

	snap, err := s.controller.AttemptHumanMove(r.Context(), chi.URLParam(r, "id"), duel.Move{
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionView(snap))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionView(snap))
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	hint, err := s.controller.Hint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dueldto.HintResponse{Hint: hint})
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	board, snap, err := s.controller.BoardState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	opts := boardimage.RenderOptions{Header: boardHeader(snap)}
	if from, to, ok := lastMoveSquares(snap.LastMoveUCI); ok {
		opts.Highlight = &boardimage.MoveHighlight{From: from, To: to}
	}

	img, err := s.renderer.RenderPNG(r.Context(), board, opts)
	if err != nil {
		s.logger.Error("board_render_failed", zap.String("session", snap.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render_failed", "board image rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	duels, err := s.repo.GetRecentDuels(r.Context(), limit)
	if err != nil {
		s.logger.Error("archive_list_failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "archive query failed")
		return
	}
	records := make([]*dueldto.DuelRecord, 0, len(duels))
	for _, d := range duels {
		records = append(records, toDuelRecord(d))
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", "duel id must be an integer")
		return
	}
	d, err := s.repo.GetDuel(r.Context(), id)
	if err != nil {
		s.logger.Error("archive_get_failed", zap.Int64("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "archive query failed")
		return
	}
	if d == nil {
		s.writeError(w, http.StatusNotFound, "duel_not_found", "archived duel not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toDuelRecord(d))
}

func (s *Server) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		s.logger.Error("archive_stats_failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "archive query failed")
		return
	}
	views := make([]*dueldto.DuelStats, 0, len(stats))
	for _, st := range stats {
		views = append(views, toDuelStats(st))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// decodeJSONBody tolerates an empty body so POST endpoints with optional
// bodies work with a bare request.
func decodeJSONBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response_encode_failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, dueldto.ErrorBody{Code: code, Message: message})
}

// writeDomainError maps controller sentinels onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, duel.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, duel.ErrSessionFinished):
		s.writeError(w, http.StatusConflict, "session_finished", err.Error())
	case errors.Is(err, duel.ErrNotYourTurn):
		s.writeError(w, http.StatusConflict, "not_your_turn", err.Error())
	case errors.Is(err, duel.ErrIllegalMove):
		s.writeError(w, http.StatusUnprocessableEntity, "illegal_move", err.Error())
	case errors.Is(err, duel.ErrNoProvider):
		s.writeError(w, http.StatusServiceUnavailable, "provider_unavailable", err.Error())
	case errors.Is(err, duel.ErrHintUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "hint_unavailable", err.Error())
	default:
		s.logger.Error("request_failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
