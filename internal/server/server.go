// Package server exposes chart conversion and the song catalog over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"git.lost.host/meutraa/lanecut/internal/bestdori"
	"git.lost.host/meutraa/lanecut/internal/catalog"
	"git.lost.host/meutraa/lanecut/internal/convert"
	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/parser"
)

const (
	DroppedHeader   = "X-Dropped-Notes"
	RequestIDHeader = "X-Request-Id"

	defaultMaxBody = 16 << 20
)

type Server struct {
	// Nil disables the song routes
	Catalog *catalog.Catalog
	Logger  *zap.Logger
	MaxBody int64
}

type ConvertResponse struct {
	Chart   json.RawMessage `json:"chart"`
	Dropped int             `json:"dropped"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

type ctxKey struct{}

func (s *Server) logger() *zap.Logger {
	if nil == s.Logger {
		return zap.NewNop()
	}
	return s.Logger
}

func requestLogger(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/convert", s.handleConvert).Methods(http.MethodPost)
	if nil != s.Catalog {
		router.HandleFunc("/songs", s.handleSearch).Methods(http.MethodGet)
		router.HandleFunc("/songs/{id}/charts/{difficulty}", s.handleChart).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{DroppedHeader, RequestIDHeader},
	})
	return c.Handler(s.withRequestID(router))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		logger := s.logger().With(zap.String("request", id))
		w.Header().Set(RequestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		requestLogger(r).Error("request failed", zap.Error(err))
	} else {
		requestLogger(r).Debug("bad request", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: w.Header().Get(RequestIDHeader)})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if nil != err {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	p := parser.DefaultParser{}
	chart, err := p.Parse(body)
	if nil != err {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	conv := convert.DefaultConverter{Logger: requestLogger(r)}
	out, dropped := conv.Convert(chart)
	data, err := p.Encode(out, false)
	if nil != err {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set(DroppedHeader, strconv.Itoa(dropped))
	writeJSON(w, http.StatusOK, ConvertResponse{Chart: data, Dropped: dropped})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, catalog.ErrNotSynced):
		writeError(w, r, http.StatusServiceUnavailable, err)
	case nil != err:
		writeError(w, r, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := game.ParseDifficulty(vars["difficulty"])
	if nil != err {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sevenLane := false
	switch lanes := r.URL.Query().Get("lanes"); lanes {
	case "", "6":
	case "7":
		sevenLane = true
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("lanes must be 6 or 7, not %q", lanes))
		return
	}

	dl, err := s.Catalog.Chart(r.Context(), vars["id"], d, sevenLane)
	if nil != err {
		writeError(w, r, chartStatus(err), err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if !sevenLane {
		w.Header().Set(DroppedHeader, strconv.Itoa(dl.Dropped))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(dl.Data)
}

func chartStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNoDifficulty), errors.Is(err, catalog.ErrUnknownSong):
		return http.StatusNotFound
	case errors.Is(err, bestdori.ErrStatus):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	// the upstream chart itself did not parse
	return http.StatusBadGateway
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		s.logger().Info("listening", zap.String("addr", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); nil != err {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
