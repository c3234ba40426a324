package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"abbrev-quiz-service/internal/app"
	"abbrev-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server bundles the REST routes and the websocket endpoint.
type Server struct {
	r       *chi.Mux
	service *app.GameService
}

func NewServer(service *app.GameService, ws *WSHandler) *Server {
	s := &Server{r: chi.NewRouter(), service: service}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(accessLog)

	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	// Websocket connections outlive any request timeout.
	s.r.Get("/ws", ws.ServeWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/categories", s.handleCategories)
		r.Route("/players/{playerID}", func(r chi.Router) {
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
			r.Get("/highscores/{category}", s.handleHighScore)
		})
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "not found: " + r.URL.Path})
	})
	return s
}

// Router exposes the router for serving and tests.
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Settings(r.Context(), chi.URLParam(r, "playerID")))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	settings := domain.DefaultSettings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid settings payload"})
		return
	}
	if err := s.service.SaveSettings(r.Context(), chi.URLParam(r, "playerID"), settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type highScorePayload struct {
	Category  string `json:"category"`
	HighScore int    `json:"highScore"`
}

func (s *Server) handleHighScore(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	best, err := s.service.HighScore(r.Context(), chi.URLParam(r, "playerID"), category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, highScorePayload{Category: category, HighScore: best})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSettings), errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyAnswered), errors.Is(err, domain.ErrNotAnswered),
		errors.Is(err, domain.ErrSessionOver), errors.Is(err, domain.ErrGameOverPending),
		errors.Is(err, domain.ErrNoQuestion), errors.Is(err, domain.ErrPoolExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upgraded connections are hijacked and have no status to report.
		if strings.HasPrefix(r.URL.Path, "/healthz") || strings.HasPrefix(r.URL.Path, "/ws") {
			next.ServeHTTP(w, r)
			return
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
