package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sel-lesson-service/internal/app"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/logger"
	"sel-lesson-service/internal/player"
)

// LessonCatalog lists the lesson ids a deployment can serve.
type LessonCatalog interface {
	IDs() []string
}

type RouterConfig struct {
	Service        *app.PlayerService
	Lessons        player.LessonRepository
	Catalog        LessonCatalog
	Logger         *logger.Logger
	AllowedOrigins []string
}

// NewRouter wires the websocket endpoint and the read-only lesson API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", NewWSHandler(cfg.Service, log).ServeWS)

	lessons := &lessonHandler{lessons: cfg.Lessons, catalog: cfg.Catalog, log: log}
	r.Get("/lessons", lessons.list)
	r.Get("/lessons/{id}", lessons.get)
	return r
}

type lessonHandler struct {
	lessons player.LessonRepository
	catalog LessonCatalog
	log     *logger.Logger
}

func (h *lessonHandler) list(w http.ResponseWriter, r *http.Request) {
	out := []domain.Summary{}
	if h.catalog != nil {
		for _, id := range h.catalog.IDs() {
			lesson, err := h.lessons.GetLesson(r.Context(), id)
			if err != nil {
				h.log.Warn("lesson listed but not loadable", "lesson_id", id, "error", err)
				continue
			}
			out = append(out, lesson.Summary())
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *lessonHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lesson, err := h.lessons.GetLesson(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, lesson)
	case errors.Is(err, domain.ErrLessonNotFound):
		writeJSON(w, http.StatusNotFound, toErrorPayload(err))
	case errors.Is(err, domain.ErrContentDefect):
		writeJSON(w, http.StatusUnprocessableEntity, toErrorPayload(err))
	default:
		h.log.Error("get lesson failed", "lesson_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Code: "internal", Message: "lesson unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
