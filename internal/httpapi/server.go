package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"storyd/internal/engine"
	"storyd/internal/infer"
	"storyd/pkg/types"
)

// Generator is the slice of the engine the HTTP layer needs.
type Generator interface {
	Load(ctx context.Context, slot, backend, modelID, device string, contextLength int) (engine.LoadResult, error)
	Unload(slot string) error
	Generate(ctx context.Context, req types.GenerateRequest) (string, error)
	Status() []engine.SlotStatus
	SuggestNextScene(ctx context.Context, req types.SuggestionRequest) (string, error)
	SuggestCharacterIdea(ctx context.Context, req types.CharacterIdeaRequest) (string, error)
	SuggestDialogueSparker(ctx context.Context, req types.DialogueSparkerRequest) (string, error)
	SuggestSettingDetail(ctx context.Context, req types.SettingDetailRequest) (string, error)
}

// Catalog lists discoverable models and resolved backend availability.
type Catalog interface {
	Discover() ([]types.ModelFile, error)
	Availability() infer.Availability
}

// CharacterStore is the character persistence surface used by the handlers.
type CharacterStore interface {
	Create(in types.CharacterCreate) (types.Character, error)
	Character(id uuid.UUID) (types.Character, bool)
	List() []types.Character
	Update(id uuid.UUID, upd types.CharacterUpdate) (types.Character, bool, error)
	Delete(id uuid.UUID) (bool, error)
}

// PlotPointStore is the plot point persistence surface used by the handlers.
type PlotPointStore interface {
	Create(in types.PlotPointCreate) (types.PlotPoint, error)
	PlotPoint(id uuid.UUID) (types.PlotPoint, bool)
	List() []types.PlotPoint
	Update(id uuid.UUID, upd types.PlotPointUpdate) (types.PlotPoint, bool, error)
	Delete(id uuid.UUID) (bool, error)
}

// StoryStore holds the single main story text.
type StoryStore interface {
	Text() string
	Save(text string) error
}

// Deps bundles everything NewMux wires into routes.
type Deps struct {
	Engine     Generator
	Catalog    Catalog
	Characters CharacterStore
	PlotPoints PlotPointStore
	Story      StoryStore
}

type server struct {
	deps Deps
}

// NewMux builds the HTTP router.
func NewMux(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, req)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/story", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Get("/status", s.handleStatus)
		r.Post("/load_model", s.handleLoadModel)
		r.Post("/unload_model", s.handleUnloadModel)
		r.Post("/generate", s.handleGenerate)
		r.Get("/main_text", s.handleGetStoryText)
		r.Put("/main_text", s.handlePutStoryText)
	})

	r.Route("/api/writer-block", func(r chi.Router) {
		r.Post("/suggest-next-scene", s.handleSuggestNextScene)
		r.Post("/suggest-character-idea", s.handleSuggestCharacterIdea)
		r.Post("/suggest-dialogue-sparker", s.handleSuggestDialogueSparker)
		r.Post("/suggest-setting-detail", s.handleSuggestSettingDetail)
	})

	r.Route("/api/characters", func(r chi.Router) {
		r.Get("/", s.handleListCharacters)
		r.Post("/", s.handleCreateCharacter)
		r.Get("/{id}", s.handleGetCharacter)
		r.Put("/{id}", s.handleUpdateCharacter)
		r.Delete("/{id}", s.handleDeleteCharacter)
	})

	r.Route("/api/plot-points", func(r chi.Router) {
		r.Get("/", s.handleListPlotPoints)
		r.Post("/", s.handleCreatePlotPoint)
		r.Get("/{id}", s.handleGetPlotPoint)
		r.Put("/{id}", s.handleUpdatePlotPoint)
		r.Delete("/{id}", s.handleDeletePlotPoint)
	})

	MountSwagger(r)

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		ev := log.Debug()
		if sr.status >= 500 {
			ev = log.Warn()
		}
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", sr.status).
			Dur("dur", time.Since(start)).Msg("request")
	})
}

// decodeJSON enforces the JSON content type and body limit, then decodes
// into dst. On failure it writes the error response and returns false.
func (s *server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeBody(r, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter as a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
