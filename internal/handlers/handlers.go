package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
	"energy-debates/internal/storage"
	"energy-debates/pkg/tasks"

	"github.com/gorilla/mux"
)

// EpisodeGenerator runs the script pipeline for a stored blog.
type EpisodeGenerator interface {
	GenerateEpisode(ctx context.Context, blogID string, settings models.GenerationSettings) (*models.Episode, error)
}

// MetadataGenerator writes and stores the publishing copy for an episode.
type MetadataGenerator interface {
	GenerateMetadata(ctx context.Context, episodeID string) (*models.EpisodeMetadata, error)
}

type Handlers struct {
	asynqClient tasks.TaskEnqueuer
	episodes    EpisodeGenerator
	metadata    MetadataGenerator
	blobs       storage.BlobStore
	cast        models.Cast
	baseURL     string
}

func New(asynqClient tasks.TaskEnqueuer, episodes EpisodeGenerator, metadata MetadataGenerator, blobs storage.BlobStore, cast models.Cast, baseURL string) *Handlers {
	return &Handlers{
		asynqClient: asynqClient,
		episodes:    episodes,
		metadata:    metadata,
		blobs:       blobs,
		cast:        cast,
		baseURL:     baseURL,
	}
}

// Router mounts the JSON API under /api behind the given middleware. The feed
// and audio files stay public so podcast clients can fetch them.
func (h *Handlers) Router(apiMiddleware ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/feed.xml", h.GetRSSFeed).Methods(http.MethodGet)
	r.HandleFunc("/audio/{key:.+}", h.ServeAudioFile).Methods(http.MethodGet, http.MethodHead)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(apiMiddleware...)

	api.HandleFunc("/blogs", h.ListBlogs).Methods(http.MethodGet)
	api.HandleFunc("/blogs", h.UploadBlog).Methods(http.MethodPost)
	api.HandleFunc("/blogs/{id}", h.GetBlog).Methods(http.MethodGet)
	api.HandleFunc("/blogs/{id}", h.DeleteBlog).Methods(http.MethodDelete)

	api.HandleFunc("/episodes", h.ListEpisodes).Methods(http.MethodGet)
	api.HandleFunc("/episodes", h.GenerateEpisode).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id}", h.GetEpisode).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id}", h.DeleteEpisode).Methods(http.MethodDelete)
	api.HandleFunc("/episodes/{id}/export", h.ExportEpisode).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id}/segments", h.GetSegments).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id}/metadata", h.GenerateMetadata).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id}/metadata", h.GetMetadata).Methods(http.MethodGet)

	api.HandleFunc("/episodes/{id}/audio", h.StartAudio).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id}/audio", h.GetEpisodeAudioStatus).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id}/audio/download", h.DownloadAudio).Methods(http.MethodGet)
	api.HandleFunc("/audio/jobs/{id}", h.GetAudioJob).Methods(http.MethodGet)

	api.HandleFunc("/settings/characters", h.GetCharacters).Methods(http.MethodGet)
	api.HandleFunc("/settings/callbacks", h.GetCallbacks).Methods(http.MethodGet)
	api.HandleFunc("/settings/defaults", h.GetDefaults).Methods(http.MethodGet)

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps the error class onto a status code. Internal errors are
// logged and not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	resp := errorResponse{Error: err.Error(), Stage: apperr.StageOf(err)}
	if status == http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)
		resp.Error = "Internal server error"
	}
	writeJSON(w, status, resp)
}
