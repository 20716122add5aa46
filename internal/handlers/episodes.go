package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"energy-debates/internal/apperr"
	"energy-debates/internal/audio"
	"energy-debates/internal/db"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"

	"github.com/gorilla/mux"
)

type generateRequest struct {
	BlogID string `json:"blog_id"`
	models.GenerationSettings
}

// GenerateEpisode runs the script pipeline synchronously. Omitted settings
// fall back to the editor defaults.
func (h *Handlers) GenerateEpisode(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{GenerationSettings: models.DefaultGenerationSettings()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid JSON body: %v", err))
		return
	}
	if req.BlogID == "" {
		writeError(w, r, apperr.Validation("blog_id is required"))
		return
	}

	episode, err := h.episodes.GenerateEpisode(r.Context(), req.BlogID, req.GenerationSettings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, episode)
}

func (h *Handlers) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := db.ListEpisodes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := db.GetEpisode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, episode)
}

func (h *Handlers) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteEpisode(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportEpisode downloads the script as plain text or teleprompter layout.
func (h *Handlers) ExportEpisode(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	episode, err := db.GetEpisode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := scriptfmt.Export(episode.Script, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if format == "" {
		format = scriptfmt.FormatText
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="episode-%s-%s.txt"`, episode.ID, format))
	w.Write([]byte(body))
}

// GetSegments previews the speaker turns the audio pipeline would synthesize.
func (h *Handlers) GetSegments(w http.ResponseWriter, r *http.Request) {
	episode, err := db.GetEpisode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audio.Collect(episode.Script))
}

// GenerateMetadata writes fresh publishing copy for an episode, replacing any
// earlier version.
func (h *Handlers) GenerateMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata.GenerateMetadata(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := db.GetEpisodeMetadata(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
