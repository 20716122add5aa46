package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/db"
	"energy-debates/internal/models"
	"energy-debates/pkg/tasks"

	"github.com/gorilla/mux"
)

// StartAudio starts audio generation for an episode. A second request while a
// job is active returns that job instead of starting another.
func (h *Handlers) StartAudio(w http.ResponseWriter, r *http.Request) {
	episodeID := mux.Vars(r)["id"]
	if _, err := db.GetEpisode(r.Context(), episodeID); err != nil {
		writeError(w, r, err)
		return
	}

	job, created, err := db.StartAudioJob(r.Context(), episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, job)
		return
	}

	task, err := tasks.NewGenerateAudioTask(job.ID)
	if err == nil {
		_, err = h.asynqClient.Enqueue(task)
	}
	if err != nil {
		log.Printf("Error enqueuing audio job %s: %v", job.ID, err)
		job.Status = models.JobFailed
		job.Message = "Could not queue audio generation"
		if updateErr := db.UpdateAudioJob(r.Context(), job); updateErr != nil {
			log.Printf("Error failing audio job %s: %v", job.ID, updateErr)
		}
		writeError(w, r, fmt.Errorf("enqueue audio job: %w", err))
		return
	}

	log.Printf("Queued audio job %s for episode %s", job.ID, episodeID)
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetEpisodeAudioStatus(w http.ResponseWriter, r *http.Request) {
	job, err := db.GetLatestAudioJobForEpisode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handlers) GetAudioJob(w http.ResponseWriter, r *http.Request) {
	job, err := db.GetAudioJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DownloadAudio streams the final audio of the episode's latest job.
func (h *Handlers) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	episodeID := mux.Vars(r)["id"]
	job, err := db.GetLatestAudioJobForEpisode(r.Context(), episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.Status != models.JobComplete || job.OutputPath == nil {
		writeError(w, r, fmt.Errorf("%w: audio for episode %s is %s", apperr.ErrConflict, episodeID, job.Status))
		return
	}

	data, err := h.blobs.Get(r.Context(), *job.OutputPath)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="energy-debates-%s.mp3"`, episodeID))
	http.ServeContent(w, r, "final.mp3", job.UpdatedAt, bytes.NewReader(data))
}

// ServeAudioFile serves composed episodes for feed enclosures.
func (h *Handlers) ServeAudioFile(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !strings.HasPrefix(key, "episodes/") || !strings.HasSuffix(key, "/final.mp3") {
		http.NotFound(w, r)
		return
	}

	data, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, "final.mp3", time.Time{}, bytes.NewReader(data))
}

func audioURL(baseURL, key string) string {
	return baseURL + "/audio/" + key
}
