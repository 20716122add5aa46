package handlers

import (
	"net/http"

	"energy-debates/internal/db"
	"energy-debates/internal/models"
)

const callbackLimit = 10

func (h *Handlers) GetCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cast)
}

// GetCallbacks lists the recent episode summaries the hosts can refer back to.
func (h *Handlers) GetCallbacks(w http.ResponseWriter, r *http.Request) {
	summaries, err := db.RecentSummaries(r.Context(), callbackLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type defaultsResponse struct {
	Settings   models.GenerationSettings `json:"settings"`
	Durations  map[string]int            `json:"durations"`
	Categories []string                  `json:"categories"`
}

func (h *Handlers) GetDefaults(w http.ResponseWriter, r *http.Request) {
	durations := map[string]int{}
	for _, d := range []models.Duration{models.DurationShort, models.DurationMedium, models.DurationLong} {
		durations[string(d)] = d.Minutes()
	}
	writeJSON(w, http.StatusOK, defaultsResponse{
		Settings:   models.DefaultGenerationSettings(),
		Durations:  durations,
		Categories: models.Categories,
	})
}
