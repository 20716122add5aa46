package handlers

import (
	"log"
	"net/http"

	"energy-debates/internal/db"
	"energy-debates/internal/feed"
)

const feedLimit = 100

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	published, err := db.ListPublishedEpisodes(r.Context(), feedLimit)
	if err != nil {
		log.Printf("Error getting episodes: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	baseURL := feed.BaseURL(h.baseURL, r)
	episodes := make([]feed.Episode, 0, len(published))
	for _, p := range published {
		episodes = append(episodes, feed.Episode{
			ID:              p.ID,
			Title:           p.Title,
			Summary:         p.Summary,
			AudioURL:        audioURL(baseURL, p.OutputPath),
			DurationSeconds: p.DurationSeconds,
			PublishedAt:     p.PublishedAt,
		})
	}

	rss, err := feed.GenerateRSS(baseURL, episodes)
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}
