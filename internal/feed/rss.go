package feed

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
)

const (
	showTitle       = "Energy Debates"
	showDescription = "Doug and Claire argue about the week's energy news: utilities, consumers, startups and regulators."
	showAuthor      = "Energy Debates"
	// 192 kbps CBR, used to estimate enclosure size.
	bytesPerSecond = 192000 / 8
)

// Episode is one published show in the feed.
type Episode struct {
	ID              string
	Title           string
	Summary         string
	AudioURL        string
	DurationSeconds int
	PublishedAt     time.Time
}

// BaseURL returns the configured public URL, or one derived from the request.
func BaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS renders the podcast feed for the given episodes, newest first.
func GenerateRSS(baseURL string, episodes []Episode) (string, error) {
	var lastBuild time.Time
	for _, episode := range episodes {
		if episode.PublishedAt.After(lastBuild) {
			lastBuild = episode.PublishedAt
		}
	}

	p := podcast.New(showTitle, baseURL+"/feed.xml", showDescription, &lastBuild, &lastBuild)
	p.IAuthor = showAuthor
	p.AddCategory("News", []string{"Business News"})
	p.Language = "en-us"

	for _, episode := range episodes {
		description := episode.Summary
		if description == "" {
			description = episode.Title
		}
		pubDate := episode.PublishedAt
		item := podcast.Item{
			GUID:        episode.ID,
			Title:       episode.Title,
			Link:        fmt.Sprintf("%s/api/episodes/%s", baseURL, episode.ID),
			Description: description,
		}
		item.AddPubDate(&pubDate)
		item.AddDuration(int64(episode.DurationSeconds))
		item.AddEnclosure(episode.AudioURL, podcast.MP3, int64(episode.DurationSeconds)*bytesPerSecond)
		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("add feed item %s: %w", episode.ID, err)
		}
	}

	return p.String(), nil
}
