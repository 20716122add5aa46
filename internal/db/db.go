package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // The database driver
)

// DB is the global database connection.
var DB *sqlx.DB

//go:embed schema.sql
var schema string

// InitDB initializes the database connection.
func InitDB(dbURL string) {
	var err error
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	DB, err = sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Database connection established")
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context) error {
	if _, err := DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Println("Database schema is up to date")
	return nil
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapError translates driver errors into the shared error classes.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w: %s", what, apperr.ErrConflict, pqErr.Message)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w: %s", what, apperr.ErrNotFound, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Records exposes the package functions as the store interfaces the
// pipelines consume.
type Records struct{}

func (Records) GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	return GetBlog(ctx, id)
}

func (Records) LatestEpisodeSummary(ctx context.Context) (string, error) {
	return LatestEpisodeSummary(ctx)
}

func (Records) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	return CreateEpisode(ctx, episode)
}

func (Records) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	return GetEpisode(ctx, id)
}

func (Records) GetAudioJob(ctx context.Context, id string) (*models.AudioJob, error) {
	return GetAudioJob(ctx, id)
}

func (Records) UpdateAudioJob(ctx context.Context, job *models.AudioJob) error {
	return UpdateAudioJob(ctx, job)
}

func (Records) SaveEpisodeMetadata(ctx context.Context, meta *models.EpisodeMetadata) error {
	return SaveEpisodeMetadata(ctx, meta)
}
