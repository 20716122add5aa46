package db

import (
	"context"

	"energy-debates/internal/models"

	"github.com/google/uuid"
)

// CreateBlog stores a new blog and fills in its id and creation time.
func CreateBlog(ctx context.Context, blog *models.Blog) error {
	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	err := DB.GetContext(ctx, &blog.CreatedAt,
		`INSERT INTO blogs (id, title, content, tags, summary)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		blog.ID, blog.Title, blog.Content, blog.Tags, blog.Summary)
	return mapError(err, "create blog")
}

func GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	blog := models.Blog{}
	err := DB.GetContext(ctx, &blog, "SELECT * FROM blogs WHERE id = $1", id)
	if err != nil {
		return nil, mapError(err, "get blog "+id)
	}
	return &blog, nil
}

// ListBlogs returns blogs newest first.
func ListBlogs(ctx context.Context) ([]models.Blog, error) {
	blogs := []models.Blog{}
	err := DB.SelectContext(ctx, &blogs, "SELECT * FROM blogs ORDER BY created_at DESC")
	return blogs, mapError(err, "list blogs")
}

// DeleteBlog removes a blog. Episodes generated from it are kept.
func DeleteBlog(ctx context.Context, id string) error {
	res, err := DB.ExecContext(ctx, "DELETE FROM blogs WHERE id = $1", id)
	if err != nil {
		return mapError(err, "delete blog "+id)
	}
	return expectOne(res, "delete blog "+id)
}
