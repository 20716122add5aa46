package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/content"
	"energy-debates/internal/db"
	"energy-debates/internal/models"

	"github.com/gorilla/mux"
)

const maxBlogUpload = 5 << 20

type blogRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// UploadBlog accepts either a multipart "file" (markdown or HTML) or a JSON
// body with the text already extracted.
func (h *Handlers) UploadBlog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBlogUpload)

	var blog *models.Blog
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		blog, err = blogFromUpload(r)
	} else {
		blog, err = blogFromJSON(r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := db.CreateBlog(r.Context(), blog); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

func blogFromUpload(r *http.Request) (*models.Blog, error) {
	if err := r.ParseMultipartForm(maxBlogUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("blog upload exceeds %d bytes", maxBlogUpload)
		}
		return nil, apperr.Validation("invalid multipart body: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.Validation("multipart field \"file\" is required")
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	blog, err := content.Extract(header.Filename, raw)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		blog.Title = title
	}
	return blog, nil
}

func blogFromJSON(r *http.Request) (*models.Blog, error) {
	var req blogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperr.Validation("invalid JSON body: %v", err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperr.Validation("content is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled"
	}
	return &models.Blog{
		Title:   title,
		Content: strings.TrimSpace(req.Content),
		Tags:    req.Tags,
		Summary: strings.TrimSpace(req.Summary),
	}, nil
}

func (h *Handlers) ListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := db.ListBlogs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

func (h *Handlers) GetBlog(w http.ResponseWriter, r *http.Request) {
	blog, err := db.GetBlog(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *Handlers) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteBlog(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
