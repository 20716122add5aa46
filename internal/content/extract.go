// Package content turns uploaded blog files into Blog records.
package content

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Extract builds a Blog from an uploaded file. Markdown may carry YAML front
// matter; HTML is reduced to its readable text.
func Extract(filename string, raw []byte) (*models.Blog, error) {
	if !utf8.Valid(raw) {
		return nil, apperr.Validation("blog %q is not valid UTF-8", filename)
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	var blog *models.Blog
	var err error
	if isHTML(filename, text) {
		blog, err = fromHTML(text)
	} else {
		blog, err = fromMarkdown(text)
	}
	if err != nil {
		return nil, err
	}

	blog.Content = normalize(blog.Content)
	if blog.Content == "" {
		return nil, apperr.Validation("blog %q has no content", filename)
	}
	if blog.Title == "" {
		blog.Title = titleFromFilename(filename)
	}
	return blog, nil
}

func isHTML(filename, text string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	}
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

func fromMarkdown(text string) (*models.Blog, error) {
	blog := &models.Blog{Tags: []string{}}
	body := text
	if strings.HasPrefix(text, "---\n") {
		rest := text[len("---\n"):]
		end := strings.Index(rest, "\n---")
		if end >= 0 {
			var fm frontMatter
			if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
				return nil, apperr.Validation("front matter: %v", err)
			}
			blog.Title = strings.TrimSpace(fm.Title)
			blog.Summary = strings.TrimSpace(fm.Summary)
			if fm.Tags != nil {
				blog.Tags = fm.Tags
			}
			body = rest[end+len("\n---"):]
			body = strings.TrimPrefix(body, "-")
		}
	}
	blog.Content = body
	return blog, nil
}

func fromHTML(text string) (*models.Blog, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, apperr.Validation("parse html: %v", err)
	}
	doc.Find("script, style, nav, footer, header").Remove()

	blog := &models.Blog{Tags: []string{}}
	blog.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if blog.Title == "" {
		blog.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		blog.Summary = strings.TrimSpace(desc)
	}
	if keywords, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				blog.Tags = append(blog.Tags, k)
			}
		}
	}

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	var paragraphs []string
	root.Find("h1, h2, h3, h4, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		// nested matches are already covered by their parent
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	if len(paragraphs) == 0 {
		paragraphs = append(paragraphs, strings.Join(strings.Fields(root.Text()), " "))
	}
	blog.Content = strings.Join(paragraphs, "\n\n")
	return blog, nil
}

func normalize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func titleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
	if stem == "" || stem == "." {
		return "Untitled"
	}
	return stem
}
