package search

import (
	"strconv"

	"metasearch/text"
)

// Record is a single normalized search result. The concrete types below are
// the only implementations.
type Record interface {
	Category() Category
	// Field returns the string value of a public field name (href, image,
	// url, embed_url, ...), or "" when the record has no such field.
	Field(name string) string
	// Snippet is the descriptive text compared when two duplicates merge.
	Snippet() string
	Map() map[string]any
	normalized() Record
}

type TextResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

func (r TextResult) Category() Category { return CategoryText }
func (r TextResult) Snippet() string { return r.Body }

func (r TextResult) Field(name string) string {
	switch name {
	case "title":
		return r.Title
	case "href":
		return r.Href
	case "body":
		return r.Body
	}
	return ""
}

func (r TextResult) Map() map[string]any {
	return map[string]any{"title": r.Title, "href": r.Href, "body": r.Body}
}

func (r TextResult) normalized() Record {
	return TextResult{
		Title: text.Normalize(r.Title),
		Href:  text.NormalizeURL(r.Href),
		Body:  text.Normalize(r.Body),
	}
}

type ImagesResult struct {
	Title     string `json:"title"`
	Image     string `json:"image"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	Source    string `json:"source"`
}

func (r ImagesResult) Category() Category { return CategoryImages }
func (r ImagesResult) Snippet() string { return r.Title }

func (r ImagesResult) Field(name string) string {
	switch name {
	case "title":
		return r.Title
	case "image":
		return r.Image
	case "thumbnail":
		return r.Thumbnail
	case "url":
		return r.URL
	case "height":
		return strconv.Itoa(r.Height)
	case "width":
		return strconv.Itoa(r.Width)
	case "source":
		return r.Source
	}
	return ""
}

func (r ImagesResult) Map() map[string]any {
	return map[string]any{
		"title":     r.Title,
		"image":     r.Image,
		"thumbnail": r.Thumbnail,
		"url":       r.URL,
		"height":    r.Height,
		"width":     r.Width,
		"source":    r.Source,
	}
}

func (r ImagesResult) normalized() Record {
	r.Title = text.Normalize(r.Title)
	r.Image = text.NormalizeURL(r.Image)
	r.Thumbnail = text.NormalizeURL(r.Thumbnail)
	r.URL = text.NormalizeURL(r.URL)
	r.Source = text.Normalize(r.Source)
	return r
}

type NewsResult struct {
	Date   string `json:"date"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Image  string `json:"image"`
	Source string `json:"source"`
}

func (r NewsResult) Category() Category { return CategoryNews }
func (r NewsResult) Snippet() string { return r.Body }

func (r NewsResult) Field(name string) string {
	switch name {
	case "date":
		return r.Date
	case "title":
		return r.Title
	case "body":
		return r.Body
	case "url":
		return r.URL
	case "image":
		return r.Image
	case "source":
		return r.Source
	}
	return ""
}

func (r NewsResult) Map() map[string]any {
	return map[string]any{
		"date":   r.Date,
		"title":  r.Title,
		"body":   r.Body,
		"url":    r.URL,
		"image":  r.Image,
		"source": r.Source,
	}
}

func (r NewsResult) normalized() Record {
	r.Title = text.Normalize(r.Title)
	r.Body = text.Normalize(r.Body)
	r.URL = text.NormalizeURL(r.URL)
	r.Image = text.NormalizeURL(r.Image)
	r.Source = text.Normalize(r.Source)
	return r
}

type VideosResult struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Description string            `json:"description"`
	Duration    string            `json:"duration"`
	EmbedHTML   string            `json:"embed_html"`
	EmbedURL    string            `json:"embed_url"`
	ImageToken  string            `json:"image_token"`
	Images      map[string]string `json:"images"`
	Provider    string            `json:"provider"`
	Published   string            `json:"published"`
	Publisher   string            `json:"publisher"`
	Statistics  map[string]int    `json:"statistics"`
	Uploader    string            `json:"uploader"`
}

func (r VideosResult) Category() Category { return CategoryVideos }
func (r VideosResult) Snippet() string { return r.Description }

func (r VideosResult) Field(name string) string {
	switch name {
	case "title":
		return r.Title
	case "content":
		return r.Content
	case "description":
		return r.Description
	case "duration":
		return r.Duration
	case "embed_html":
		return r.EmbedHTML
	case "embed_url":
		return r.EmbedURL
	case "image_token":
		return r.ImageToken
	case "provider":
		return r.Provider
	case "published":
		return r.Published
	case "publisher":
		return r.Publisher
	case "uploader":
		return r.Uploader
	}
	return ""
}

func (r VideosResult) Map() map[string]any {
	return map[string]any{
		"title":       r.Title,
		"content":     r.Content,
		"description": r.Description,
		"duration":    r.Duration,
		"embed_html":  r.EmbedHTML,
		"embed_url":   r.EmbedURL,
		"image_token": r.ImageToken,
		"images":      r.Images,
		"provider":    r.Provider,
		"published":   r.Published,
		"publisher":   r.Publisher,
		"statistics":  r.Statistics,
		"uploader":    r.Uploader,
	}
}

func (r VideosResult) normalized() Record {
	r.Title = text.Normalize(r.Title)
	r.Content = text.NormalizeURL(r.Content)
	r.Description = text.Normalize(r.Description)
	r.EmbedURL = text.NormalizeURL(r.EmbedURL)
	r.Provider = text.Normalize(r.Provider)
	r.Publisher = text.Normalize(r.Publisher)
	r.Uploader = text.Normalize(r.Uploader)
	if len(r.Images) > 0 {
		images := make(map[string]string, len(r.Images))
		for k, v := range r.Images {
			images[k] = text.NormalizeURL(v)
		}
		r.Images = images
	}
	return r
}
