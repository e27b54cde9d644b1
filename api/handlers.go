package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"metasearch/search"

	"go.uber.org/zap"
)

// Response is the JSON body of every search endpoint.
type Response[T any] struct {
	Results []T `json:"results"`
}

// TextHandler handles GET /api/text.
func (s *Server) TextHandler(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	results, err := s.session.Text(r.Context(), q, opts)
	respond(s, w, results, err)
}

// NewsHandler handles GET /api/news.
func (s *Server) NewsHandler(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	results, err := s.session.News(r.Context(), q, opts)
	respond(s, w, results, err)
}

// ImagesHandler handles GET /api/images with optional image filters.
func (s *Server) ImagesHandler(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	results, err := s.session.Images(r.Context(), q, search.ImagesOptions{
		Options: opts,
		Filters: search.ImageFilters{
			Size:    params.Get("size"),
			Color:   params.Get("color"),
			Type:    params.Get("type_image"),
			Layout:  params.Get("layout"),
			License: params.Get("license_image"),
		},
	})
	respond(s, w, results, err)
}

// VideosHandler handles GET /api/videos with optional video filters.
func (s *Server) VideosHandler(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	results, err := s.session.Videos(r.Context(), q, search.VideosOptions{
		Options: opts,
		Filters: search.VideoFilters{
			Resolution: params.Get("resolution"),
			Duration:   params.Get("duration"),
			License:    params.Get("license_videos"),
		},
	})
	respond(s, w, results, err)
}

func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (string, search.Options, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", search.Options{}, false
	}

	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return "", search.Options{}, false
	}

	opts, err := parseOptions(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", search.Options{}, false
	}
	return q, opts, true
}

func parseOptions(params url.Values) (search.Options, error) {
	opts := search.Options{
		Region:     params.Get("region"),
		SafeSearch: params.Get("safesearch"),
		TimeLimit:  params.Get("timelimit"),
		Backends:   search.ParseBackends(params["backend"]...),
	}

	var err error
	if v := params.Get("page"); v != "" {
		if opts.Page, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := params.Get("max_results"); v != "" {
		if opts.MaxResults, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("invalid max_results %q", v)
		}
	}
	return opts, nil
}

func respond[T any](s *Server, w http.ResponseWriter, results []T, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Search failed", zap.Error(err))
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Response[T]{Results: results}); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrInvalidOption),
		errors.Is(err, search.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, search.ErrNoResults):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
