package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type Category string

const (
	CategoryText   Category = "text"
	CategoryImages Category = "images"
	CategoryNews   Category = "news"
	CategoryVideos Category = "videos"
)

// Info describes a backend. Provider names the upstream service that answers
// the query; several backends may share one provider.
type Info struct {
	Name     string
	Category Category
	Provider string
	Disabled bool
}

func (i Info) provider() string {
	if i.Provider == "" {
		return i.Name
	}
	return i.Provider
}

// Request is what an engine asks the HTTP client to send. Params go into the
// query string, Form is sent as an urlencoded POST body.
type Request struct {
	Method string
	URL    string
	Params url.Values
	Form   url.Values
	Header http.Header
}

type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) Text() string {
	return string(r.Body)
}

// HTTPClient performs a single round trip. Implementations carry the session
// transport configuration (proxy, timeout, TLS verification).
type HTTPClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Engine is the adapter contract every backend implements.
type Engine interface {
	Info() Info
	BuildRequest(ctx context.Context, q Query) (*Request, error)
	Parse(body []byte) ([]Record, error)
}

// PostProcessor is implemented by engines that need to clean up parsed
// records, e.g. resolving redirect links.
type PostProcessor interface {
	PostProcess(ctx context.Context, records []Record) []Record
}

// Constructor creates an engine bound to a session's HTTP client.
type Constructor func(client HTTPClient) Engine

// execute runs one engine call end to end: build, send, parse, post-process
// and normalize.
func execute(ctx context.Context, client HTTPClient, engine Engine, q Query) ([]Record, error) {
	req, err := engine.BuildRequest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", req.URL, resp.StatusCode)
	}

	records, err := engine.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if pp, ok := engine.(PostProcessor); ok {
		records = pp.PostProcess(ctx, records)
	}

	normalized := make([]Record, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		normalized = append(normalized, r.normalized())
	}
	return normalized, nil
}
