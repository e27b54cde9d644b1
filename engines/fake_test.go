package engines

import (
	"context"
	"net/http"
	"sync"

	"metasearch/search"
)

// fakeClient answers by request URL; unknown URLs get a 404.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	requests  []*search.Request
}

func newFakeClient(responses map[string]string) *fakeClient {
	return &fakeClient{responses: responses}
}

func (f *fakeClient) Do(ctx context.Context, req *search.Request) (*search.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	body, ok := f.responses[req.URL]
	if !ok {
		return &search.Response{StatusCode: http.StatusNotFound}, nil
	}
	return &search.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (f *fakeClient) requestsTo(u string) []*search.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*search.Request
	for _, r := range f.requests {
		if r.URL == u {
			out = append(out, r)
		}
	}
	return out
}

func query(text string) search.Query {
	return search.Query{Text: text, Region: "us-en", SafeSearch: "moderate", Page: 1}
}

func textResults(records []search.Record) []search.TextResult {
	out := make([]search.TextResult, 0, len(records))
	for _, r := range records {
		out = append(out, r.(search.TextResult))
	}
	return out
}
