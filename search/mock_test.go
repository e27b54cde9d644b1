package search

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

type stubClient struct {
	status int
}

func (c stubClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{StatusCode: status}, nil
}

type mockEngine struct {
	info    Info
	records []Record
	err     error
	delay   time.Duration

	calls  *atomic.Int32
	active *atomic.Int32
	peak   *atomic.Int32
}

func newMock(name, provider string, records ...Record) *mockEngine {
	return &mockEngine{
		info:    Info{Name: name, Category: CategoryText, Provider: provider},
		records: records,
		calls:   new(atomic.Int32),
		active:  new(atomic.Int32),
		peak:    new(atomic.Int32),
	}
}

func (m *mockEngine) Info() Info { return m.info }

func (m *mockEngine) BuildRequest(ctx context.Context, q Query) (*Request, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &Request{Method: http.MethodGet, URL: "https://" + m.info.Name + ".test/search"}, nil
}

func (m *mockEngine) Parse(body []byte) ([]Record, error) {
	return m.records, nil
}

// constructor always hands out the same engine so tests can inspect it.
func (m *mockEngine) constructor() Constructor {
	return func(HTTPClient) Engine { return m }
}

func texts(hrefs ...string) []Record {
	out := make([]Record, len(hrefs))
	for i, h := range hrefs {
		out[i] = TextResult{Title: "title " + h, Href: h, Body: "body " + h}
	}
	return out
}

func registryOf(category Category, engines ...*mockEngine) *Registry {
	reg := NewRegistry()
	for _, e := range engines {
		e.info.Category = category
		reg.Register(category, e.info.Name, e.constructor())
	}
	return reg
}

func newTestSession(reg *Registry, opts ...SessionOption) *Session {
	s := NewSession(reg, stubClient{}, opts...)
	s.shuffle = func([]string) {}
	return s
}
