package search

import (
	"context"
	"sync"
)

// Instance is a long-lived engine owned by one session. Calls are serialized
// so engine-local state (tokens, cookies) is never used concurrently.
type Instance struct {
	engine Engine
	client HTTPClient
	info   Info
	mu     sync.Mutex
}

// Info describes the wrapped engine.
func (in *Instance) Info() Info {
	return in.info
}

// Engine returns the wrapped engine. Calling it directly bypasses the
// instance lock.
func (in *Instance) Engine() Engine {
	return in.engine
}

// Search runs one complete engine call.
func (in *Instance) Search(ctx context.Context, q Query) ([]Record, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	records, err := execute(ctx, in.client, in.engine, q)
	if err != nil {
		return nil, &EngineError{Engine: in.info.Name, Err: err}
	}
	return records, nil
}

type poolKey struct {
	category Category
	name     string
}

// Pool lazily creates and caches one instance per registered backend.
type Pool struct {
	registry  *Registry
	client    HTTPClient
	mu        sync.Mutex
	instances map[poolKey]*Instance
}

// NewPool creates an empty pool. Engines it builds share client.
func NewPool(registry *Registry, client HTTPClient) *Pool {
	return &Pool{
		registry:  registry,
		client:    client,
		instances: make(map[poolKey]*Instance),
	}
}

// Get returns live instances for names, in the order requested. The first
// request for a backend constructs it; later ones reuse it.
func (p *Pool) Get(category Category, names []string) ([]*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Instance, 0, len(names))
	for _, name := range names {
		key := poolKey{category: category, name: name}
		if in, ok := p.instances[key]; ok {
			out = append(out, in)
			continue
		}

		ctor, err := p.registry.Resolve(category, name)
		if err != nil {
			return nil, err
		}
		engine := ctor(p.client)
		info := engine.Info()
		if info.Name == "" {
			info.Name = name
		}
		if info.Category == "" {
			info.Category = category
		}
		in := &Instance{engine: engine, client: p.client, info: info}
		p.instances[key] = in
		out = append(out, in)
	}
	return out, nil
}

// Len reports how many instances have been created.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}
