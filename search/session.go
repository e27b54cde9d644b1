package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

type providerState int

const (
	providerUnstarted providerState = iota
	providerInFlight
	providerSatisfied
)

// Session fans queries out to registered backends. It owns the engine
// instance pool, so engine state such as tokens lives as long as the session
// and is shared by every search issued through it.
type Session struct {
	registry *Registry
	pool     *Pool
	timeout  time.Duration
	fields   []string
	logger   *zap.Logger
	shuffle  func([]string)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger. A nil logger keeps the no-op default.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds every single engine call. Zero disables the bound.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithIdentityFields replaces the per-category identity fields for every
// category searched through the session.
func WithIdentityFields(fields ...string) SessionOption {
	return func(s *Session) {
		if len(fields) > 0 {
			s.fields = fields
		}
	}
}

// NewSession creates a session with its own engine pool. Every engine built
// by the pool sends its requests through client.
func NewSession(registry *Registry, client HTTPClient, opts ...SessionOption) *Session {
	s := &Session{
		registry: registry,
		pool:     NewPool(registry, client),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		shuffle: func(names []string) {
			rand.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the session resolves backends from.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Search queries the backends of a category and returns the deduplicated
// results ranked by how many backends returned them.
func (s *Session) Search(ctx context.Context, category Category, query string, opts Options) ([]Record, error) {
	return s.search(ctx, category, query, opts, func(*Query) {})
}

// Text searches the text backends.
func (s *Session) Text(ctx context.Context, query string, opts Options) ([]TextResult, error) {
	records, err := s.Search(ctx, CategoryText, query, opts)
	return collect[TextResult](records), err
}

// Images searches the image backends with optional image filters.
func (s *Session) Images(ctx context.Context, query string, opts ImagesOptions) ([]ImagesResult, error) {
	records, err := s.search(ctx, CategoryImages, query, opts.Options, func(q *Query) {
		q.Images = opts.Filters
	})
	return collect[ImagesResult](records), err
}

// News searches the news backends.
func (s *Session) News(ctx context.Context, query string, opts Options) ([]NewsResult, error) {
	records, err := s.Search(ctx, CategoryNews, query, opts)
	return collect[NewsResult](records), err
}

// Videos searches the video backends with optional video filters.
func (s *Session) Videos(ctx context.Context, query string, opts VideosOptions) ([]VideosResult, error) {
	records, err := s.search(ctx, CategoryVideos, query, opts.Options, func(q *Query) {
		q.Videos = opts.Filters
	})
	return collect[VideosResult](records), err
}

func collect[T Record](records []Record) []T {
	if records == nil {
		return nil
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type outcome struct {
	instance *Instance
	records  []Record
	err      error
}

func (s *Session) search(ctx context.Context, category Category, query string, opts Options, filters func(*Query)) ([]Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if !s.registry.Has(category) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	q := opts.query(query)
	filters(&q)

	instances, exhaustive, err := s.resolve(category, opts.Backends)
	if err != nil {
		return nil, err
	}

	fields := s.fields
	if len(fields) == 0 {
		fields = IdentityFields[category]
	}
	agg, err := NewAggregator[Record](fields)
	if err != nil {
		return nil, err
	}

	maxWorkers := len(instances)
	if opts.MaxResults > 0 {
		maxWorkers = min(maxWorkers, (opts.MaxResults+9)/10+1)
	}

	logger := s.logger.With(
		zap.String("search_id", uuid.NewString()),
		zap.String("category", string(category)),
	)
	logger.Debug("Search started",
		zap.String("query", query),
		zap.Strings("engines", instanceNames(instances)),
		zap.Int("max_workers", maxWorkers),
		zap.Int("max_results", opts.MaxResults))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome, len(instances))
	states := make(map[string]providerState)
	var lastErr error
	inFlight, next := 0, 0

loop:
	for {
		for inFlight < maxWorkers && next < len(instances) {
			in := instances[next]
			next++

			provider := in.Info().provider()
			if states[provider] != providerUnstarted {
				logger.Debug("Skipping engine, provider already queried",
					zap.String("engine", in.Info().Name),
					zap.String("provider", provider))
				continue
			}
			states[provider] = providerInFlight
			inFlight++
			go s.dispatch(ctx, in, q, outcomes)
		}

		if inFlight == 0 {
			break
		}

		select {
		case o := <-outcomes:
			inFlight--
			info := o.instance.Info()
			if o.err != nil {
				lastErr = o.err
				logger.Warn("Engine failed",
					zap.String("engine", info.Name),
					zap.Error(o.err))
				continue
			}

			accepted := 0
			for _, r := range o.records {
				if err := agg.Append(r); err != nil {
					logger.Debug("Dropping record", zap.String("engine", info.Name), zap.Error(err))
					continue
				}
				accepted++
			}
			if accepted > 0 {
				states[info.provider()] = providerSatisfied
			}
			logger.Debug("Engine finished",
				zap.String("engine", info.Name),
				zap.Int("records", accepted),
				zap.Int("unique", agg.Len()))

			if !exhaustive && opts.MaxResults > 0 && agg.Len() >= opts.MaxResults {
				break loop
			}
		case <-ctx.Done():
			lastErr = ctx.Err()
			break loop
		}
	}

	if agg.Len() > 0 {
		ranked := agg.Rank()
		if opts.MaxResults > 0 && len(ranked) > opts.MaxResults {
			ranked = ranked[:opts.MaxResults]
		}
		logger.Info("Search completed", zap.Int("results", len(ranked)))
		return ranked, nil
	}

	if IsTimeout(lastErr) {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, lastErr)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResults, lastErr)
	}
	return nil, ErrNoResults
}

func (s *Session) dispatch(ctx context.Context, in *Instance, q Query, outcomes chan<- outcome) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	records, err := in.Search(ctx, q)
	outcomes <- outcome{instance: in, records: records, err: err}
}

// resolve turns the requested backend names into engine instances. Unknown
// names fall back to the full set. The second return value reports whether
// the caller asked for an exhaustive search.
func (s *Session) resolve(category Category, backends []string) ([]*Instance, bool, error) {
	names := ParseBackends(backends...)
	exhaustive := slices.Contains(names, "all")
	auto := len(names) == 0 || exhaustive || slices.Contains(names, "auto")
	if auto {
		names = s.registry.List(category)
		s.shuffle(names)
	}

	if ref, ok := s.registry.Reference(category); ok {
		names = slices.DeleteFunc(names, func(n string) bool { return n == ref })
		names = append([]string{ref}, names...)
	}

	instances, err := s.pool.Get(category, names)
	if err != nil {
		if errors.Is(err, ErrUnknownBackend) && !auto {
			s.logger.Warn("Unknown backend requested, falling back to auto",
				zap.String("category", string(category)),
				zap.Strings("backends", backends),
				zap.Error(err))
			return s.resolve(category, []string{"auto"})
		}
		return nil, false, err
	}

	if auto {
		instances = slices.DeleteFunc(instances, func(in *Instance) bool { return in.Info().Disabled })
	}
	return instances, exhaustive, nil
}

func instanceNames(instances []*Instance) []string {
	names := make([]string, len(instances))
	for i, in := range instances {
		names[i] = in.Info().Name
	}
	return names
}
