package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hrefsOf(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Field("href")
	}
	return out
}

func TestSearch_ReturnsResults(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1", "https://a.example/2")...)
	s := newTestSession(registryOf(CategoryText, a))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestSearch_EmptyQuery(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1")...)
	s := newTestSession(registryOf(CategoryText, a))

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := s.Search(context.Background(), CategoryText, query, Options{})
		require.ErrorIs(t, err, ErrInvalidQuery)
	}
	assert.Equal(t, int32(0), a.calls.Load())
	assert.Equal(t, 0, s.pool.Len())
}

func TestSearch_UnknownCategory(t *testing.T) {
	s := newTestSession(registryOf(CategoryText, newMock("engine_a", "pa")))

	_, err := s.Search(context.Background(), Category("maps"), "golang", Options{})
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSearch_InvalidOptions(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1")...)
	s := newTestSession(registryOf(CategoryText, a))

	testCases := []struct {
		name string
		opts Options
	}{
		{"SafeSearch", Options{SafeSearch: "strict"}},
		{"Region", Options{Region: "english"}},
		{"TimeLimit", Options{TimeLimit: "q"}},
		{"DateRange", Options{TimeLimit: "2024-01-01..yesterday"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Search(context.Background(), CategoryText, "golang", tc.opts)
			require.ErrorIs(t, err, ErrInvalidOption)
		})
	}
	assert.Equal(t, int32(0), a.calls.Load())
}

func TestSearch_UnknownBackendFallsBackToAuto(t *testing.T) {
	build := func() *Session {
		return newTestSession(registryOf(CategoryText,
			newMock("engine_a", "pa", texts("https://a.example/1")...),
			newMock("engine_b", "pb", texts("https://b.example/1")...),
			newMock("engine_c", "pc", texts("https://c.example/1")...),
		))
	}

	auto, err := build().Search(context.Background(), CategoryText, "golang", Options{Backends: []string{"auto"}})
	require.NoError(t, err)

	fallback, err := build().Search(context.Background(), CategoryText, "golang", Options{Backends: []string{"engine_d"}})
	require.NoError(t, err)

	autoHrefs, fallbackHrefs := hrefsOf(auto), hrefsOf(fallback)
	sort.Strings(autoHrefs)
	sort.Strings(fallbackHrefs)
	assert.Equal(t, autoHrefs, fallbackHrefs)
	assert.Len(t, fallbackHrefs, 3)
}

func TestSearch_ProviderQueriedOnce(t *testing.T) {
	first := newMock("engine_a", "p1", texts("https://a.example/1")...)
	second := newMock("engine_b", "p1", texts("https://b.example/1")...)
	s := newTestSession(registryOf(CategoryText, first, second))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{
		Backends: []string{"engine_a", "engine_b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/1"}, hrefsOf(records))
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestSearch_FailedProviderNotRetried(t *testing.T) {
	first := newMock("engine_a", "p1")
	first.err = errors.New("blocked")
	second := newMock("engine_b", "p1", texts("https://b.example/1")...)
	s := newTestSession(registryOf(CategoryText, first, second))

	_, err := s.Search(context.Background(), CategoryText, "golang", Options{
		Backends: []string{"engine_a", "engine_b"},
	})
	require.ErrorIs(t, err, ErrNoResults)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestSearch_StopsOnceEnoughResults(t *testing.T) {
	engines := []*mockEngine{
		newMock("engine_a", "pa", texts("https://a.example/1")...),
		newMock("engine_b", "pb", texts("https://b.example/1")...),
		newMock("engine_c", "pc", texts("https://c.example/1")...),
		newMock("engine_d", "pd", texts("https://d.example/1")...),
	}
	s := newTestSession(registryOf(CategoryText, engines...))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// ceil(1/10)+1 workers
	maxWorkers := int32(2)
	var total int32
	for _, e := range engines {
		total += e.calls.Load()
	}
	assert.LessOrEqual(t, total, maxWorkers)
	assert.Equal(t, int32(0), engines[2].calls.Load())
	assert.Equal(t, int32(0), engines[3].calls.Load())
}

func TestSearch_AllIsExhaustive(t *testing.T) {
	engines := []*mockEngine{
		newMock("engine_a", "pa", texts("https://a.example/1")...),
		newMock("engine_b", "pb", texts("https://b.example/1")...),
		newMock("engine_c", "pc", texts("https://c.example/1")...),
	}
	s := newTestSession(registryOf(CategoryText, engines...))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{
		MaxResults: 1,
		Backends:   []string{"all"},
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	for _, e := range engines {
		assert.Equal(t, int32(1), e.calls.Load(), e.info.Name)
	}
}

func TestSearch_TerminalErrors(t *testing.T) {
	timeoutErr := fmt.Errorf("failed to make request: %w", context.DeadlineExceeded)
	plainErr := errors.New("parse error")

	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{"Timeout", timeoutErr, ErrTimeout},
		{"NotTimeout", plainErr, ErrNoResults},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newMock("engine_a", "pa")
			a.err = tc.err
			b := newMock("engine_b", "pb")
			b.err = tc.err
			s := newTestSession(registryOf(CategoryText, a, b))

			_, err := s.Search(context.Background(), CategoryText, "golang", Options{})
			require.ErrorIs(t, err, tc.expected)
			require.ErrorIs(t, err, tc.err)

			var engineErr *EngineError
			require.ErrorAs(t, err, &engineErr)
		})
	}
}

func TestSearch_NoEngineReturnedAnything(t *testing.T) {
	s := newTestSession(registryOf(CategoryText, newMock("engine_a", "pa"), newMock("engine_b", "pb")))

	_, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.ErrorIs(t, err, ErrNoResults)
	assert.False(t, IsTimeout(err))
}

func TestSearch_SessionTimeoutBoundsEachCall(t *testing.T) {
	slow := newMock("engine_a", "pa", texts("https://a.example/1")...)
	slow.delay = time.Second
	s := newTestSession(registryOf(CategoryText, slow), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSearch_PartialFailureIsSuccess(t *testing.T) {
	bad := newMock("engine_a", "pa")
	bad.err = errors.New("status 403")
	good := newMock("engine_b", "pb", texts("https://b.example/1")...)
	s := newTestSession(registryOf(CategoryText, bad, good))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example/1"}, hrefsOf(records))
}

func TestSearch_RankedAcrossEngines(t *testing.T) {
	engineA := newMock("engineA", "provider_a", texts(
		"https://a.example/1", "https://shared.example", "https://a.example/2")...)
	engineB := newMock("engineB", "provider_b", texts(
		"https://b.example/1", "https://b.example/2", "https://shared.example")...)
	s := newTestSession(registryOf(CategoryText, engineA, engineB))

	records, err := s.Text(context.Background(), "rust programming", Options{
		MaxResults: 5,
		Backends:   []string{"engineA", "engineB"},
	})
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "https://shared.example", records[0].Href)

	seen := make(map[string]bool)
	for _, r := range records {
		assert.False(t, seen[r.Href], "duplicate %s", r.Href)
		seen[r.Href] = true
	}
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1", "https://a.example/2", "https://a.example/3")...)
	s := newTestSession(registryOf(CategoryText, a))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.Search(context.Background(), CategoryText, "golang", Options{MaxResults: -1})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSearch_ReferenceBackendAlwaysQueried(t *testing.T) {
	ref := newMock("wiki", "wiki", texts("https://wiki.example/Rust")...)
	a := newMock("engine_a", "pa", texts("https://a.example/1")...)
	reg := registryOf(CategoryText, ref, a).SetReference(CategoryText, "wiki")
	s := newTestSession(reg)

	records, err := s.Search(context.Background(), CategoryText, "rust", Options{Backends: []string{"engine_a"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://wiki.example/Rust", "https://a.example/1"}, hrefsOf(records))
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestSearch_DisabledSkippedByAuto(t *testing.T) {
	disabled := newMock("engine_a", "pa", texts("https://a.example/1")...)
	disabled.info.Disabled = true
	enabled := newMock("engine_b", "pb", texts("https://b.example/1")...)
	s := newTestSession(registryOf(CategoryText, disabled, enabled))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example/1"}, hrefsOf(records))
	assert.Equal(t, int32(0), disabled.calls.Load())

	records, err = s.Search(context.Background(), CategoryText, "golang", Options{Backends: []string{"engine_a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/1"}, hrefsOf(records))
}

func TestSearch_DropsRecordsWithoutIdentity(t *testing.T) {
	a := newMock("engine_a", "pa", TextResult{Title: "no link"}, TextResult{Href: "https://a.example/1"})
	s := newTestSession(registryOf(CategoryText, a))

	records, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/1"}, hrefsOf(records))
}

func TestSearch_NormalizesRecords(t *testing.T) {
	a := newMock("engine_a", "pa", TextResult{
		Title: "Fish &amp;  Chips",
		Href:  "https://a.example/fish%20chips",
		Body:  " crispy\n\tbatter ",
	})
	s := newTestSession(registryOf(CategoryText, a))

	records, err := s.Text(context.Background(), "fish", Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TextResult{
		Title: "Fish & Chips",
		Href:  "https://a.example/fish+chips",
		Body:  "crispy batter",
	}, records[0])
}

func TestSearch_NonOKStatusIsEngineFailure(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1")...)
	reg := registryOf(CategoryText, a)
	s := NewSession(reg, stubClient{status: http.StatusTooManyRequests})

	_, err := s.Search(context.Background(), CategoryText, "golang", Options{})
	require.ErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), "429")
}

func TestSearch_CancelledContext(t *testing.T) {
	slow := newMock("engine_a", "pa", texts("https://a.example/1")...)
	slow.delay = time.Second
	s := newTestSession(registryOf(CategoryText, slow))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Search(ctx, CategoryText, "golang", Options{})
	require.ErrorIs(t, err, ErrNoResults)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearch_ConcurrentSearchesSerializePerInstance(t *testing.T) {
	a := newMock("engine_a", "pa", texts("https://a.example/1")...)
	a.delay = 5 * time.Millisecond
	s := newTestSession(registryOf(CategoryText, a))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Search(context.Background(), CategoryText, "golang", Options{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), a.calls.Load())
	assert.Equal(t, int32(1), a.peak.Load())
	assert.Equal(t, 1, s.pool.Len())
}

type imageFilterEngine struct {
	*mockEngine
	seen ImageFilters
}

func (e *imageFilterEngine) BuildRequest(ctx context.Context, q Query) (*Request, error) {
	e.seen = q.Images
	return e.mockEngine.BuildRequest(ctx, q)
}

func TestImages_PassesFilters(t *testing.T) {
	base := newMock("engine_a", "pa", ImagesResult{Image: "https://img.example/1.png", Title: "cat"})
	engine := &imageFilterEngine{mockEngine: base}
	reg := NewRegistry().Register(CategoryImages, "engine_a", func(HTTPClient) Engine { return engine })
	s := newTestSession(reg)

	results, err := s.Images(context.Background(), "cat", ImagesOptions{
		Filters: ImageFilters{Size: "Large", Color: "Monochrome"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://img.example/1.png", results[0].Image)
	assert.Equal(t, ImageFilters{Size: "Large", Color: "Monochrome"}, engine.seen)
}

func TestSearch_IdentityPerCategory(t *testing.T) {
	logo := "https://cdn.example/logo.png"
	testCases := []struct {
		name     string
		category Category
		records  []Record
		expected int
	}{
		{
			name:     "NewsSharingImage",
			category: CategoryNews,
			records: []Record{
				NewsResult{Title: "Story one", URL: "https://news.example/1", Image: logo},
				NewsResult{Title: "Story two", URL: "https://news.example/2", Image: logo},
			},
			expected: 2,
		},
		{
			name:     "ImagesSharingPage",
			category: CategoryImages,
			records: []Record{
				ImagesResult{Image: "https://img.example/1.png", URL: "https://page.example"},
				ImagesResult{Image: "https://img.example/2.png", URL: "https://page.example"},
			},
			expected: 2,
		},
		{
			name:     "VideosSharingEmbed",
			category: CategoryVideos,
			records: []Record{
				VideosResult{EmbedURL: "https://video.example/embed/1", Content: "https://video.example/1"},
				VideosResult{EmbedURL: "https://video.example/embed/1", Content: "https://video.example/1?t=10"},
			},
			expected: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newMock("engine_a", "pa", tc.records...)
			s := newTestSession(registryOf(tc.category, a))

			records, err := s.Search(context.Background(), tc.category, "golang", Options{})
			require.NoError(t, err)
			assert.Len(t, records, tc.expected)
		})
	}
}

func TestNews_SharedImageKeepsBothStories(t *testing.T) {
	logo := "https://cdn.example/logo.png"
	a := newMock("engine_a", "pa",
		NewsResult{Title: "Story one", URL: "https://news.example/1", Image: logo},
		NewsResult{Title: "Story two", URL: "https://news.example/2", Image: logo},
	)
	b := newMock("engine_b", "pb",
		NewsResult{Title: "Story two", URL: "https://news.example/2", Image: "https://cdn.example/two.png"},
	)
	s := newTestSession(registryOf(CategoryNews, a, b))

	results, err := s.News(context.Background(), "golang", Options{Backends: []string{"all"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://news.example/2", results[0].URL)
	assert.Equal(t, "https://news.example/1", results[1].URL)
}

func TestSearch_WithIdentityFieldsOverrides(t *testing.T) {
	logo := "https://cdn.example/logo.png"
	a := newMock("engine_a", "pa",
		NewsResult{URL: "https://news.example/1", Image: logo},
		NewsResult{URL: "https://news.example/2", Image: logo},
	)
	s := newTestSession(registryOf(CategoryNews, a), WithIdentityFields("image"))

	records, err := s.Search(context.Background(), CategoryNews, "golang", Options{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
