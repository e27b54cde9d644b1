package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAggregator_RequiresFields(t *testing.T) {
	_, err := NewAggregator[Record](nil)
	require.ErrorIs(t, err, ErrNoIdentityFields)

	agg, err := NewAggregator[Record]([]string{"href"})
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Len())
}

func TestAggregator_IdentityKeyPerCategory(t *testing.T) {
	testCases := []struct {
		name     string
		item     Record
		expected string
		err      error
	}{
		{"TextHref", TextResult{Href: "https://a.example"}, "https://a.example", nil},
		{"TextWithoutHref", TextResult{Title: "only a title"}, "", ErrNoIdentityField},
		{"ImageBeforePage", ImagesResult{Image: "https://img.example/1.png", URL: "https://page.example"}, "https://img.example/1.png", nil},
		{"ImagePageFallback", ImagesResult{URL: "https://page.example"}, "https://page.example", nil},
		{"NewsURLBeforeImage", NewsResult{URL: "https://news.example/1", Image: "https://cdn.example/logo.png"}, "https://news.example/1", nil},
		{"NewsImageFallback", NewsResult{Image: "https://cdn.example/logo.png"}, "https://cdn.example/logo.png", nil},
		{"VideoEmbedURL", VideosResult{EmbedURL: "https://video.example/embed/1", Content: "https://video.example/1"}, "https://video.example/embed/1", nil},
		{"VideoWithoutEmbed", VideosResult{Content: "https://video.example/1"}, "", ErrNoIdentityField},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			agg, err := NewAggregator[Record](IdentityFields[tc.item.Category()])
			require.NoError(t, err)

			key, err := agg.IdentityKey(tc.item)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, key)
		})
	}
}

func TestIdentityFields_CoverEveryCategory(t *testing.T) {
	for _, c := range []Category{CategoryText, CategoryImages, CategoryNews, CategoryVideos} {
		assert.NotEmpty(t, IdentityFields[c], c)
	}
}

func TestAggregator_NewsSharingImageStaySeparate(t *testing.T) {
	agg, err := NewAggregator[NewsResult](IdentityFields[CategoryNews])
	require.NoError(t, err)

	logo := "https://cdn.example/logo.png"
	require.NoError(t, agg.Extend([]NewsResult{
		{Title: "Story one", URL: "https://news.example/1", Image: logo},
		{Title: "Story two", URL: "https://news.example/2", Image: logo},
		{Title: "Story one again", URL: "https://news.example/1", Image: "https://cdn.example/other.png"},
	}))

	assert.Equal(t, 2, agg.Len())
	assert.Equal(t, 2, agg.Count("https://news.example/1"))
	assert.Equal(t, 1, agg.Count("https://news.example/2"))
	assert.Equal(t, 0, agg.Count(logo))
}

func TestAggregator_SameItemCounted(t *testing.T) {
	agg, err := NewAggregator[TextResult]([]string{"href"})
	require.NoError(t, err)

	item := TextResult{Title: "Rust", Href: "https://www.rust-lang.org", Body: "A language"}
	for range 4 {
		require.NoError(t, agg.Append(item))
	}

	assert.Equal(t, 1, agg.Len())
	assert.Equal(t, 4, agg.Count("https://www.rust-lang.org"))
	assert.Equal(t, []TextResult{item}, agg.Rank())
}

func TestAggregator_LongerBodyWins(t *testing.T) {
	agg, err := NewAggregator[TextResult]([]string{"href"})
	require.NoError(t, err)

	short := TextResult{Href: "https://a.example", Body: strings.Repeat("a", 5)}
	long := TextResult{Href: "https://a.example", Body: strings.Repeat("b", 50)}
	shorter := TextResult{Href: "https://a.example", Body: "c"}

	require.NoError(t, agg.Extend([]TextResult{short, long, shorter}))

	ranked := agg.Rank()
	require.Len(t, ranked, 1)
	assert.Equal(t, long.Body, ranked[0].Body)
	assert.Equal(t, 3, agg.Count("https://a.example"))
}

func TestAggregator_RankByCount(t *testing.T) {
	agg, err := NewAggregator[TextResult]([]string{"href"})
	require.NoError(t, err)

	counts := []struct {
		href  string
		times int
	}{
		{"https://three.example", 3},
		{"https://one.example", 1},
		{"https://two.example", 2},
	}
	for _, c := range counts {
		for range c.times {
			require.NoError(t, agg.Append(TextResult{Href: c.href}))
		}
	}

	var hrefs []string
	for _, r := range agg.Rank() {
		hrefs = append(hrefs, r.Href)
	}
	assert.Equal(t, []string{"https://three.example", "https://two.example", "https://one.example"}, hrefs)
}

func TestAggregator_TiesKeepInsertionOrder(t *testing.T) {
	agg, err := NewAggregator[TextResult]([]string{"href"})
	require.NoError(t, err)

	require.NoError(t, agg.Extend([]TextResult{
		{Href: "https://b.example"},
		{Href: "https://a.example"},
		{Href: "https://c.example"},
		{Href: "https://c.example"},
	}))

	ranked := agg.Rank()
	require.Len(t, ranked, 3)
	assert.Equal(t, "https://c.example", ranked[0].Href)
	assert.Equal(t, "https://b.example", ranked[1].Href)
	assert.Equal(t, "https://a.example", ranked[2].Href)
}

func TestAggregator_ExtendStopsAtInvalidItem(t *testing.T) {
	agg, err := NewAggregator[TextResult]([]string{"href"})
	require.NoError(t, err)

	err = agg.Extend([]TextResult{
		{Href: "https://a.example"},
		{Title: "missing href"},
		{Href: "https://b.example"},
	})
	require.ErrorIs(t, err, ErrNoIdentityField)
	assert.Equal(t, 1, agg.Len())
}
