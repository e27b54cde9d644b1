package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"metasearch/search"
)

const vqdTTL = 10 * time.Minute

var errNoVQD = errors.New("could not extract vqd")

// DuckDuckGo queries the html frontend. It is registered but disabled until
// the upstream rate limiting settles, so only explicit requests reach it.
type DuckDuckGo struct{}

func NewDuckDuckGo(search.HTTPClient) search.Engine {
	return &DuckDuckGo{}
}

func (d *DuckDuckGo) Info() search.Info {
	return search.Info{Name: "duckduckgo", Category: search.CategoryText, Provider: "bing", Disabled: true}
}

func (d *DuckDuckGo) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	form := url.Values{"q": {q.Text}, "b": {""}, "l": {q.Region}}
	if q.Page > 1 {
		form.Set("s", strconv.Itoa(10+(q.Page-2)*15))
	}
	applyDDGTimeLimit(q, form)
	return &search.Request{
		Method: http.MethodPost,
		URL:    "https://html.duckduckgo.com/html/",
		Form:   form,
	}, nil
}

func (d *DuckDuckGo) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "div[class*='body']",
		title: "h2",
		href:  "h2 a",
		body:  "a.result__snippet",
	})
}

// PostProcess resolves /l/?uddg= redirect links and drops ads.
func (d *DuckDuckGo) PostProcess(_ context.Context, records []search.Record) []search.Record {
	out := make([]search.Record, 0, len(records))
	for _, r := range records {
		tr, ok := r.(search.TextResult)
		if !ok {
			continue
		}
		if strings.Contains(tr.Href, "duckduckgo.com/y.js") {
			continue
		}
		tr.Href = unwrapDDGRedirect(tr.Href)
		out = append(out, tr)
	}
	return out
}

func unwrapDDGRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Host, "duckduckgo.com") || u.Path != "/l/" {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// applyDDGTimeLimit sets df for d/w/m/y and turns custom ranges into
// after:/before: query operators.
func applyDDGTimeLimit(q search.Query, values url.Values) {
	if q.TimeLimit == "" {
		return
	}
	if start, end, ok := q.DateRange(); ok {
		values.Set("q", fmt.Sprintf("%s after:%s before:%s", values.Get("q"), start, end))
		return
	}
	values.Set("df", q.TimeLimit)
}

// vqdSource fetches and caches the per query vqd token the json endpoints
// require.
type vqdSource struct {
	client search.HTTPClient
	cache  *TokenCache
}

func newVQDSource(client search.HTTPClient) vqdSource {
	return vqdSource{client: client, cache: NewTokenCache(vqdTTL)}
}

func (v vqdSource) get(ctx context.Context, query string) (string, error) {
	return v.cache.Get(ctx, query, func(ctx context.Context) (string, error) {
		resp, err := v.client.Do(ctx, &search.Request{
			Method: http.MethodGet,
			URL:    "https://duckduckgo.com",
			Params: url.Values{"q": {query}},
		})
		if err != nil {
			return "", fmt.Errorf("failed to fetch vqd: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to fetch vqd: status %d", resp.StatusCode)
		}
		return extractVQD(resp.Body, query)
	})
}

var vqdPatterns = []struct{ open, close []byte }{
	{[]byte(`vqd="`), []byte(`"`)},
	{[]byte(`vqd=`), []byte(`&`)},
	{[]byte(`vqd='`), []byte(`'`)},
}

func extractVQD(body []byte, query string) (string, error) {
	for _, p := range vqdPatterns {
		i := bytes.Index(body, p.open)
		if i < 0 {
			continue
		}
		rest := body[i+len(p.open):]
		j := bytes.Index(rest, p.close)
		if j <= 0 {
			continue
		}
		return string(rest[:j]), nil
	}
	return "", fmt.Errorf("%w for query %q", errNoVQD, query)
}

func ddgSafeSearch(q search.Query, levels map[string]string) string {
	if v, ok := levels[q.SafeSearch]; ok {
		return v
	}
	return levels[search.DefaultSafeSearch]
}
