package engines

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"metasearch/search"
)

type Bing struct {
	now func() time.Time
}

func NewBing(search.HTTPClient) search.Engine {
	return &Bing{now: time.Now}
}

func (b *Bing) Info() search.Info {
	return search.Info{Name: "bing", Category: search.CategoryText, Provider: "bing"}
}

var bingSafeSearch = map[string]string{"on": "strict", "moderate": "moderate", "off": "off"}

func (b *Bing) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	params := url.Values{
		"q":   {q.Text},
		"pq":  {q.Text},
		"cc":  {strings.ToUpper(q.Country())},
		"mkt": {q.Lang() + "-" + strings.ToUpper(q.Country())},
	}
	if v, ok := bingSafeSearch[q.SafeSearch]; ok {
		params.Set("adlt", v)
	}
	if q.Page > 1 {
		params.Set("first", strconv.Itoa((q.Page-1)*10+1))
	}
	code, err := b.timeFilter(q)
	if err != nil {
		return nil, err
	}
	if code != "" {
		params.Set("filters", fmt.Sprintf("ex1:%q", code))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://www.bing.com/search",
		Params: params,
	}, nil
}

// timeFilter returns the ex1 filter code. Bing counts days since the epoch
// for explicit ranges.
func (b *Bing) timeFilter(q search.Query) (string, error) {
	switch q.TimeLimit {
	case "":
		return "", nil
	case "d":
		return "ez1", nil
	case "w":
		return "ez2", nil
	case "m":
		return "ez3", nil
	case "y":
		d := epochDays(b.now())
		return fmt.Sprintf("ez5_%d_%d", d-365, d), nil
	}

	start, end, ok := q.DateRange()
	if !ok {
		return "", nil
	}
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return "", fmt.Errorf("failed to parse start date: %w", err)
	}
	to, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return "", fmt.Errorf("failed to parse end date: %w", err)
	}
	return fmt.Sprintf("ez5_%d_%d", epochDays(from), epochDays(to)), nil
}

func epochDays(t time.Time) int64 {
	return t.Unix() / 86400
}

func (b *Bing) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "li.b_algo",
		title: "h2",
		href:  "h2 a, div[class*='header'] > a",
		body:  "p",
	})
}

// PostProcess resolves bing.com/ck/a tracking links to their target.
func (b *Bing) PostProcess(_ context.Context, records []search.Record) []search.Record {
	out := make([]search.Record, 0, len(records))
	for _, r := range records {
		if tr, ok := r.(search.TextResult); ok {
			tr.Href = unwrapBingRedirect(tr.Href)
			r = tr
		}
		out = append(out, r)
	}
	return out
}

func unwrapBingRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Host, "bing.com") || !strings.HasPrefix(u.Path, "/ck/a") {
		return href
	}
	encoded := u.Query().Get("u")
	if !strings.HasPrefix(encoded, "a1") {
		return href
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded[2:], "="))
	if err != nil {
		return href
	}
	return string(decoded)
}
