package engines

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"metasearch/search"
)

const (
	arcIDTTL      = time.Hour
	arcIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"
)

// Google uses the async results endpoint. The arc_id token is random and is
// regenerated once an hour.
type Google struct {
	tokens *TokenCache
}

func NewGoogle(search.HTTPClient) search.Engine {
	return &Google{tokens: NewTokenCache(arcIDTTL)}
}

func (g *Google) Info() search.Info {
	return search.Info{Name: "google", Category: search.CategoryText, Provider: "google"}
}

var googleSafeSearch = map[string]string{"on": "2", "moderate": "1", "off": "0"}

func (g *Google) BuildRequest(ctx context.Context, q search.Query) (*search.Request, error) {
	arcID, err := g.tokens.Get(ctx, "arc_id", func(context.Context) (string, error) {
		return randomString(arcIDAlphabet, 23), nil
	})
	if err != nil {
		return nil, err
	}

	start := (q.Page - 1) * 10
	if start < 0 {
		start = 0
	}
	country := strings.ToUpper(q.Country())
	params := url.Values{
		"q":       {q.Text},
		"filter":  {googleSafeSearch[q.SafeSearch]},
		"start":   {strconv.Itoa(start)},
		"asearch": {"arc"},
		"async":   {fmt.Sprintf("arc_id:srp_%s_1%02d,use_ac:true,_fmt:prog", arcID, start)},
		"ie":      {"UTF-8"},
		"oe":      {"UTF-8"},
		"hl":      {q.Lang() + "-" + country},
		"lr":      {"lang_" + q.Lang()},
		"cr":      {"country" + country},
	}
	if tbs := googleTimeFilter(q); tbs != "" {
		params.Set("tbs", tbs)
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://www.google.com/search",
		Params: params,
	}, nil
}

func googleTimeFilter(q search.Query) string {
	if q.TimeLimit == "" {
		return ""
	}
	start, end, ok := q.DateRange()
	if !ok {
		return "qdr:" + q.TimeLimit
	}
	return fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s", usDate(start), usDate(end))
}

// usDate turns YYYY-MM-DD into MM/DD/YYYY.
func usDate(d string) string {
	parts := strings.Split(d, "-")
	if len(parts) != 3 {
		return d
	}
	return parts[1] + "/" + parts[2] + "/" + parts[0]
}

func (g *Google) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "div[data-snc]",
		title: "h3",
		href:  "a:has(h3)",
		body:  "div[data-sncf^='1']",
	})
}

// PostProcess unwraps /url?q= links and drops anything that is not an
// absolute http(s) link.
func (g *Google) PostProcess(_ context.Context, records []search.Record) []search.Record {
	out := make([]search.Record, 0, len(records))
	for _, r := range records {
		tr, ok := r.(search.TextResult)
		if !ok {
			continue
		}
		if strings.HasPrefix(tr.Href, "/url?") {
			if u, err := url.Parse(tr.Href); err == nil {
				tr.Href = u.Query().Get("q")
			}
		}
		if !strings.HasPrefix(tr.Href, "http://") && !strings.HasPrefix(tr.Href, "https://") {
			continue
		}
		out = append(out, tr)
	}
	return out
}

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
