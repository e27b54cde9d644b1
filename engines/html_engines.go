package engines

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"metasearch/search"
)

type Mojeek struct{}

func NewMojeek(search.HTTPClient) search.Engine {
	return &Mojeek{}
}

func (m *Mojeek) Info() search.Info {
	return search.Info{Name: "mojeek", Category: search.CategoryText, Provider: "mojeek"}
}

func (m *Mojeek) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	// tlen and dlen cap title and description length, at most 128 and 512
	params := url.Values{
		"q":    {q.Text},
		"arc":  {q.Country()},
		"lb":   {q.Lang()},
		"tlen": {strconv.Itoa(randomDigits(118, 128))},
		"dlen": {strconv.Itoa(randomDigits(502, 512))},
	}
	if q.SafeSearch == "on" {
		params.Set("safe", "1")
	}
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*10+1))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://www.mojeek.com/search",
		Params: params,
	}, nil
}

func (m *Mojeek) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "ul[class*='results'] > li",
		title: "h2",
		href:  "h2 a",
		body:  "p.s",
	})
}

// Yandex has no predefined time filters; only custom ranges are applied,
// as query operators.
type Yandex struct{}

func NewYandex(search.HTTPClient) search.Engine {
	return &Yandex{}
}

func (y *Yandex) Info() search.Info {
	return search.Info{Name: "yandex", Category: search.CategoryText, Provider: "yandex"}
}

func (y *Yandex) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	text := q.Text
	if start, end, ok := q.DateRange(); ok {
		text += " after:" + start + " before:" + end
	}
	params := url.Values{
		"text":     {text},
		"web":      {"1"},
		"searchid": {strconv.Itoa(randomDigits(1000000, 9999999))},
	}
	if q.Page > 1 {
		params.Set("p", strconv.Itoa(q.Page-1))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://yandex.com/search/site/",
		Params: params,
	}, nil
}

func (y *Yandex) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "li[class*='serp-item']",
		title: "h3",
		href:  "h3 a",
		body:  "div[class*='text']",
	})
}

const sogouURL = "https://www.sogou.com/web"

type Sogou struct{}

func NewSogou(search.HTTPClient) search.Engine {
	return &Sogou{}
}

func (s *Sogou) Info() search.Info {
	return search.Info{Name: "sogou", Category: search.CategoryText, Provider: "sogou"}
}

func (s *Sogou) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	params := url.Values{
		"query": {q.Text},
		"ie":    {"utf8"},
		"p":     {"40040100"},
		"dp":    {"1"},
	}
	if days, ok := timeLimitDays[q.TimeLimit]; ok {
		params.Set("tsn", strconv.Itoa(days))
	}
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    sogouURL,
		Params: params,
	}, nil
}

func (s *Sogou) Parse(body []byte) ([]search.Record, error) {
	return extractText(body, selectors{
		items: "div[class*='vrwrap']:not([class*='hint'])",
		title: "h3 a",
		href:  "h3 a",
		body:  "div[class*='space-txt']",
	})
}

// PostProcess resolves relative links against the search page and drops
// items without a title or link.
func (s *Sogou) PostProcess(_ context.Context, records []search.Record) []search.Record {
	base, _ := url.Parse(sogouURL)
	out := make([]search.Record, 0, len(records))
	for _, r := range records {
		tr, ok := r.(search.TextResult)
		if !ok || tr.Href == "" || tr.Title == "" {
			continue
		}
		if ref, err := url.Parse(tr.Href); err == nil {
			tr.Href = base.ResolveReference(ref).String()
		}
		out = append(out, tr)
	}
	return out
}
