package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"metasearch/search"
)

// Wikipedia looks the query up as an article title. The summary endpoint
// gives a short extract which PostProcess replaces with the full intro.
type Wikipedia struct {
	client search.HTTPClient
}

func NewWikipedia(client search.HTTPClient) search.Engine {
	return &Wikipedia{client: client}
}

func (w *Wikipedia) Info() search.Info {
	return search.Info{Name: "wikipedia", Category: search.CategoryText, Provider: "wikipedia"}
}

func (w *Wikipedia) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	lang := strings.ToLower(q.Lang())
	return &search.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1/page/summary/%s", lang, url.PathEscape(q.Text)),
	}, nil
}

type wikipediaSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (w *Wikipedia) Parse(body []byte) ([]search.Record, error) {
	var summary wikipediaSummary
	if err := decodeJSON(body, &summary); err != nil {
		return nil, err
	}
	if summary.Title == "" || summary.ContentURLs.Desktop.Page == "" {
		return nil, nil
	}
	return []search.Record{search.TextResult{
		Title: summary.Title,
		Href:  summary.ContentURLs.Desktop.Page,
		Body:  summary.Extract,
	}}, nil
}

type wikipediaExtracts struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// PostProcess fetches the plain text intro of each article. The summary is
// kept when the second request fails.
func (w *Wikipedia) PostProcess(ctx context.Context, records []search.Record) []search.Record {
	out := make([]search.Record, 0, len(records))
	for _, r := range records {
		tr, ok := r.(search.TextResult)
		if !ok {
			out = append(out, r)
			continue
		}
		if extract, err := w.intro(ctx, tr); err == nil && extract != "" {
			tr.Body = extract
		}
		out = append(out, tr)
	}
	return out
}

func (w *Wikipedia) intro(ctx context.Context, r search.TextResult) (string, error) {
	u, err := url.Parse(r.Href)
	if err != nil {
		return "", fmt.Errorf("failed to parse article url: %w", err)
	}
	lang, _, _ := strings.Cut(u.Host, ".")

	resp, err := w.client.Do(ctx, &search.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang),
		Params: url.Values{
			"action":      {"query"},
			"format":      {"json"},
			"prop":        {"extracts"},
			"titles":      {r.Title},
			"explaintext": {"1"},
			"exintro":     {"1"},
			"redirects":   {"1"},
		},
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extracts returned status %d", resp.StatusCode)
	}

	var data wikipediaExtracts
	if err := decodeJSON(resp.Body, &data); err != nil {
		return "", err
	}
	for _, page := range data.Query.Pages {
		return page.Extract, nil
	}
	return "", nil
}
