package engines

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"metasearch/search"
	"metasearch/text"
)

var ddgReferer = http.Header{"Referer": {"https://duckduckgo.com/"}}

// DuckDuckGoNews, DuckDuckGoImages and DuckDuckGoVideos use the json
// endpoints, each request carrying a vqd token fetched for the query.
type DuckDuckGoNews struct {
	vqd vqdSource
}

func NewDuckDuckGoNews(client search.HTTPClient) search.Engine {
	return &DuckDuckGoNews{vqd: newVQDSource(client)}
}

func (d *DuckDuckGoNews) Info() search.Info {
	return search.Info{Name: "duckduckgo", Category: search.CategoryNews, Provider: "bing"}
}

func (d *DuckDuckGoNews) BuildRequest(ctx context.Context, q search.Query) (*search.Request, error) {
	vqd, err := d.vqd.get(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"l":     {q.Region},
		"o":     {"json"},
		"noamp": {"1"},
		"q":     {q.Text},
		"vqd":   {vqd},
		"p":     {ddgSafeSearch(q, map[string]string{"on": "1", "moderate": "-1", "off": "-2"})},
	}
	applyDDGTimeLimit(q, params)
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*30))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://duckduckgo.com/news.js",
		Params: params,
		Header: ddgReferer,
	}, nil
}

type ddgNewsItem struct {
	Date    int64  `json:"date"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
	Image   string `json:"image"`
	Source  string `json:"source"`
}

func (d *DuckDuckGoNews) Parse(body []byte) ([]search.Record, error) {
	var data struct {
		Results []ddgNewsItem `json:"results"`
	}
	if err := decodeJSON(body, &data); err != nil {
		return nil, err
	}

	records := make([]search.Record, 0, len(data.Results))
	for _, item := range data.Results {
		var date string
		if item.Date > 0 {
			date = text.ISOTime(item.Date)
		}
		records = append(records, search.NewsResult{
			Date:   date,
			Title:  item.Title,
			Body:   item.Excerpt,
			URL:    item.URL,
			Image:  item.Image,
			Source: item.Source,
		})
	}
	return records, nil
}

type DuckDuckGoImages struct {
	vqd vqdSource
}

func NewDuckDuckGoImages(client search.HTTPClient) search.Engine {
	return &DuckDuckGoImages{vqd: newVQDSource(client)}
}

func (d *DuckDuckGoImages) Info() search.Info {
	return search.Info{Name: "duckduckgo", Category: search.CategoryImages, Provider: "bing"}
}

var ddgImageTimeLimits = map[string]string{"d": "Day", "w": "Week", "m": "Month", "y": "Year"}

func (d *DuckDuckGoImages) BuildRequest(ctx context.Context, q search.Query) (*search.Request, error) {
	vqd, err := d.vqd.get(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	f := q.Images
	filters := []string{
		"time:" + ddgImageTimeLimits[q.TimeLimit],
		"size:" + f.Size,
		"color:" + f.Color,
		"type:" + f.Type,
		"layout:" + f.Layout,
		"license:" + f.License,
	}
	params := url.Values{
		"l":   {q.Region},
		"o":   {"json"},
		"q":   {q.Text},
		"vqd": {vqd},
		"f":   {strings.Join(filters, ",")},
		"p":   {ddgSafeSearch(q, map[string]string{"on": "1", "moderate": "1", "off": "-1"})},
	}
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*100))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://duckduckgo.com/i.js",
		Params: params,
		Header: ddgReferer,
	}, nil
}

type ddgImageItem struct {
	Title     string `json:"title"`
	Image     string `json:"image"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	Source    string `json:"source"`
}

func (d *DuckDuckGoImages) Parse(body []byte) ([]search.Record, error) {
	var data struct {
		Results []ddgImageItem `json:"results"`
	}
	if err := decodeJSON(body, &data); err != nil {
		return nil, err
	}

	records := make([]search.Record, 0, len(data.Results))
	for _, item := range data.Results {
		records = append(records, search.ImagesResult(item))
	}
	return records, nil
}

type DuckDuckGoVideos struct {
	vqd vqdSource
}

func NewDuckDuckGoVideos(client search.HTTPClient) search.Engine {
	return &DuckDuckGoVideos{vqd: newVQDSource(client)}
}

func (d *DuckDuckGoVideos) Info() search.Info {
	return search.Info{Name: "duckduckgo", Category: search.CategoryVideos, Provider: "bing"}
}

func (d *DuckDuckGoVideos) BuildRequest(ctx context.Context, q search.Query) (*search.Request, error) {
	vqd, err := d.vqd.get(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	var published string
	if _, ok := timeLimitDays[q.TimeLimit]; ok && q.TimeLimit != "y" {
		published = q.TimeLimit
	}
	f := q.Videos
	filters := []string{
		"publishedAfter:" + published,
		"videoDefinition:" + f.Resolution,
		"videoDuration:" + f.Duration,
		"videoLicense:" + f.License,
	}
	params := url.Values{
		"l":   {q.Region},
		"o":   {"json"},
		"q":   {q.Text},
		"vqd": {vqd},
		"f":   {strings.Join(filters, ",")},
		"p":   {ddgSafeSearch(q, map[string]string{"on": "1", "moderate": "-1", "off": "-2"})},
	}
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*60))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://duckduckgo.com/v.js",
		Params: params,
		Header: ddgReferer,
	}, nil
}

type ddgVideoItem struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Description string            `json:"description"`
	Duration    string            `json:"duration"`
	EmbedHTML   string            `json:"embed_html"`
	EmbedURL    string            `json:"embed_url"`
	ImageToken  string            `json:"image_token"`
	Images      map[string]string `json:"images"`
	Provider    string            `json:"provider"`
	Published   string            `json:"published"`
	Publisher   string            `json:"publisher"`
	Statistics  map[string]any    `json:"statistics"`
	Uploader    string            `json:"uploader"`
}

func (d *DuckDuckGoVideos) Parse(body []byte) ([]search.Record, error) {
	var data struct {
		Results []ddgVideoItem `json:"results"`
	}
	if err := decodeJSON(body, &data); err != nil {
		return nil, err
	}

	records := make([]search.Record, 0, len(data.Results))
	for _, item := range data.Results {
		records = append(records, search.VideosResult{
			Title:       item.Title,
			Content:     item.Content,
			Description: item.Description,
			Duration:    item.Duration,
			EmbedHTML:   item.EmbedHTML,
			EmbedURL:    item.EmbedURL,
			ImageToken:  item.ImageToken,
			Images:      item.Images,
			Provider:    item.Provider,
			Published:   item.Published,
			Publisher:   item.Publisher,
			Statistics:  statistics(item.Statistics),
			Uploader:    item.Uploader,
		})
	}
	return records, nil
}

// statistics keeps the numeric counters, skipping nulls.
func statistics(raw map[string]any) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				out[k] = i
			}
		}
	}
	return out
}
