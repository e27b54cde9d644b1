package engines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"metasearch/search"
)

var errLetaLayout = errors.New("unexpected leta payload layout")

// MullvadLeta proxies brave or google through leta.mullvad.net. Results come
// as a sveltekit data table where values reference other entries by index.
type MullvadLeta struct {
	backend string
}

func NewMullvadLetaBrave(search.HTTPClient) search.Engine {
	return &MullvadLeta{backend: "brave"}
}

func NewMullvadLetaGoogle(search.HTTPClient) search.Engine {
	return &MullvadLeta{backend: "google"}
}

func (m *MullvadLeta) Info() search.Info {
	return search.Info{Name: "mullvad_" + m.backend, Category: search.CategoryText, Provider: m.backend}
}

func (m *MullvadLeta) BuildRequest(_ context.Context, q search.Query) (*search.Request, error) {
	params := url.Values{
		"q":                       {q.Text},
		"engine":                  {m.backend},
		"x-sveltekit-invalidated": {"001"},
	}
	if country := q.Country(); country != "" {
		params.Set("country", country)
	}
	if lang := q.Lang(); lang != "" {
		if lang == "zh" {
			lang = "zh-hans"
		}
		params.Set("lang", lang)
	}
	if q.TimeLimit != "" {
		params.Set("lastUpdated", q.TimeLimit)
	}
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	return &search.Request{
		Method: http.MethodGet,
		URL:    "https://leta.mullvad.net/search/__data.json",
		Params: params,
	}, nil
}

type letaTable []json.RawMessage

func (t letaTable) at(i int, v any) error {
	if i < 0 || i >= len(t) {
		return fmt.Errorf("%w: index %d out of range", errLetaLayout, i)
	}
	if err := json.Unmarshal(t[i], v); err != nil {
		return fmt.Errorf("%w: entry %d: %w", errLetaLayout, i, err)
	}
	return nil
}

func (t letaTable) str(i int) string {
	var s string
	if err := t.at(i, &s); err != nil {
		return ""
	}
	return s
}

func (m *MullvadLeta) Parse(body []byte) ([]search.Record, error) {
	var payload struct {
		Nodes []struct {
			Data letaTable `json:"data"`
		} `json:"nodes"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Nodes) < 3 {
		return nil, fmt.Errorf("%w: %d nodes", errLetaLayout, len(payload.Nodes))
	}
	data := payload.Nodes[2].Data

	var root struct {
		Items int `json:"items"`
	}
	if err := data.at(0, &root); err != nil {
		return nil, err
	}
	var pointers []int
	if err := data.at(root.Items, &pointers); err != nil {
		return nil, err
	}

	records := make([]search.Record, 0, len(pointers))
	for _, ptr := range pointers {
		var item struct {
			Title   int `json:"title"`
			Link    int `json:"link"`
			Snippet int `json:"snippet"`
		}
		if err := data.at(ptr, &item); err != nil {
			return nil, err
		}
		records = append(records, search.TextResult{
			Title: data.str(item.Title),
			Href:  data.str(item.Link),
			Body:  data.str(item.Snippet),
		})
	}
	return records, nil
}
