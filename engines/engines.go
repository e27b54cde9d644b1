// Package engines holds the concrete search backends and the default
// registry wiring them to categories.
package engines

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"metasearch/search"

	"github.com/PuerkitoBio/goquery"
)

// Default returns the registry of every built-in backend. Wikipedia is the
// reference backend for text and is queried on every text search.
func Default() *search.Registry {
	return search.NewRegistry().
		Register(search.CategoryText, "wikipedia", NewWikipedia).
		Register(search.CategoryText, "bing", NewBing).
		Register(search.CategoryText, "duckduckgo", NewDuckDuckGo).
		Register(search.CategoryText, "google", NewGoogle).
		Register(search.CategoryText, "mojeek", NewMojeek).
		Register(search.CategoryText, "mullvad_brave", NewMullvadLetaBrave).
		Register(search.CategoryText, "mullvad_google", NewMullvadLetaGoogle).
		Register(search.CategoryText, "sogou", NewSogou).
		Register(search.CategoryText, "yandex", NewYandex).
		Register(search.CategoryImages, "duckduckgo", NewDuckDuckGoImages).
		Register(search.CategoryNews, "duckduckgo", NewDuckDuckGoNews).
		Register(search.CategoryVideos, "duckduckgo", NewDuckDuckGoVideos).
		SetReference(search.CategoryText, "wikipedia")
}

// selectors locate text results in an HTML page. Title, href and body are
// relative to each item.
type selectors struct {
	items string
	title string
	href  string
	body  string
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

func extractText(body []byte, sel selectors) ([]search.Record, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	var records []search.Record
	doc.Find(sel.items).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find(sel.href).First().Attr("href")
		records = append(records, search.TextResult{
			Title: joinText(s.Find(sel.title)),
			Href:  href,
			Body:  joinText(s.Find(sel.body)),
		})
	})
	return records, nil
}

// joinText concatenates the non blank text of every matched element.
func joinText(s *goquery.Selection) string {
	var parts []string
	s.Each(func(_ int, e *goquery.Selection) {
		if t := strings.TrimSpace(e.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}
	return nil
}

// timeLimitDays maps the predefined time limits to a day count.
var timeLimitDays = map[string]int{"d": 1, "w": 7, "m": 30, "y": 365}

func randomDigits(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}
