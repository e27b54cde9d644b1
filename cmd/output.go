package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"metasearch/search"
)

var fieldOrder = map[search.Category][]string{
	search.CategoryText:   {"title", "href", "body"},
	search.CategoryImages: {"title", "image", "thumbnail", "url", "height", "width", "source"},
	search.CategoryNews:   {"date", "title", "body", "url", "image", "source"},
	search.CategoryVideos: {
		"title", "content", "description", "duration", "embed_html", "embed_url",
		"image_token", "images", "provider", "published", "publisher", "statistics", "uploader",
	},
}

func printRecords(w io.Writer, category search.Category, records []search.Record) error {
	fields := fieldOrder[category]
	for i, r := range records {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, strings.Repeat("=", 60)); err != nil {
			return err
		}
		m := r.Map()
		for _, k := range fields {
			v := cell(m[k])
			if v == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "%-12s %s\n", k+":", v); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, records []search.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, category search.Category, records []search.Record) error {
	fields := fieldOrder[category]
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		m := r.Map()
		row := make([]string, len(fields))
		for i, k := range fields {
			row[i] = cell(m[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// cell renders a record value; nested maps are written as JSON.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		if x == 0 {
			return ""
		}
		return fmt.Sprint(x)
	case map[string]string, map[string]int:
		if b, err := json.Marshal(x); err == nil && string(b) != "null" && string(b) != "{}" {
			return string(b)
		}
		return ""
	}
	return fmt.Sprint(v)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func outputFileName(category search.Category, query, ext string) string {
	q := strings.Trim(unsafeFileChars.ReplaceAllString(query, "_"), "_")
	return fmt.Sprintf("%s_%s_%s.%s", category, q, time.Now().Format("20060102_150405"), ext)
}
