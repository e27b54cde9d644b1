package search

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultRegion     = "us-en"
	DefaultSafeSearch = "moderate"
	DefaultMaxResults = 10
)

// Options are the category independent search parameters.
type Options struct {
	Region     string
	SafeSearch string
	// TimeLimit is one of d, w, m, y or a YYYY-MM-DD..YYYY-MM-DD range.
	TimeLimit string
	Page      int
	// MaxResults of 0 means DefaultMaxResults, a negative value means no limit.
	MaxResults int
	// Backends lists backend names. Empty, "auto" and "all" select every
	// registered backend.
	Backends []string
}

type ImageFilters struct {
	Size    string // Small, Medium, Large, Wallpaper
	Color   string // color, Monochrome, Red, Orange, ...
	Type    string // photo, clipart, gif, transparent, line
	Layout  string // Square, Tall, Wide
	License string // any, Public, Share, ShareCommercially, Modify, ModifyCommercially
}

type VideoFilters struct {
	Resolution string // high, standart
	Duration   string // short, medium, long
	License    string // creativeCommon, youtube
}

type ImagesOptions struct {
	Options
	Filters ImageFilters
}

type VideosOptions struct {
	Options
	Filters VideoFilters
}

// Query is the request scoped input handed to an engine.
type Query struct {
	Text       string
	Region     string
	SafeSearch string
	TimeLimit  string
	Page       int
	Images     ImageFilters
	Videos     VideoFilters
}

// Country and Lang split the region ("us-en") into its parts.
func (q Query) Country() string {
	country, _, _ := strings.Cut(q.Region, "-")
	return country
}

func (q Query) Lang() string {
	_, lang, _ := strings.Cut(q.Region, "-")
	return lang
}

var dateRangePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.\.(\d{4}-\d{2}-\d{2})$`)

// DateRange returns the bounds of a custom YYYY-MM-DD..YYYY-MM-DD time limit.
func (q Query) DateRange() (start, end string, ok bool) {
	m := dateRangePattern.FindStringSubmatch(q.TimeLimit)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (o Options) withDefaults() Options {
	o.Region = strings.ToLower(strings.TrimSpace(o.Region))
	if o.Region == "" {
		o.Region = DefaultRegion
	}
	o.SafeSearch = strings.ToLower(strings.TrimSpace(o.SafeSearch))
	if o.SafeSearch == "" {
		o.SafeSearch = DefaultSafeSearch
	}
	o.TimeLimit = strings.TrimSpace(o.TimeLimit)
	if o.Page < 1 {
		o.Page = 1
	}
	if o.MaxResults == 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

func (o Options) validate() error {
	if country, lang, ok := strings.Cut(o.Region, "-"); !ok || country == "" || lang == "" {
		return fmt.Errorf("%w: region %q, expected <country>-<lang>", ErrInvalidOption, o.Region)
	}
	switch o.SafeSearch {
	case "on", "moderate", "off":
	default:
		return fmt.Errorf("%w: safesearch %q", ErrInvalidOption, o.SafeSearch)
	}
	switch o.TimeLimit {
	case "", "d", "w", "m", "y":
	default:
		if !dateRangePattern.MatchString(o.TimeLimit) {
			return fmt.Errorf("%w: timelimit %q", ErrInvalidOption, o.TimeLimit)
		}
	}
	return nil
}

func (o Options) query(text string) Query {
	return Query{
		Text:       text,
		Region:     o.Region,
		SafeSearch: o.SafeSearch,
		TimeLimit:  o.TimeLimit,
		Page:       o.Page,
	}
}

// ParseBackends splits comma separated backend lists, e.g. from a CLI flag.
func ParseBackends(values ...string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
