// Package download saves the files behind search results (article pages,
// full size images) to a local directory.
package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"metasearch/search"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultThreads = 10
	maxNameLength  = 200
)

// Fetcher streams the body behind a URL into w.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

type Item struct {
	URL  string
	Name string
}

type Stats struct {
	Saved  int
	Failed int
}

// Manager downloads items with a bounded number of concurrent requests.
// Single failures are logged and counted, never fatal.
type Manager struct {
	fetcher Fetcher
	threads int
	logger  *zap.Logger
}

// NewManager creates a manager running at most threads downloads at once.
func NewManager(fetcher Fetcher, threads int, logger *zap.Logger) *Manager {
	if threads <= 0 {
		threads = DefaultThreads
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{fetcher: fetcher, threads: threads, logger: logger}
}

// Items picks the downloadable link of each record: the full image for image
// results, the page link otherwise.
func Items(records []search.Record) []Item {
	var items []Item
	for i, r := range records {
		var link string
		switch r.Category() {
		case search.CategoryImages:
			link = r.Field("image")
		case search.CategoryText:
			link = r.Field("href")
		default:
			link = r.Field("url")
		}
		if link == "" {
			continue
		}
		items = append(items, Item{URL: link, Name: FileName(i+1, link)})
	}
	return items
}

// FileName builds "<n>_<last path segment>" with the query string stripped.
// Long names are cut at a rune boundary.
func FileName(n int, rawURL string) string {
	base := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		base = u.Path
	}
	base = base[strings.LastIndex(base, "/")+1:]
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	base = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(base)

	name := fmt.Sprintf("%d_%s", n, base)
	if len(name) > maxNameLength {
		cut := maxNameLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

// DirName is the default target directory for a category and query.
func DirName(category search.Category, query string, now time.Time) string {
	q := strings.NewReplacer("/", "_", "\\", "_", " ", "").Replace(query)
	return fmt.Sprintf("%s_%s_%s", category, q, now.Format("20060102_150405"))
}

// Run saves items into dir and returns how many were saved and how many
// failed.
func (m *Manager) Run(ctx context.Context, dir string, items []Item) (Stats, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("failed to create download directory: %w", err)
	}

	var saved, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.threads)

	for _, item := range items {
		g.Go(func() error {
			if err := m.fetch(gctx, dir, item); err != nil {
				failed.Add(1)
				m.logger.Debug("Download failed",
					zap.String("url", item.URL),
					zap.Error(err))
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{Saved: int(saved.Load()), Failed: int(failed.Load())}
	m.logger.Info("Downloads finished",
		zap.String("dir", dir),
		zap.Int("saved", stats.Saved),
		zap.Int("failed", stats.Failed))
	return stats, ctx.Err()
}

// fetch streams into a temporary file that is renamed once complete, so a
// failed download leaves nothing behind.
func (m *Manager) fetch(ctx context.Context, dir string, item Item) error {
	f, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()

	_, err = m.fetcher.Fetch(ctx, item.URL, f)
	if err == nil {
		err = f.Chmod(0o644)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write file: %w", cerr)
	}
	if err == nil {
		err = os.Rename(tmp, filepath.Join(dir, item.Name))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
