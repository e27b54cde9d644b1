package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"metasearch/download"
	"metasearch/search"

	"github.com/spf13/cobra"
)

type searchFlags struct {
	query      string
	region     string
	safesearch string
	timelimit  string
	maxResults int
	page       int
	backend    string
	output     string

	download    bool
	downloadDir string
	threads     int

	images search.ImageFilters
	videos search.VideoFilters
}

func newSearchCmd(g *globalFlags, category search.Category, short string) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   string(category),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.query == "" && len(args) > 0 {
				f.query = strings.Join(args, " ")
			}

			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := search.Options{
				Region:     firstNonEmpty(f.region, a.cfg.Region),
				SafeSearch: firstNonEmpty(f.safesearch, a.cfg.SafeSearch),
				TimeLimit:  f.timelimit,
				Page:       f.page,
				MaxResults: f.maxResults,
				Backends:   search.ParseBackends(f.backend),
			}
			if !cmd.Flags().Changed("backend") && len(a.cfg.Backends) > 0 {
				opts.Backends = search.ParseBackends(a.cfg.Backends...)
			}

			ctx, cancel := withSearchDeadline(cmd.Context())
			defer cancel()

			var records []search.Record
			switch category {
			case search.CategoryImages:
				var rs []search.ImagesResult
				rs, err = a.session.Images(ctx, f.query, search.ImagesOptions{Options: opts, Filters: f.images})
				records = asRecords(rs)
			case search.CategoryVideos:
				var rs []search.VideosResult
				rs, err = a.session.Videos(ctx, f.query, search.VideosOptions{Options: opts, Filters: f.videos})
				records = asRecords(rs)
			default:
				records, err = a.session.Search(ctx, category, f.query, opts)
			}
			if err != nil {
				return err
			}

			if err := writeOutput(cmd, category, f.query, f.output, records); err != nil {
				return err
			}
			if f.download {
				return downloadResults(cmd, a, category, f, records)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.query, "query", "q", "", "search query")
	flags.StringVarP(&f.region, "region", "r", "", "region as <country>-<lang>, e.g. us-en, de-de")
	flags.StringVarP(&f.safesearch, "safesearch", "s", "", "on, moderate or off")
	flags.StringVarP(&f.timelimit, "timelimit", "t", "", "d, w, m, y or YYYY-MM-DD..YYYY-MM-DD")
	flags.IntVarP(&f.maxResults, "max-results", "m", search.DefaultMaxResults, "maximum number of results, negative for no limit")
	flags.IntVarP(&f.page, "page", "p", 1, "result page")
	flags.StringVarP(&f.backend, "backend", "b", "auto", "comma separated backends, auto or all")
	flags.StringVarP(&f.output, "output", "o", "print", "print, json, csv or a .json/.csv file path")
	flags.BoolVarP(&f.download, "download", "d", false, "download the result files")
	flags.StringVar(&f.downloadDir, "download-dir", "", "download directory, defaults to <category>_<query>_<time>")
	flags.IntVar(&f.threads, "threads", download.DefaultThreads, "concurrent downloads")

	switch category {
	case search.CategoryImages:
		flags.StringVar(&f.images.Size, "size", "", "Small, Medium, Large, Wallpaper")
		flags.StringVar(&f.images.Color, "color", "", "color, Monochrome, Red, Orange, Yellow, Green, Blue, Purple, Pink, Brown, Black, Gray, Teal, White")
		flags.StringVar(&f.images.Type, "type-image", "", "photo, clipart, gif, transparent, line")
		flags.StringVar(&f.images.Layout, "layout", "", "Square, Tall, Wide")
		flags.StringVar(&f.images.License, "license-image", "", "any, Public, Share, ShareCommercially, Modify, ModifyCommercially")
	case search.CategoryVideos:
		flags.StringVar(&f.videos.Resolution, "resolution", "", "high, standart")
		flags.StringVar(&f.videos.Duration, "duration", "", "short, medium, long")
		flags.StringVar(&f.videos.License, "license-videos", "", "creativeCommon, youtube")
	}
	return cmd
}

func downloadResults(cmd *cobra.Command, a *app, category search.Category, f searchFlags, records []search.Record) error {
	dir := f.downloadDir
	if dir == "" {
		dir = download.DirName(category, f.query, time.Now())
	}
	items := download.Items(records)
	stats, err := download.NewManager(a.client, f.threads, a.logger).Run(cmd.Context(), dir, items)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d/%d files to %s\n", stats.Saved, len(items), dir)
	return nil
}

func asRecords[T search.Record](items []T) []search.Record {
	out := make([]search.Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// writeOutput prints records or saves them to a file. A bare "json" or "csv"
// writes a file named after the category and query.
func writeOutput(cmd *cobra.Command, category search.Category, query, output string, records []search.Record) error {
	switch output {
	case "", "print":
		return printRecords(cmd.OutOrStdout(), category, records)
	case "json", "csv":
		output = outputFileName(category, query, output)
	}

	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(output)) {
	case ".json":
		write = func(w io.Writer) error { return writeJSON(w, records) }
	case ".csv":
		write = func(w io.Writer) error { return writeCSV(w, category, records) }
	default:
		return fmt.Errorf("unsupported output %q, expected print, json, csv or a .json/.csv path", output)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	err = write(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d results to %s\n", len(records), output)
	return nil
}
