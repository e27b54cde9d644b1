package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metasearch/api"
	"metasearch/config"
	"metasearch/engines"
	"metasearch/pkg/httpclient"
	"metasearch/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type globalFlags struct {
	proxy    string
	timeout  string
	verify   bool
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:          "metasearch",
		Short:        "Metasearch across text, image, news and video backends",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("metasearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&g.proxy, "proxy", "x", "", `proxy URL (http, https, socks5, socks5h) or "tb" for Tor Browser`)
	cmd.PersistentFlags().StringVar(&g.timeout, "timeout", "", "per backend timeout, e.g. 5s or 10")
	cmd.PersistentFlags().BoolVar(&g.verify, "verify", true, "verify TLS certificates")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(
		newSearchCmd(&g, search.CategoryText, "Search the web"),
		newSearchCmd(&g, search.CategoryImages, "Search images"),
		newSearchCmd(&g, search.CategoryNews, "Search news"),
		newSearchCmd(&g, search.CategoryVideos, "Search videos"),
		newAPICmd(&g),
		newVersionCmd(),
	)
	return cmd
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *httpclient.Client
	session *search.Session
}

func (a *app) Close() {
	_ = a.logger.Sync()
}

// newApp wires config, logging, the HTTP client and a session. Flags that
// were set on the command line override config values.
func newApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("proxy") {
		cfg.Proxy = g.proxy
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = config.ParseTimeout(g.timeout); err != nil {
			return nil, err
		}
	}
	if flags.Changed("verify") {
		cfg.Verify = g.verify
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}

	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// =========
	// HTTP
	// =========
	client, err := httpclient.New(httpclient.Config{
		Proxy:   cfg.Proxy,
		Timeout: cfg.Timeout,
		Verify:  cfg.Verify,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	// =========
	// Search session
	// =========
	session := search.NewSession(engines.Default(), client,
		search.WithLogger(logger),
		search.WithTimeout(cfg.Timeout))

	return &app{cfg: cfg, logger: logger, client: client, session: session}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func newAPICmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the search API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("port") {
				a.cfg.AppPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.NewServer(a.session, a.cfg.AppPort, a.logger).Start(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port, overrides APP_PORT")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "metasearch version %s\n", version)
		},
	}
}

// searchDeadline caps a whole CLI search; each backend call has its own
// shorter timeout.
const searchDeadline = 2 * time.Minute

func withSearchDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, searchDeadline)
}
