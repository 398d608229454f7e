package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketScreener/internal/api"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/config"
	"MarketScreener/internal/model"
	"MarketScreener/internal/notifier"
	"MarketScreener/internal/publisher"
	"MarketScreener/internal/report"
	"MarketScreener/internal/scheduler"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/universe"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: screener [-config path] [scan|serve]

  scan   run one scan and print the report (default)
  serve  run scheduled scans with the HTTP API and chat commands`

func main() {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the YAML config")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	mode := flag.Arg(0)
	if mode == "" {
		mode = "scan"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch mode {
	case "scan":
		code = runScan(ctx, cfg, os.Stdout)
	case "serve":
		code = runServe(ctx, cfg)
	default:
		flag.Usage()
		code = 2
	}
	stop()
	os.Exit(code)
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = log.With().Str("service", "screener").Logger()
}

// components are the pieces shared by both modes.
type components struct {
	pipeline *screener.Pipeline
	universe screener.UniverseSource
	cached   *universe.CachedSource
	closers  []io.Closer
}

func (c *components) Close() {
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

func build(ctx context.Context, cfg *config.Config) (*components, error) {
	opts, err := cfg.ScanOptions()
	if err != nil {
		return nil, fmt.Errorf("scan options: %w", err)
	}

	var fetcher collector.Fetcher
	if cfg.Provider.BaseURL != "" {
		fetcher = collector.NewRESTFetcher(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.ProviderOptions())
	} else {
		fetcher = collector.NewYahooFetcher(cfg.ProviderOptions())
	}
	log.Info().Str("provider", fetcher.Name()).Str("lookback", string(opts.Lookback)).
		Int("rsi_period", opts.RSIPeriod).Ints("ma_windows", opts.MAWindows).
		Int("concurrency", opts.Concurrency).Msg("scan configured")

	p, err := screener.New(collector.NewAdapter(fetcher), opts)
	if err != nil {
		return nil, err
	}
	c := &components{pipeline: p}

	var remote *universe.RemoteSource
	switch cfg.Universe.Source {
	case "static":
		c.universe = universe.NewStaticSource(nil)
		return c, nil
	case "html":
		remote = universe.NewRemoteSource(cfg.Universe.URL, universe.FormatHTML, cfg.Universe.SymbolColumn, cfg.Proxy)
	case "csv":
		remote = universe.NewRemoteSource(cfg.Universe.URL, universe.FormatCSV, cfg.Universe.SymbolColumn, cfg.Proxy)
	default:
		return nil, fmt.Errorf("unknown universe source %q", cfg.Universe.Source)
	}

	store, err := snapshotStore(ctx, cfg, c)
	if err != nil {
		log.Warn().Err(err).Msg("universe snapshot store unavailable, using memory cache only")
	}
	c.cached = universe.NewCachedSource(remote, nil, store, cfg.Universe.TTL)
	c.universe = c.cached
	return c, nil
}

func snapshotStore(ctx context.Context, cfg *config.Config, c *components) (universe.SnapshotStore, error) {
	switch {
	case cfg.Universe.RedisURL != "":
		rs, err := universe.NewRedisStore(ctx, cfg.Universe.RedisURL, cfg.Universe.TTL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rs)
		return rs, nil
	case cfg.Universe.SQLitePath != "":
		ss, err := universe.NewSQLiteStore(cfg.Universe.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, ss)
		return ss, nil
	}
	return nil, nil
}

func runScan(ctx context.Context, cfg *config.Config, out io.Writer) int {
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation")
		return 1
	}
	c, err := build(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("init")
		return 1
	}
	defer c.Close()

	lastDecile := -1
	rep, err := c.pipeline.ScanUniverse(ctx, c.universe, func(done, total int) {
		if d := int(screener.Fraction(done, total) * 10); d != lastDecile {
			lastDecile = d
			log.Info().Int("done", done).Int("total", total).Msgf("progress %d%%", d*10)
		}
	})

	return finishScan(out, rep, err)
}

// finishScan prints the scan outcome and returns the process exit code.
// Interruption is checked first since a cancelled universe listing is also
// reported as unavailable.
func finishScan(out io.Writer, rep *model.ScreenReport, err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("scan interrupted, printing partial report")
		if rep != nil {
			if werr := notifier.WriteTable(out, rep); werr != nil {
				log.Error().Err(werr).Msg("write partial report")
			}
		}
		return 130
	case errors.Is(err, universe.ErrUniverseUnavailable):
		log.Error().Err(err).Msg("cannot load ticker universe")
		return 1
	case errors.Is(err, report.ErrEmptyResult):
		fmt.Fprintln(out, "No data fetched: no ticker produced a result. The price provider may be rate limiting requests; try again later.")
		return 0
	case err != nil:
		log.Error().Err(err).Msg("scan failed")
		return 1
	}

	if err := notifier.WriteTable(out, rep); err != nil {
		log.Error().Err(err).Msg("write report")
		return 1
	}
	return 0
}

func runServe(ctx context.Context, cfg *config.Config) int {
	if err := cfg.ValidateServe(); err != nil {
		log.Error().Err(err).Msg("config validation")
		return 1
	}
	c, err := build(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("init")
		return 1
	}
	defer c.Close()

	var sinks []scheduler.Sink
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		tn.Limit = cfg.Telegram.TopN
		sinks = append(sinks, tn)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := publisher.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		c.closers = append(c.closers, producer)
		sinks = append(sinks, producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	sched := scheduler.NewScheduler(ctx, c.pipeline, c.universe, sinks...)
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		log.Error().Err(err).Msg("register cron task")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	var inv api.Invalidator
	if c.cached != nil {
		inv = c.cached
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.SetupRoutes(api.NewHandler(sched, inv)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
		}
	}()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, scanning now")
		if err := sched.Trigger(); err != nil {
			log.Warn().Err(err).Msg("initial scan")
		}
	}

	log.Info().Msg("screener is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
