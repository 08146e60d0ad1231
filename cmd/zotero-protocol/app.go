package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/extensions"
	"github.com/peterckelly/zotero/pkg/config"
	"github.com/peterckelly/zotero/pkg/health"
	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pagecache"
	"github.com/peterckelly/zotero/pkg/redis"
	"github.com/peterckelly/zotero/pkg/storage"
)

const sentryFlushTimeout = 2 * time.Second

// app holds the wired dispatcher and everything that must be released
// with it.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	handler  *zotero.Handler
	pages    pagecache.Store
	registry *prometheus.Registry
	checks   health.Checks
	hooks    []func(context.Context) error
}

// newApp builds the dispatcher from cfg. Logs go to logOut.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	rec := logger.NewRecorder(cfg.Log.DebugBuffer, slog.LevelDebug)
	log := logger.New(
		logger.WithLevel(cfg.LogLevel()),
		logger.WithFormat(logger.Format(cfg.Log.Format)),
		logger.WithOutput(logOut),
		logger.WithRecorder(rec),
		logger.WithSentry(cfg.Log.Sentry),
	)

	a := &app{
		cfg:    cfg,
		log:    log,
		checks: health.Checks{},
		hooks:  []func(context.Context) error{logger.FlushSentry(sentryFlushTimeout)},
	}

	var opts []zotero.Option
	opts = append(opts,
		zotero.WithLogger(log),
		zotero.WithTracer(otel.Tracer("github.com/peterckelly/zotero")),
	)

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, zotero.WithMetrics(zotero.NewMetrics(a.registry, cfg.Metrics.Namespace)))
	}

	if err := a.openPages(ctx); err != nil {
		return nil, a.closeWith(err)
	}
	if cfg.Cache.ProxyTTL > 0 {
		opts = append(opts, zotero.WithProxyCache(a.pages, cfg.Cache.ProxyTTL))
	}

	loader := zotero.NewLoaderMux()
	opts = append(opts, zotero.WithLoader(loader))

	var host *zotero.FSHost
	if cfg.Chrome.Root != "" {
		host = zotero.NewFSHost(os.DirFS(cfg.Chrome.Root))
		opts = append(opts, zotero.WithHost(host))
		loader.Handle("chrome", zotero.ChannelLoader(host))
	}

	deps := extensions.Deps{
		Debug:   rec,
		Pages:   a.pages,
		Logger:  log,
		Windows: headless{log: log},
	}

	switch {
	case cfg.S3.Enabled():
		s3, err := storage.New(cfg.S3)
		if err != nil {
			return nil, a.closeWith(err)
		}
		loader.Handle(storage.Scheme, s3)
		deps.Attachments = extensions.S3Attachments{Store: s3}
		a.checks["s3"] = s3.Ping
	case cfg.Attachments.Dir != "":
		deps.Attachments = extensions.DirAttachments{Root: cfg.Attachments.Dir}
	}

	if cfg.Library.File != "" {
		lib, err := extensions.LoadStaticLibrary(cfg.Library.File)
		if err != nil {
			return nil, a.closeWith(err)
		}
		deps.Library = lib
		deps.Groups = lib
		deps.Data = lib
		deps.Selector = headless{log: log}
	}

	a.handler = zotero.NewHandler(opts...)
	loader.Handle(zotero.Scheme, zotero.ChannelLoader(a.handler))

	if err := extensions.Register(a.handler, deps); err != nil {
		return nil, a.closeWith(err)
	}
	return a, nil
}

// openPages connects the page store: Redis when configured, memory
// otherwise.
func (a *app) openPages(ctx context.Context) error {
	if a.cfg.Redis.URL == "" {
		mem := pagecache.NewMemory(pagecache.WithCapacity(a.cfg.Cache.Capacity))
		a.pages = mem
		a.hooks = append(a.hooks, func(context.Context) error { return mem.Close() })
		return nil
	}

	client, err := redis.Open(ctx, a.cfg.Redis.URL, redis.WithLogger(a.log))
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	a.pages = pagecache.NewRedis(client)
	a.checks["redis"] = redis.Healthcheck(client)
	a.hooks = append(a.hooks, redis.Shutdown(client))
	return nil
}

// bridge returns the HTTP front end for the dispatcher.
func (a *app) bridge() *zotero.Bridge {
	opts := []zotero.BridgeOption{
		zotero.WithBridgeLogger(a.log),
		zotero.WithConnectorStore(a.pages, a.cfg.Cache.ConnectorTTL),
		zotero.WithHealthChecks(a.checks),
		zotero.WithRequestTimeout(a.cfg.Server.WriteTimeout),
	}
	if a.registry != nil {
		opts = append(opts, zotero.WithGatherer(a.registry))
	}
	return zotero.NewBridge(a.handler, opts...)
}

// close runs the cleanup hooks in order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, hook := range a.hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) closeWith(err error) error {
	return errors.Join(err, a.close(context.Background()))
}

// headless stands in for the desktop window system: selections and
// window requests are logged.
type headless struct {
	log *slog.Logger
}

func (h headless) Select(ctx context.Context, item extensions.Item) error {
	h.log.InfoContext(ctx, "item selected",
		slog.Int64("item_id", item.ID),
		slog.String("key", item.Key),
	)
	return nil
}

func (h headless) OpenWindow(ctx context.Context, location, features string) error {
	h.log.InfoContext(ctx, "window requested",
		slog.String("location", location),
		slog.String("features", features),
	)
	return nil
}
