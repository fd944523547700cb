package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/tentrss/tentrss/pkg/metrics"
	"github.com/tentrss/tentrss/pkg/robusthttp"
	"github.com/tentrss/tentrss/tent"
	"github.com/tentrss/tentrss/tent/memcachecache"
	"github.com/tentrss/tentrss/tent/rediscache"
	"github.com/tentrss/tentrss/util/ssrf"
	"github.com/tentrss/tentrss/util/svcutil"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "tentrss",
		Usage:   "RSS feeds for Tent entities",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "memcache-host",
				Usage:   "memcached server(s) for the resolution cache, comma-separated host:port",
				EnvVars: []string{"TENTRSS_MEMCACHE_HOST", "MEMCACHE_HOST"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "redis connection URL for the resolution cache: redis://<user>:<pass>@<hostname>:6379/<db>",
				EnvVars: []string{"TENTRSS_REDIS_URL"},
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "how long successful resolutions are cached",
				Value:   tent.DefaultCacheTTL,
				EnvVars: []string{"TENTRSS_CACHE_TTL"},
			},
			&cli.IntFlag{
				Name:    "cache-size",
				Usage:   "number of entities held in the in-process cache",
				Value:   10_000,
				EnvVars: []string{"TENTRSS_CACHE_SIZE"},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Usage:   "bound on each outbound HTTP request",
				Value:   tent.DefaultTimeout,
				EnvVars: []string{"TENTRSS_REQUEST_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "outbound-rate-limit",
				Usage:   "max outbound requests per second, across all entities (zero for no limit)",
				Value:   50,
				EnvVars: []string{"TENTRSS_OUTBOUND_RATE_LIMIT"},
			},
			&cli.BoolFlag{
				Name:    "allow-private-networks",
				Usage:   "permit fetching from private, loopback, and non-standard port addresses (for local development)",
				EnvVars: []string{"TENTRSS_ALLOW_PRIVATE_NETWORKS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity level (eg: warn, info, debug)",
				EnvVars: []string{"TENTRSS_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:   "serve",
				Usage:  "run the web service",
				Action: runServeCmd,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bind",
						Usage:    "Specify the local IP/port to bind to",
						Required: false,
						Value:    ":5000",
						EnvVars:  []string{"TENTRSS_BIND"},
					},
					&cli.StringFlag{
						Name:    "metrics-listen",
						Usage:   "IP or address, and port, to listen on for metrics APIs",
						Value:   ":5001",
						EnvVars: []string{"TENTRSS_METRICS_LISTEN"},
					},
					&cli.DurationFlag{
						Name:    "resolve-timeout",
						Usage:   "bound on an entire resolution, across all candidates",
						Value:   60 * time.Second,
						EnvVars: []string{"TENTRSS_RESOLVE_TIMEOUT"},
					},
					&cli.BoolFlag{
						Name:    "debug",
						Usage:   "Enable debug mode (templates and static files reload from disk)",
						Value:   false,
						EnvVars: []string{"DEBUG"},
					},
				},
			},
			&cli.Command{
				Name:      "resolve",
				ArgsUsage: `<entity-uri>`,
				Usage:     "resolve an entity and print its latest posts as JSON",
				Action:    runResolveCmd,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "purge any cached result before resolving",
					},
				},
			},
		},
	}

	return app.Run(args)
}

func userAgent() string {
	return fmt.Sprintf("tentrss/%s", versioninfo.Short())
}

// Outbound HTTP client. Unless private networks are explicitly allowed, only public addresses on standard ports can be reached.
func configHTTPClient(cctx *cli.Context, logger *slog.Logger) *http.Client {
	var transport http.RoundTripper = ssrf.PublicOnlyTransport()
	if cctx.Bool("allow-private-networks") {
		logger.Warn("outbound SSRF protection disabled")
		transport = cleanhttp.DefaultPooledTransport()
	}
	return robusthttp.NewClient(
		robusthttp.WithTransport(transport),
		robusthttp.WithLogger(logger),
		robusthttp.WithUserAgent(userAgent()),
		robusthttp.WithTimeout(cctx.Duration("request-timeout")),
	)
}

// Picks the cache backend: memcached if configured, then redis, falling back to in-process.
func configCache(cctx *cli.Context, logger *slog.Logger) (tent.Cache, error) {
	ttl := cctx.Duration("cache-ttl")
	size := cctx.Int("cache-size")

	if hosts := cctx.String("memcache-host"); hosts != "" {
		servers := strings.Split(hosts, ",")
		for i := range servers {
			servers[i] = strings.TrimSpace(servers[i])
		}
		logger.Info("using memcached resolution cache", "servers", servers)
		return memcachecache.NewMemcacheCache(time.Second, servers...), nil
	}
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		logger.Info("using redis resolution cache")
		rc, err := rediscache.NewRedisCache(redisURL, ttl, size)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	logger.Info("using in-process resolution cache", "size", size)
	return tent.NewMemoryCache(size, ttl), nil
}

func configResolver(cctx *cli.Context, logger *slog.Logger) (tent.Resolver, error) {
	base := tent.BaseResolver{
		HTTPClient: configHTTPClient(cctx, logger),
		Timeout:    cctx.Duration("request-timeout"),
		Logger:     logger,
	}
	if limit := cctx.Int("outbound-rate-limit"); limit > 0 {
		base.Limiter = rate.NewLimiter(rate.Limit(limit), limit)
	}

	cache, err := configCache(cctx, logger)
	if err != nil {
		return nil, err
	}
	res := tent.NewCacheResolver(&base, cache, cctx.Duration("cache-ttl"))
	res.Logger = logger
	return res, nil
}

func runServeCmd(cctx *cli.Context) error {
	logger := svcutil.ConfigLogger(cctx, os.Stdout)

	shutdownOTEL, err := configOTEL(cctx.Context, "tentrss")
	if err != nil {
		return err
	}
	defer shutdownOTEL()

	resolver, err := configResolver(cctx, logger)
	if err != nil {
		return fmt.Errorf("failed to configure resolver: %w", err)
	}

	srv, err := NewServer(
		Config{
			Logger:         logger,
			Resolver:       resolver,
			Bind:           cctx.String("bind"),
			ResolveTimeout: cctx.Duration("resolve-timeout"),
			Debug:          cctx.Bool("debug"),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to construct server: %v", err)
	}

	// prometheus HTTP endpoint: /metrics
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	go func() {
		runtime.SetBlockProfileRate(10)
		runtime.SetMutexProfileFraction(10)
		if err := metrics.RunServer(ctx, cancel, cctx.String("metrics-listen")); err != nil {
			slog.Error("failed to start metrics endpoint", "error", err)
			// NOTE: not crashing or halting process here
		}
	}()

	return srv.RunAPI()
}

func runResolveCmd(cctx *cli.Context) error {
	ctx := cctx.Context
	logger := svcutil.ConfigLogger(cctx, os.Stderr)

	uri := cctx.Args().First()
	if uri == "" {
		return fmt.Errorf("need to provide entity URI for resolution")
	}

	res, err := configResolver(cctx, logger)
	if err != nil {
		return err
	}
	if cctx.Bool("refresh") {
		if err := res.Purge(ctx, uri); err != nil {
			return err
		}
	}

	posts, err := res.Resolve(ctx, uri)
	if err != nil {
		return fmt.Errorf("%s: %w", tent.UserMessage(uri, err), err)
	}

	b, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
