package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tentrss/tentrss/tent"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

//go:embed static/*
var StaticFS embed.FS

type Server struct {
	resolver       tent.Resolver
	echo           *echo.Echo
	httpd          *http.Server
	logger         *slog.Logger
	resolveTimeout time.Duration
}

type Config struct {
	Logger   *slog.Logger
	Resolver tent.Resolver
	Bind     string
	// bound on an entire resolution, including cache lookups
	ResolveTimeout time.Duration
	// reload templates and static files from disk
	Debug bool
}

// prometheus collectors can only be registered once per process
var promMiddleware = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("tentrss")
})

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("no resolver configured")
	}
	resolveTimeout := config.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = 60 * time.Second
	}

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 2 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		resolver:       config.Resolver,
		echo:           e,
		logger:         logger,
		resolveTimeout: resolveTimeout,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("tentrss"))
	e.Use(promMiddleware())
	e.Use(middleware.BodyLimit("64K"))
	e.HTTPErrorHandler = srv.errorHandler
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 365 days
	}))

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}
	if config.Debug {
		staticFS = os.DirFS("cmd/tentrss/static")
	}
	staticHandler := http.FileServer(http.FS(staticFS))

	renderer, err := NewRenderer("templates/", &TemplateFS, config.Debug)
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())

	// basic static routes
	e.GET("/robots.txt", echo.WrapHandler(staticHandler))
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", staticHandler)))

	e.GET("/", srv.WebHome)
	e.GET("/feed", srv.WebFeed)

	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	slog.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	slog.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)

		// Shut down the HTTP server
		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}

		// Trigger the return that causes an exit.
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "tentrss"})
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code >= 500 {
		srv.logger.Warn("tentrss-http-internal-error", "err", err)
	}
	data := pongo2.Context{
		"statusCode": code,
		"error":      http.StatusText(code),
	}
	if err := c.Render(code, "error.html", data); err != nil {
		srv.logger.Error("failed to render error page", "err", err)
	}
}
