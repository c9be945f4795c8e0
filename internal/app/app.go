package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"ballfield/server/internal/match"
	servernet "ballfield/server/internal/net"
	"ballfield/server/internal/results"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
	loggingSinks "ballfield/server/logging/sinks"
)

const (
	sinkConsole = "console"
	sinkJSON    = "json"

	shutdownTimeout = 5 * time.Second
)

type Options struct {
	// ConfigPath points at a YAML configuration file. Empty means MATCH_CONFIG
	// or the built-in defaults.
	ConfigPath string
	Env        Env
	Stdout     io.Writer
}

// Services are the long-lived components built from a Config.
type Services struct {
	Logger  *logrus.Logger
	Router  *logging.Router
	Store   results.Store
	Session *match.Session
	Handler http.Handler
}

// Close releases the store and flushes the event router.
func (s *Services) Close(ctx context.Context) error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close results store: %w", err))
		}
	}
	if s.Router != nil {
		if err := s.Router.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close logging router: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Build wires the logger, event router, results store, match session and
// HTTP handler.
func Build(ctx context.Context, cfg Config, stdout io.Writer) (*Services, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	logCfg := cfg.LoggingSettings()
	logger := logging.NewLogrus(logCfg.Console, stdout)
	telemetryLogger := telemetry.WrapLogrus(logger)

	var named []logging.NamedSink
	for _, name := range logCfg.EnabledSinks {
		switch name {
		case sinkConsole:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSinkWithLogger(logger)})
		case sinkJSON:
			sink, err := loggingSinks.OpenJSONFile(logCfg.JSON.FilePath, logCfg.JSON.FlushInterval)
			if err != nil {
				return nil, err
			}
			named = append(named, logging.NamedSink{Name: name, Sink: sink})
		default:
			telemetryLogger.Warnf("ignoring unknown log sink %q", name)
		}
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, named)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	services := &Services{Logger: logger, Router: router}
	if logCfg.HasSink(sinkJSON) {
		logger.WithField("path", logCfg.JSON.FilePath).Info("writing match events")
	}

	store, err := results.Open(ctx, cfg.Results.Store, cfg.Results.SQLitePath)
	if err != nil {
		services.Close(ctx)
		return nil, err
	}
	services.Store = store

	session, err := match.New(cfg.Config, match.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetry.WrapMetrics(&logging.Metrics{}),
		Publisher: router,
		Store:     store,
	})
	if err != nil {
		services.Close(ctx)
		return nil, err
	}
	services.Session = session

	services.Handler = servernet.NewHTTPHandler(session, servernet.HTTPHandlerConfig{
		ClientDir:     cfg.ClientDir,
		Logger:        telemetryLogger,
		Publisher:     router,
		Store:         store,
		Observability: cfg.Observability,
	})
	return services, nil
}

// Run serves the match until ctx is cancelled, then shuts the HTTP server
// down and flushes logs.
func Run(ctx context.Context, opts Options) error {
	bootstrap := telemetry.WrapLogrus(logging.NewLogrus(logging.DefaultConfig().Console, os.Stderr))
	cfg, err := LoadConfig(opts.ConfigPath, opts.Env, bootstrap)
	if err != nil {
		return err
	}

	services, err := Build(ctx, cfg, opts.Stdout)
	if err != nil {
		return err
	}
	logger := services.Logger
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := services.Close(closeCtx); cerr != nil {
			logger.Warnf("shutdown: %v", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- services.Session.Run(ctx)
	}()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: services.Handler}
	serveDone := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  srv.Addr,
			"match": services.Session.ID(),
			"seed":  cfg.Match.Seed,
			"store": cfg.Results.Store,
		}).Info("server listening")
		serveDone <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if err := <-loopDone; err != nil && runErr == nil {
		runErr = fmt.Errorf("match loop: %w", err)
	}
	return runErr
}
