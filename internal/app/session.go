// Package app wires configuration, logging, tracing and metrics around a
// client session for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/tturner/cipmsg/internal/capture"
	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/config"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/logging"
	"github.com/tturner/cipmsg/internal/metrics"
)

// Options are command-line overrides applied on top of the config file.
// Zero values leave the file (or default) setting untouched.
type Options struct {
	ConfigPath string
	AutoCreate bool

	Target     string
	Port       int
	RoutePath  string
	TimeoutMs  int
	LogLevel   string
	LogFile    string
	PCAPFile   string
	MetricsCSV string
}

// LoadConfig loads the config file named by opts (or the defaults when no
// file is given) and applies the overrides.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg := config.CreateDefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadConfig(opts.ConfigPath, opts.AutoCreate)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Target != "" {
		host, port, err := splitTarget(opts.Target)
		if err != nil {
			return nil, err
		}
		cfg.Target.Address = host
		if port != 0 {
			cfg.Target.Port = port
		}
	}
	if opts.Port != 0 {
		cfg.Target.Port = opts.Port
	}
	if opts.RoutePath != "" {
		cfg.Target.RoutePath = opts.RoutePath
	}
	if opts.TimeoutMs != 0 {
		cfg.Target.TimeoutMs = opts.TimeoutMs
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if opts.PCAPFile != "" {
		cfg.Trace.PCAPFile = opts.PCAPFile
	}
	if opts.MetricsCSV != "" {
		cfg.Metrics.CSVFile = opts.MetricsCSV
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, cipmsgErrors.WrapConfigError(err, configName(opts.ConfigPath))
	}
	return cfg, nil
}

// splitTarget accepts "host" or "host:port".
func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in target %q", target)
	}
	return host, port, nil
}

func configName(path string) string {
	if path == "" {
		return "command line"
	}
	return path
}

// Session is a registered client together with the sinks opened for it.
type Session struct {
	Config *config.Config
	Client *client.Client
	Logger *logging.Logger
	Sink   *metrics.Sink

	transport *client.TCPTransport
	trace     *capture.Recorder
	metrics   *metrics.Writer
}

// Open connects to the configured target, opens the trace and metrics
// files, and registers a session. With connect set it also opens a
// Class-3 connection. Everything opened so far is released on failure.
func Open(ctx context.Context, cfg *config.Config, connect bool) (*Session, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	s := &Session{
		Config:    cfg,
		Logger:    logger,
		Sink:      metrics.NewSink(),
		transport: client.NewTCPTransport(),
	}

	opts, err := cfg.ClientOptions()
	if err != nil {
		s.release()
		return nil, err
	}
	recorder := &metrics.Recorder{Sink: s.Sink}
	if cfg.Metrics.CSVFile != "" {
		s.metrics, err = metrics.NewWriter(cfg.Metrics.CSVFile)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("create metrics writer: %w", err)
		}
		recorder.Writer = s.metrics
	}
	opts = append(opts, client.WithLogger(logger), client.WithMetrics(recorder))

	logger.Verbose("Connecting to %s", cfg.Address())
	if err := s.transport.Connect(ctx, cfg.Address()); err != nil {
		s.release()
		return nil, cipmsgErrors.WrapNetworkError(err, cfg.Target.Address, cfg.Target.Port)
	}

	if cfg.Trace.PCAPFile != "" {
		ep := capture.EndpointsFromAddrs(s.transport.LocalAddr(), s.transport.RemoteAddr())
		s.trace, err = capture.Create(cfg.Trace.PCAPFile, ep)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("create trace: %w", err)
		}
		opts = append(opts, client.WithRecorder(s.trace))
	}

	s.Client = client.New(s.transport, opts...)
	if err := s.Client.RegisterSession(ctx); err != nil {
		s.release()
		return nil, cipmsgErrors.WrapCIPError(err, "register session")
	}
	if connect {
		if err := s.Client.ForwardOpen(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, cipmsgErrors.WrapCIPError(err, "forward open")
		}
	}
	return s, nil
}

// Close tears the session down and closes every sink.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.Client != nil {
		if err := s.Client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// release closes the sinks and the transport without protocol teardown.
func (s *Session) release() error {
	var errs []error
	if s.transport != nil && s.transport.IsConnected() {
		if err := s.transport.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
	}
	if s.trace != nil {
		if err := s.trace.Close(); err != nil {
			errs = append(errs, err)
		}
		s.trace = nil
	}
	if s.metrics != nil {
		if err := s.metrics.Close(); err != nil {
			errs = append(errs, err)
		}
		s.metrics = nil
	}
	if s.Logger != nil {
		if err := s.Logger.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Logger = nil
	}
	return errors.Join(errs...)
}

// Summary returns the metrics summary of the exchanges made so far.
func (s *Session) Summary() *metrics.Summary {
	return s.Sink.GetSummary()
}
