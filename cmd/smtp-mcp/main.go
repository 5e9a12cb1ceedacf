// SMTP MCP server sends email through an SMTP relay over the Model Context Protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/peterbourgon/ff/v3"

	"github.com/hal9000y/smtp-mcp/internal/config"
	"github.com/hal9000y/smtp-mcp/internal/instrumentation"
	"github.com/hal9000y/smtp-mcp/internal/logging"
	"github.com/hal9000y/smtp-mcp/internal/mailer"
	"github.com/hal9000y/smtp-mcp/internal/smtpclient"
	"github.com/hal9000y/smtp-mcp/internal/tool"
)

const serviceName = "email-mcp-server"

func main() {
	fs := flag.NewFlagSet("smtp-mcp", flag.ExitOnError)
	envFile := fs.String("env-file", "", "Path to env file, ./.env is loaded if present when empty")
	logFile := fs.String("log-file", "", "Path to log file, logs go to stderr when empty")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn or error")
	metricsAddr := fs.String("metrics-addr", "", "Listen addr for /metrics and /healthz, disabled when empty")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SMTP_MCP")); err != nil {
		panic(fmt.Errorf("ff.Parse failed: %w", err))
	}

	if *showVersion {
		fmt.Fprintln(os.Stderr, serviceName, tool.Version)
		return
	}

	logger, closeLogs := setupLogger(*logFile, *logLevel)
	defer closeLogs()

	cfg := mustLoadConfig(*envFile)

	provider := mustCreateProvider(*metricsAddr != "")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("provider.Shutdown failed", logging.Err(err))
		}
	}()

	sender, err := mailer.New(cfg, &smtpclient.Client{}, mailer.WithRecorder(provider.Metrics()))
	if err != nil {
		panic(fmt.Errorf("mailer.New failed: %w", err))
	}

	effective := sender.Config()
	logger.Info("smtp sender configured",
		slog.String("host", effective.Host),
		slog.Int("port", effective.Port),
		logging.Security(effective.Security().String()),
	)

	srv := tool.NewServer(sender, provider.Metrics(), logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	var errHTTPCh <-chan error
	if provider.Enabled() {
		ln := mustListen(*metricsAddr)

		var stopHTTP func()
		stopHTTP, errHTTPCh = serveHTTP(logger, &http.Server{
			Handler:           provider.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}, ln)
		defer stopHTTP()
	}

	stopStdio, errStdioCh := serveStdio(logger, srv)
	defer stopStdio()

	select {
	case err := <-errHTTPCh:
		logger.Error("metrics server stopped", logging.Err(err))
	case err := <-errStdioCh:
		if err != nil {
			logger.Error("stdio transport stopped", logging.Err(err))
		} else {
			logger.Info("stdin closed")
		}
	case <-shutdown:
		logger.Info("shutdown signal received")
	}
}

func serveStdio(logger *slog.Logger, srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		logger.Info("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		logger.Info("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(logger *slog.Logger, srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info("starting metrics server", slog.String("addr", ln.Addr().String()))

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errHTTPCh <- fmt.Errorf("srv.Serve failed: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("srv.Shutdown failed", logging.Err(err))
		}

		<-errHTTPCh
		logger.Info("metrics server stopped")
	}, errHTTPCh
}

func mustListen(addr string) net.Listener {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func mustLoadConfig(envFile string) mailer.Config {
	if err := config.LoadDotEnv(envFile); err != nil {
		panic(fmt.Errorf("config.LoadDotEnv failed: %w", err))
	}

	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		panic(fmt.Errorf("config.FromEnv failed: %w", err))
	}

	return cfg
}

func mustCreateProvider(enabled bool) *instrumentation.Provider {
	p, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:    serviceName,
		ServiceVersion: tool.Version,
		Enabled:        enabled,
	})
	if err != nil {
		panic(fmt.Errorf("instrumentation.NewProvider failed: %w", err))
	}

	return p
}

// setupLogger never writes to stdout, which carries the MCP stream.
func setupLogger(logFile, level string) (*slog.Logger, func()) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		w = f
		closeFn = func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	logger, err := logging.New(w, level)
	if err != nil {
		closeFn()
		panic(fmt.Errorf("logging.New failed: %w", err))
	}
	slog.SetDefault(logger)

	return logger, closeFn
}
