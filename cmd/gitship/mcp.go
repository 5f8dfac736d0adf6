package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/logging"
	gsmcp "github.com/deixis/gitship/internal/mcp"
	"github.com/deixis/gitship/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	var (
		instructions bool
		httpAddr     string
		logLevel     string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio or streamable HTTP",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), gsmcp.Instructions)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, cmd, httpAddr, logLevel)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	fs.StringVar(&httpAddr, "http", "", "serve streamable HTTP on address (e.g. :9090) instead of stdio")
	fs.StringVar(&logLevel, "log-level", "", "diagnostic log level (default from .gitship, or warn)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, httpAddr, logLevel string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	if logLevel == "" {
		logLevel = cfg.LogLevel()
	}
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return &usageError{err: err}
	}
	logger, closeLog, err := logging.New(logging.Options{
		Console:    cmd.ErrOrStderr(),
		Level:      logLevel,
		File:       logPath(cfg.Log.File, loaded.RepoRoot),
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// Runs can target any workspace, so results live in a temp dir.
	store := report.NewLRUStore(5, report.NewDiskStore(""))
	server := gsmcp.NewServer(store, workspace, gsmcp.WithLogger(logger))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *slog.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
