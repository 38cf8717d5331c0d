package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"csvapi/internal/httpapi"
	"csvapi/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr       string
	Table      string
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve [csv-path-or-url]",
		Short: "Serve a query API for a CSV file",
		Long: `Load a CSV file, infer column types, and serve an HTTP API whose
query parameters are generated from the columns.

The endpoint is GET /<table>; GET /<table>/schema lists the accepted
parameters. The source may also come from a config file or the
CSVAPI_SOURCE environment variable.

Example:
  csvapi serve people.csv
  csvapi serve --addr :9000 --table staff hr-export.csv`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default "+DefaultAddr+")")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (default: derived from the file name)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runServe(opts *ServeOptions, args []string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if len(args) == 1 {
		cfg.Source = args[0]
	}
	if opts.Table != "" {
		cfg.Table = opts.Table
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if cfg.Source == "" {
		return WrapExitError(ExitCommandError, "no CSV source given", errors.New("pass a path/URL, set source in the config file, or set "+envSource))
	}

	slog.Info("loading dataset", "source", cfg.Source)
	mgr, err := store.Open(cmd.Context(), cfg.Source, cfg.Table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()
	slog.Info("dataset loaded", "table", mgr.Table(), "columns", len(mgr.Columns()))

	api, err := httpapi.New(mgr, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build API", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	slog.Info("serving", "addr", cfg.Addr, "endpoint", "/"+mgr.Table())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving table %q on http://%s/%s\n", mgr.Table(), cfg.Addr, mgr.Table())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown error", err)
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}
