package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleaker/cleaker_sdk_go/pkg/cleaker_sdk"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
)

type serveFlags struct {
	addr    string
	seed    string
	latency time.Duration
	fail    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:           "cleaker-sandbox",
		Short:         "Serve an in-memory Cleaker ledger over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), flags, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.addr, "addr", ":8888", "listen address")
	f.StringVar(&flags.seed, "seed", "", "path to a JSON or YAML ledger seed")
	f.DurationVar(&flags.latency, "latency", 0, "artificial latency to inject per request")
	f.StringVar(&flags.fail, "fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	return cmd
}

func serve(ctx context.Context, flags serveFlags, logger *zap.Logger) error {
	store, err := cleaker_sdk.NewSeededMock(flags.seed)
	if err != nil {
		return err
	}
	failCfg, err := parseFailConfig(flags.fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	listener, err := net.Listen("tcp", flags.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", flags.addr, err)
	}
	server := &http.Server{
		Handler:           withMiddleware(flags.latency, failCfg, logger, store.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	host := listener.Addr().String()
	if strings.HasPrefix(flags.addr, ":") {
		host = "localhost" + flags.addr
	}
	logger.Info("cleaker-sandbox listening", zap.String("addr", listener.Addr().String()))
	fmt.Println()
	fmt.Printf("export %s=%s\n", cleaker_sdk.EnvMode, cleaker_sdk.ModeHTTP)
	fmt.Printf("export %s=http://%s/graphql\n", ledger.EnvEndpoint, host)
	fmt.Println()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
