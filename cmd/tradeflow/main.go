// Command tradeflow is the host process (C10, §4.10): it loads
// configuration, sets up logging, wires the in-memory store into an Engine,
// serves the HTTP API, optionally runs the demo scenarios, and shuts down
// cleanly on SIGINT/SIGTERM. Startup failures are fatal per the teacher's
// fail-fast convention (nholding-cso-book/main.go).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nholding/tradeflow/internal/config"
	"github.com/nholding/tradeflow/internal/engine"
	"github.com/nholding/tradeflow/internal/httpapi"
	"github.com/nholding/tradeflow/internal/logging"
	"github.com/nholding/tradeflow/internal/scenario"
	"github.com/nholding/tradeflow/internal/store"
)

const configPath = "tradeflow.yaml"

func main() {
	root := &cobra.Command{
		Use:           "tradeflow",
		Short:         "Trade approval workflow engine host",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	cfg, err := config.LoadWithS3Override(ctx, fs, configPath, "tradeflow.yaml")
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	eng := engine.New(store.NewMemStore())

	if cfg.Features.DevMode {
		if err := scenario.Run(eng, log); err != nil {
			log.Error("scenario run failed", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: httpapi.NewRouter(eng, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
