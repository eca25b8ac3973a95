package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arencloud/s3lister/internal/api"
	"github.com/arencloud/s3lister/internal/config"
	"github.com/arencloud/s3lister/internal/db"
	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/s3"
	"github.com/arencloud/s3lister/internal/version"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "s3lister",
		Short:         "Serve the S3 buckets visible to the configured credentials as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file")
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	})
	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg)

	client, err := s3.New(ctx, s3.Options{
		Region:    cfg.AWSRegion,
		Endpoint:  cfg.S3Endpoint,
		Provider:  cfg.S3Provider,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, logger)
	if err != nil {
		return err
	}

	var store api.TraceStore
	if cfg.DBDsn != "" {
		s, err := db.Open(cfg.DBDsn, logger)
		if err != nil {
			return err
		}
		store = s
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           api.Router(cfg, logger, client, store),
		ReadHeaderTimeout: 15 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "version", version.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
