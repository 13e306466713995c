package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/blob"
	"github.com/autom8ter/ideabase/store"
	_ "github.com/autom8ter/ideabase/store/badger"
	_ "github.com/autom8ter/ideabase/store/mongo"
	transport "github.com/autom8ter/ideabase/transport/http"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the http server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg, err := ideabase.LoadConfig(envPrefix)
			if err != nil {
				return err
			}
			logger, err := ideabase.NewLogger(cfg.LogLevel, map[string]any{"service": "ideabase"})
			if err != nil {
				return err
			}
			s, err := store.Open(ctx, cfg.Store.Provider, cfg.Store.Params())
			if err != nil {
				return err
			}
			adapter := ideabase.NewAdapter(s,
				ideabase.WithLogger(logger),
				ideabase.WithRetryPolicy(cfg.Retry),
				ideabase.WithCollections(cfg.Collections...),
			)
			defer adapter.Close(context.Background())
			files, err := blob.New(cfg.Blob)
			if err != nil {
				return err
			}
			if !files.Enabled() {
				logger.Warn(ctx, "blob storage is not configured: uploads are disabled", map[string]any{})
			}
			server, err := transport.New(transport.Config{
				Port:        cfg.Port,
				MaxUploadMB: cfg.Blob.MaxFileSizeMB,
			}, adapter,
				transport.WithLogger(logger),
				transport.WithBlobStore(files),
				transport.WithAuthenticator(auth.NewAuthenticator(cfg.Session)),
			)
			if err != nil {
				return err
			}
			logger.Info(ctx, "serving", map[string]any{
				"store.provider": cfg.Store.Provider,
				"collections":    adapter.Collections(),
			})
			return server.Serve(ctx)
		},
	}
}
