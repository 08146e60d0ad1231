package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/config"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve zotero:// content over HTTP",
		Long: `Serve dispatches GET /<extension>/<path> as zotero://<extension>/<path>
and streams the result. It also exposes /health/live, /health/ready,
/metrics and the /_connector page store. It runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, os.Stdout)
			if err != nil {
				return err
			}

			runOpts := []zotero.RunOption{
				zotero.WithContext(ctx),
				zotero.Address(cfg.Server.Addr),
				zotero.Logger(a.log),
				zotero.Timeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
				zotero.ShutdownTimeout(cfg.Server.ShutdownTimeout),
			}
			for _, hook := range a.hooks {
				runOpts = append(runOpts, zotero.ShutdownHook(hook))
			}

			a.log.InfoContext(ctx, "starting zotero protocol server",
				slog.String("version", version),
				slog.Int("extensions", len(a.handler.Extensions())),
			)
			return zotero.RunServer(a.bridge().Routes(), runOpts...)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
