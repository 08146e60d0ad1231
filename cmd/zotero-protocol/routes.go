package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/config"
)

func routesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List registered extensions in dispatch order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, io.Discard)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			printRoutes(cmd.OutOrStdout(), a.handler.Extensions())
			return nil
		},
	}
}

func printRoutes(w io.Writer, exts []zotero.ExtensionInfo) {
	for _, e := range exts {
		line := e.Prefix
		if e.Privileged {
			line += " (privileged)"
		}
		fmt.Fprintln(w, line)
	}
}
