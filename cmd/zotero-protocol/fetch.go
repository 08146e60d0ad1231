package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/config"
)

func fetchCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <zotero-uri>",
		Short: "Dispatch one URI and print the result",
		Long: `Fetch resolves a single zotero:// URI in-process and writes the body to
stdout. It fails when the channel stops with anything but success.`,
		Example: `  zotero-protocol fetch 'zotero://report/library/items/report.html?sort=date/d'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return errors.Join(
				fetch(cmd.Context(), a.handler, args[0], cmd.OutOrStdout()),
				a.close(context.WithoutCancel(cmd.Context())),
			)
		},
	}
	return cmd
}

// fetch writes the body of uri to w.
func fetch(ctx context.Context, factory zotero.ChannelFactory, uri string, w io.Writer) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parse %s: %w", uri, err)
	}
	ch, err := factory.NewChannel(ctx, u)
	if err != nil {
		return err
	}

	l := &zotero.BufferListener{}
	if err := ch.Open(ctx, l); err != nil {
		return err
	}
	body, status, err := l.Result()
	if _, werr := w.Write(body); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", uri, err)
	}
	if status != zotero.StatusOK {
		return fmt.Errorf("%s: stopped with %s", uri, status)
	}
	return nil
}
