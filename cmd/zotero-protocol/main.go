package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "zotero-protocol",
		Short: "Serve zotero:// content",
		Long: `zotero-protocol dispatches zotero:// URIs to the built-in extensions
(data, report, timeline, attachment, select, fullscreen, debug and
connector) and serves the results over HTTP.

Configuration is read from a YAML file and ZOTERO_* environment variables.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		serveCmd(&configPath),
		fetchCmd(&configPath),
		routesCmd(&configPath),
	)
	return root
}
