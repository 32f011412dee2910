package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seenimoa/coveredcall/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		if host == "" {
			host = cfg.API.Host
		}
		if port == 0 {
			port = cfg.API.Port
		}

		srv, err := api.NewServer(cfg, version)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("Starting coveredcall API server on %s (mode: %s, provider: %s)\n",
			addr, cfg.Pipeline.Mode, cfg.Provider.Name)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "bind host (default: config)")
	serveCmd.Flags().Int("port", 0, "bind port (default: config)")
}
