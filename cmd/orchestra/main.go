package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/orchestra/config"
	srv "github.com/mohammad-safakhou/orchestra/internal/server"
)

func main() {
	root := &cobra.Command{Use: "orchestra"}
	root.AddCommand(serveCMD())
	_ = root.Execute()
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return serve
}
