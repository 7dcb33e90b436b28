package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/icnetwork/decentralization/internal/api"
	"github.com/icnetwork/decentralization/internal/config"
	"github.com/icnetwork/decentralization/internal/nodestore"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", "", "path to a TOML config file (defaults applied if omitted)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the subnetctl HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		store, err := nodestore.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open node store: %w", err)
		}
		defer store.Close()

		srv := api.NewServer(store)
		if cfg.Metrics.Enabled {
			srv.EnableMetrics()
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("subnetctl: listening on %s\n", addr)
		return http.ListenAndServe(addr, srv.Handler())
	},
}
