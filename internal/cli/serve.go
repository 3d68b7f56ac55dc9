package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/me/tinykern/internal/config"
	"github.com/me/tinykern/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("run database disabled (--db=none)")
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			cfg := config.DefaultServeConfig()
			cfg.Addr = flagAddr

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, st, logger).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", ":8080", "Listen address")
	return cmd
}
