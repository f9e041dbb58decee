package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/tripledger/bookings/internal/api"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction API over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Log
			ctx := cmd.Context()

			app := api.NewApp(extractor.New(g.cfg.ProbeTimeout))

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + port
				log.Info().Str("addr", addr).Msg("HTTP API server starting")
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&port, "port", g.cfg.HTTPPort, "listen port")
	return cmd
}
