package cli

import (
	"github.com/spf13/cobra"
	"github.com/tripledger/bookings/internal/browser"
	"github.com/tripledger/bookings/pkg/logger"
)

func newCacheCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the saved login session.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the saved session so the next export logs in again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := browser.NewSessionStore(g.cfg.SessionPath())
			if err := store.Delete(); err != nil {
				return err
			}
			logger.Log.Info().Str("path", store.Path()).Msg("session deleted")
			return nil
		},
	})
	return cmd
}
