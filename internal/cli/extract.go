package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/export"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/internal/normalize"
	"github.com/tripledger/bookings/pkg/logger"
)

func newExtractCmd(g *globals) *cobra.Command {
	var (
		template bool
		out      string
		summary  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <page.html>",
		Short: "Extract bookings from a saved trips page without a browser.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Log

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}

			var raws []models.RawBooking
			if template {
				raws = extractor.FromHTML(string(data))
			} else {
				page, err := dom.NewStatic(string(data))
				if err != nil {
					return err
				}
				raws = extractor.New(g.cfg.ProbeTimeout).Extract(cmd.Context(), page)
			}
			bookings := normalize.NormalizeAll(raws)
			log.Info().Int("raw", len(raws)).Int("bookings", len(bookings)).Str("file", args[0]).Msg("extracted")

			if out == "" {
				if err := export.WriteCSV(cmd.OutOrStdout(), bookings); err != nil {
					return err
				}
			} else if err := export.WriteCSVFile(out, bookings); err != nil {
				return err
			}

			if summary {
				export.PrintSummary(cmd.ErrOrStderr(), bookings)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&template, "template", false, "match the fixed card template instead of the heuristics")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (stdout when empty)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a table of the bookings to stderr")
	return cmd
}
