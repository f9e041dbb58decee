package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/tripledger/bookings/internal/export"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/internal/mailbox"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/internal/normalize"
	"github.com/tripledger/bookings/internal/scrape"
	"github.com/tripledger/bookings/pkg/logger"
)

var errNoCredentials = errors.New("BOOKING_EMAIL and BOOKING_PASSWORD must be set, or pass --email-fallback")

type exportFlags struct {
	from, to      string
	out           string
	noHeadless    bool
	remoteURL     string
	emailFallback string
	summary       bool
}

// fetcher is replaced in tests to keep the browser out of the loop.
var fetcher = func(ctx context.Context, g *globals, f *exportFlags) ([]models.RawBooking, error) {
	s := scrape.New(g.cfg, scrape.Options{
		Headless:  !f.noHeadless,
		Debug:     g.debug,
		RemoteURL: f.remoteURL,
	})
	return s.Fetch(ctx)
}

func newExportCmd(g *globals) *cobra.Command {
	f := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Log in, collect past reservations and write them to CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, g, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.from, "from", "", "keep stays starting on or after this date (YYYY-MM-DD)")
	flags.StringVar(&f.to, "to", "", "keep stays starting on or before this date (YYYY-MM-DD)")
	flags.StringVarP(&f.out, "out", "o", "./bookings.csv", "output CSV path")
	flags.BoolVar(&f.noHeadless, "no-headless", false, "show the browser window, needed to solve a captcha or 2FA")
	flags.StringVar(&f.remoteURL, "remote-url", "", "attach to a running Chrome DevTools endpoint")
	flags.StringVar(&f.emailFallback, "email-fallback", "", "parse confirmation emails (.mbox or .eml) when scraping is unavailable")
	flags.BoolVar(&f.summary, "summary", false, "print a table of the exported bookings")
	return cmd
}

func runExport(cmd *cobra.Command, g *globals, f *exportFlags) error {
	log := logger.Log
	ctx := cmd.Context()

	from, err := parseDateFlag("from", f.from)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", f.to)
	if err != nil {
		return err
	}

	if !g.cfg.HasCredentials() && f.emailFallback == "" {
		return &ExitError{Code: 2, Err: errNoCredentials}
	}

	raws, err := collectRaw(ctx, g, f)
	if err != nil {
		return err
	}

	bookings := normalize.FilterByDate(normalize.NormalizeAll(raws), from, to)
	if len(raws) == 0 {
		log.Info().Msg("no bookings found; try --no-headless or check the page with --debug")
	}

	if err := export.WriteCSVFile(f.out, bookings); err != nil {
		return err
	}
	log.Info().Int("rows", len(bookings)).Str("path", f.out).Msg("wrote bookings")

	if f.summary {
		export.PrintSummary(cmd.OutOrStdout(), bookings)
	}
	return nil
}

// collectRaw scrapes when credentials exist and falls back to the mail
// archive when scraping fails or is not configured.
func collectRaw(ctx context.Context, g *globals, f *exportFlags) ([]models.RawBooking, error) {
	log := logger.Log

	if g.cfg.HasCredentials() {
		raws, err := fetcher(ctx, g, f)
		if err == nil || f.emailFallback == "" || errors.Is(err, context.Canceled) {
			return raws, err
		}
		log.Warn().Err(err).Str("path", f.emailFallback).Msg("scrape failed, using email fallback")
	}

	return mailbox.ParseFile(ctx, f.emailFallback, extractor.New(g.cfg.ProbeTimeout))
}
