// Package mailbox reads booking confirmation emails as a fallback source when
// the website cannot be scraped.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/pkg/logger"
)

// ParseFile reads an .mbox archive or a single .eml message. Messages that
// cannot be parsed are logged and skipped.
func ParseFile(ctx context.Context, path string, ex *extractor.Extractor) ([]models.RawBooking, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mail file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".mbox") {
		return ParseMbox(ctx, f, ex)
	}
	return ParseMessage(ctx, f, ex)
}

func ParseMbox(ctx context.Context, r io.Reader, ex *extractor.Extractor) ([]models.RawBooking, error) {
	log := logger.Log

	mr := mbox.NewReader(r)
	seen := map[string]struct{}{}
	var raws []models.RawBooking

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return raws, err
		}
		msg, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return raws, fmt.Errorf("read mbox: %w", err)
		}

		found, err := ParseMessage(ctx, msg, ex)
		if err != nil {
			log.Warn().Err(err).Int("message", i).Msg("skipping unreadable message")
			continue
		}
		for _, raw := range found {
			if _, dup := seen[raw.Key()]; dup {
				continue
			}
			seen[raw.Key()] = struct{}{}
			raws = append(raws, raw)
		}
	}

	log.Info().Int("bookings", len(raws)).Msg("mailbox parsed")
	return raws, nil
}

// ParseMessage extracts bookings from the HTML parts of one message. When no
// card is recognised the whole body is read as a single booking.
func ParseMessage(ctx context.Context, r io.Reader, ex *extractor.Extractor) ([]models.RawBooking, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	subject, _ := mr.Header.Subject()

	var raws []models.RawBooking
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return raws, fmt.Errorf("read part: %w", err)
		}
		if part == nil {
			continue
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if ct, _, _ := h.ContentType(); ct != "text/html" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return raws, fmt.Errorf("read html part: %w", err)
		}
		found, err := fromHTML(ctx, string(body), ex)
		if err != nil {
			return raws, err
		}
		raws = append(raws, found...)
	}

	logger.Log.Debug().Str("subject", subject).Int("bookings", len(raws)).Msg("message parsed")
	return raws, nil
}

func fromHTML(ctx context.Context, html string, ex *extractor.Extractor) ([]models.RawBooking, error) {
	page, err := dom.NewStatic(html)
	if err != nil {
		return nil, fmt.Errorf("parse html part: %w", err)
	}

	if raws := ex.Extract(ctx, page); len(raws) > 0 {
		return raws, nil
	}

	body, err := page.FindCSS(ctx, "body")
	if err != nil {
		return nil, err
	}
	return ex.Records(ctx, body), nil
}
