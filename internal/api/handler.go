package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/export"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/internal/normalize"
	"github.com/tripledger/bookings/pkg/logger"
)

const (
	ModeHeuristic = "heuristic"
	ModeTemplate  = "template"

	extractTimeout = 30 * time.Second
)

type ExtractRequest struct {
	HTML string `json:"html"`
	Mode string `json:"mode"`
	From string `json:"from"`
	To   string `json:"to"`
}

type ExtractResponse struct {
	Raw      int              `json:"raw"`
	Bookings []models.Booking `json:"bookings"`
}

type Handler struct {
	extractor *extractor.Extractor
}

func NewApp(ex *extractor.Extractor) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             10 * 1024 * 1024,
		ErrorHandler:          handleError,
	})
	SetupRoutes(app, &Handler{extractor: ex})
	return app
}

func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", handleHealth)
	app.Post("/api/extract", h.handleExtract)
	app.Post("/api/extract.csv", h.handleExtractCSV)
}

func handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) handleExtract(c *fiber.Ctx) error {
	raw, bookings, err := h.extract(c)
	if err != nil {
		return err
	}
	return c.JSON(ExtractResponse{Raw: raw, Bookings: bookings})
}

func (h *Handler) handleExtractCSV(c *fiber.Ctx) error {
	_, bookings, err := h.extract(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, bookings); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="bookings.csv"`)
	return c.Send(buf.Bytes())
}

// extract parses the request, runs extraction and normalization, and
// returns a fiber error carrying the status for bad input.
func (h *Handler) extract(c *fiber.Ctx) (int, []models.Booking, error) {
	log := logger.Log

	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.HTML == "" {
		return 0, nil, fiber.NewError(fiber.StatusBadRequest, "html is required")
	}

	from, err := parseBound(req.From)
	if err != nil {
		return 0, nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid from date: %q", req.From))
	}
	to, err := parseBound(req.To)
	if err != nil {
		return 0, nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid to date: %q", req.To))
	}

	var raws []models.RawBooking
	switch req.Mode {
	case ModeTemplate:
		raws = extractor.FromHTML(req.HTML)
	case "", ModeHeuristic:
		page, err := dom.NewStatic(req.HTML)
		if err != nil {
			return 0, nil, fiber.NewError(fiber.StatusBadRequest, "unparseable html")
		}
		ctx, cancel := context.WithTimeout(c.Context(), extractTimeout)
		defer cancel()
		raws = h.extractor.Extract(ctx, page)
	default:
		return 0, nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
	}

	bookings := normalize.FilterByDate(normalize.NormalizeAll(raws), from, to)

	log.Info().
		Str("mode", req.Mode).
		Int("html_len", len(req.HTML)).
		Int("raw", len(raws)).
		Int("bookings", len(bookings)).
		Msg("extract completed")

	return len(raws), bookings, nil
}

func parseBound(s string) (*models.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseISODate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
