package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analyzer"
	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/collect"
	"github.com/fluxbase-eu/pageweight/internal/design"
)

// AnalyzeRequest is the body of POST /api/v1/analyze: a full design snapshot
// plus run options. Manual estimates stored on the server are merged in
// unless the request carries its own.
type AnalyzeRequest struct {
	Snapshot json.RawMessage  `json:"snapshot"`
	Options  analyzer.Request `json:"options"`
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Snapshot) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "snapshot is required")
	}

	snapshot, err := design.ParseSnapshot(req.Snapshot)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if len(req.Options.ManualEstimates) == 0 {
		req.Options.ManualEstimates = s.manual.List()
	}

	a := analyzer.New(snapshot,
		analyzer.WithContentAPI(snapshot),
		analyzer.WithComponentScanner(snapshot),
		analyzer.WithPublisher(snapshot, s.client),
		analyzer.WithMeasurer(s.client),
		analyzer.WithMetrics(s.metrics),
		analyzer.WithTracer(s.tracer),
		analyzer.WithPageConcurrency(s.config.Analyzer.PageConcurrency),
		analyzer.WithCanvasOptions(
			collect.WithBatchSize(s.config.Analyzer.TraversalBatchSize),
			collect.WithMaxDepth(s.config.Analyzer.MaxTraversalDepth),
			collect.WithConcurrency(s.config.Analyzer.TraversalConcurrency),
		),
	)

	report, err := a.Analyze(c.UserContext(), req.Options)
	if err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		return statusError(err)
	}
	return c.JSON(report)
}

func (s *Server) handleListManual(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"estimates": s.manual.List()})
}

func (s *Server) handleAddManual(c *fiber.Ctx) error {
	var entry collect.ManualEstimate
	if err := c.BodyParser(&entry); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	added, err := s.manual.Add(entry)
	if err != nil {
		return statusError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (s *Server) handleUpdateManual(c *fiber.Ctx) error {
	var entry collect.ManualEstimate
	if err := c.BodyParser(&entry); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	entry.ID = c.Params("id")
	if err := s.manual.Update(entry); err != nil {
		return statusError(err)
	}
	return c.JSON(entry)
}

func (s *Server) handleRemoveManual(c *fiber.Ctx) error {
	s.manual.Remove(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// statusError maps pipeline error kinds to HTTP statuses.
func statusError(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case apperr.KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case apperr.KindAPI, apperr.KindNetwork:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
