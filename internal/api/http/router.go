package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Cases         *handlers.CasesHandler
	SummaryDrafts *handlers.SummaryDraftsHandler
	Actors        *auth.ActorResolver
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api", cfg.Actors.Handle)

	cases := api.Group("/cases")
	cases.Post("", cfg.Cases.CreateCase)
	cases.Get("", cfg.Cases.ListCases)
	cases.Get("/:id", cfg.Cases.GetCase)
	cases.Put("/:id", cfg.Cases.UpdateCase)
	cases.Delete("/:id", cfg.Cases.DeleteCase)

	cases.Post("/:id/notes", cfg.Cases.AddNote)
	cases.Put("/:id/notes/:noteId", cfg.Cases.UpdateNote)
	cases.Delete("/:id/notes/:noteId", cfg.Cases.DeleteNote)

	cases.Get("/:id/activity", cfg.Cases.Activity)
	cases.Get("/:id/audit/verify", cfg.Cases.VerifyAudit)

	drafts := cases.Group("/:id/summary-drafts")
	drafts.Post("", cfg.SummaryDrafts.CreateDraft)
	drafts.Get("/:draftId", cfg.SummaryDrafts.GetDraft)
	drafts.Post("/:draftId/accept", cfg.SummaryDrafts.AcceptDraft)
	drafts.Post("/:draftId/reject", cfg.SummaryDrafts.RejectDraft)
}
