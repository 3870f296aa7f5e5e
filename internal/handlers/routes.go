package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/comparecv/internal/middleware"
)

type Router struct {
	Auth    *middleware.Auth
	Session *SessionHandler
	Analyze *AnalyzeHandler
	// History is nil when persistence is disabled.
	History *HistoryHandler
}

func (r *Router) Register(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	auth := r.Auth.Middleware()

	sessions := api.Group("/sessions", auth)
	sessions.Post("/", r.Session.HandleCreate)
	sessions.Get("/:id", r.Session.HandleGet)
	sessions.Delete("/:id", r.Session.HandleDelete)
	sessions.Put("/:id/job-description", r.Session.HandleSetJobDescription)
	sessions.Post("/:id/files", r.Session.HandleAddFiles)
	sessions.Delete("/:id/files/:index", r.Session.HandleRemoveFile)
	sessions.Post("/:id/analyze", r.Session.HandleAnalyze)
	sessions.Post("/:id/retry", r.Session.HandleRetry)
	sessions.Post("/:id/reset", r.Session.HandleReset)

	api.Post("/analyze", auth, r.Analyze.HandleAnalyze)

	if r.History != nil {
		history := api.Group("/history", auth)
		history.Get("/", middleware.RequireUser(), r.History.HandleList)
		history.Get("/similar", middleware.RequireUser(), r.History.HandleSimilar)
		history.Get("/:id", r.History.HandleGet)
	}
}

// Endpoints lists the routes for the root index.
func (r *Router) Endpoints() []string {
	endpoints := []string{
		"GET /api/v1/health",
		"POST /api/v1/sessions",
		"GET /api/v1/sessions/:id",
		"DELETE /api/v1/sessions/:id",
		"PUT /api/v1/sessions/:id/job-description",
		"POST /api/v1/sessions/:id/files",
		"DELETE /api/v1/sessions/:id/files/:index",
		"POST /api/v1/sessions/:id/analyze",
		"POST /api/v1/sessions/:id/retry",
		"POST /api/v1/sessions/:id/reset",
		"POST /api/v1/analyze",
	}
	if r.History != nil {
		endpoints = append(endpoints,
			"GET /api/v1/history",
			"GET /api/v1/history/similar?q=",
			"GET /api/v1/history/:id",
		)
	}
	return endpoints
}

// ErrorHandler renders unhandled errors in the API's error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
