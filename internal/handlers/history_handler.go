package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/comparecv/internal/middleware"
	"alfredoptarigan/comparecv/internal/models"
	"alfredoptarigan/comparecv/internal/repositories"
	"alfredoptarigan/comparecv/internal/services"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type HistoryHandler struct {
	history      services.HistoryService
	authRequired bool
}

// NewHistoryHandler builds the handler. With authRequired set, analyses
// saved without a user are no longer served.
func NewHistoryHandler(history services.HistoryService, authRequired bool) *HistoryHandler {
	return &HistoryHandler{history: history, authRequired: authRequired}
}

func (h *HistoryHandler) HandleList(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	histories, err := h.history.List(user.ID, queryLimit(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  histories,
		"count": len(histories),
	})
}

func (h *HistoryHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid history ID format",
		})
	}

	history, err := h.history.Get(id)
	if err != nil {
		if errors.Is(err, repositories.ErrHistoryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Analysis not found",
			})
		}
		return errorResponse(c, err)
	}

	// Other users' analyses are reported as missing.
	if !h.canRead(history, middleware.CurrentUser(c)) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis not found",
		})
	}

	return c.JSON(history)
}

func (h *HistoryHandler) canRead(history *models.AnalysisHistory, user *models.User) bool {
	if history.UserID == nil {
		return !h.authRequired
	}
	return user != nil && user.ID == *history.UserID
}

func (h *HistoryHandler) HandleSimilar(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query parameter 'q' is required",
		})
	}

	user := middleware.CurrentUser(c)
	similar, err := h.history.FindSimilar(c.UserContext(), query, user.ID, queryLimit(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  similar,
		"count": len(similar),
	})
}

func queryLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
