package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/comparecv/internal/models"
	"alfredoptarigan/comparecv/internal/services"
)

func toSessionResponse(run *services.Run) models.SessionResponse {
	documents := make([]models.DocumentInfo, 0, len(run.Documents))
	for i, d := range run.Documents {
		documents = append(documents, models.DocumentInfo{
			Index:     i,
			FileName:  d.FileName,
			MIMEType:  d.MIMEType,
			SizeBytes: d.SizeBytes,
		})
	}

	response := models.SessionResponse{
		ID:             run.ID,
		State:          string(run.State),
		Generation:     run.Generation,
		JobDescription: run.JobDescription,
		Documents:      documents,
	}

	if run.ErrorMessage != "" {
		msg := run.ErrorMessage
		response.ErrorMessage = &msg
	}

	if run.State == services.StateDisplayed {
		response.Report = services.BuildReport(run.Result, run.Conformance)
	}

	return response
}

func noticeMessages(notices []services.IngestionNotice) []string {
	messages := make([]string, 0, len(notices))
	for _, n := range notices {
		messages = append(messages, n.Message)
	}
	return messages
}

// errorResponse maps service errors to HTTP statuses.
func errorResponse(c *fiber.Ctx, err error) error {
	var (
		ingestionErr *services.IngestionError
		preErr       *services.PreSubmissionError
	)

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	case errors.Is(err, services.ErrFileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.As(err, &ingestionErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ingestionErr.Message,
			"limit": ingestionErr.Limit,
		})
	case errors.As(err, &preErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    preErr.Error(),
			"problems": preErr.Problems,
		})
	}

	log.Printf("❌ Request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": services.MsgTechnicalFailure,
	})
}

func userID(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
