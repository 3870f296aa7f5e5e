package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/comparecv/internal/middleware"
	"alfredoptarigan/comparecv/internal/services"
)

// AnalyzeHandler runs a whole analysis in one request on a throwaway session.
type AnalyzeHandler struct {
	store services.SessionStore
}

func NewAnalyzeHandler(store services.SessionStore) *AnalyzeHandler {
	return &AnalyzeHandler{store: store}
}

func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	var jobDescription string
	if values := form.Value["job_description"]; len(values) > 0 {
		jobDescription = values[0]
	}

	headers := form.File["files"]
	files := make([]services.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.IncomingFromMultipart(fh))
	}

	user := middleware.CurrentUser(c)
	run := h.store.Create(userID(user))
	defer h.store.Delete(run.ID)

	if _, err := h.store.SetJobDescription(run.ID, jobDescription); err != nil {
		return errorResponse(c, err)
	}

	var notices []services.IngestionNotice
	if len(files) > 0 {
		if _, notices, err = h.store.AddFiles(c.UserContext(), run.ID, files); err != nil {
			return errorResponse(c, err)
		}
	}

	run, err = h.store.Analyze(c.UserContext(), run.ID, user)
	if err != nil {
		return errorResponse(c, err)
	}

	status := fiber.StatusOK
	switch run.State {
	case services.StateInvalidJobDescription, services.StateNoValidResume:
		status = fiber.StatusUnprocessableEntity
	case services.StateFailed:
		status = fiber.StatusBadGateway
	}

	response := toSessionResponse(run)
	if status != fiber.StatusOK {
		return c.Status(status).JSON(fiber.Map{
			"error":   run.ErrorMessage,
			"state":   response.State,
			"notices": noticeMessages(notices),
		})
	}

	return c.JSON(fiber.Map{
		"report":  response.Report,
		"notices": noticeMessages(notices),
	})
}
