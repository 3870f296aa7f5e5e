package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/comparecv/internal/middleware"
	"alfredoptarigan/comparecv/internal/models"
	"alfredoptarigan/comparecv/internal/services"
)

type SessionHandler struct {
	store    services.SessionStore
	validate *validator.Validate
}

func NewSessionHandler(store services.SessionStore) *SessionHandler {
	return &SessionHandler{
		store:    store,
		validate: validator.New(),
	}
}

func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	run := h.store.Create(userID(middleware.CurrentUser(c)))
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(run))
}

func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	run, err := h.ownedRun(c)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}

func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	run, err := h.ownedRun(c)
	if err != nil {
		return errorResponse(c, err)
	}
	h.store.Delete(run.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// ownedRun loads the session named in the path. Sessions that belong to
// another user are reported as missing.
func (h *SessionHandler) ownedRun(c *fiber.Ctx) (*services.Run, error) {
	run, err := h.store.Get(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if !run.AccessibleBy(userID(middleware.CurrentUser(c))) {
		return nil, services.ErrSessionNotFound
	}
	return run, nil
}

func (h *SessionHandler) HandleSetJobDescription(c *fiber.Ctx) error {
	var req models.JobDescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": services.MsgJobDescriptionEmpty,
		})
	}

	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.store.SetJobDescription(c.Params("id"), req.JobDescription)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}

func (h *SessionHandler) HandleAddFiles(c *fiber.Ctx) error {
	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": services.MsgNoFiles,
		})
	}

	files := make([]services.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.IncomingFromMultipart(fh))
	}

	run, notices, err := h.store.AddFiles(c.UserContext(), c.Params("id"), files)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"session": toSessionResponse(run),
		"notices": noticeMessages(notices),
	})
}

func (h *SessionHandler) HandleRemoveFile(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file index",
		})
	}

	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.store.RemoveFile(c.Params("id"), index)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}

// HandleAnalyze blocks until the model answers. Failures come back as a run
// in a failure state, not as an HTTP error.
func (h *SessionHandler) HandleAnalyze(c *fiber.Ctx) error {
	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.store.Analyze(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}

func (h *SessionHandler) HandleRetry(c *fiber.Ctx) error {
	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.store.Retry(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}

func (h *SessionHandler) HandleReset(c *fiber.Ctx) error {
	if _, err := h.ownedRun(c); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.store.Reset(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toSessionResponse(run))
}
