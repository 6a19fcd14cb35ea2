package handler

import (
	"time"

	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/internal/service"
	internalWS "ai-quiz-generator-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const defaultPollInterval = time.Second

type ProgressHandler struct {
	service      service.IQuizService
	pollInterval time.Duration
	logger       logger.ILogger
}

func NewProgressHandler(service service.IQuizService, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		service:      service,
		pollInterval: defaultPollInterval,
		logger:       log,
	}
}

// ServeWs pushes progress snapshots of one quiz until it completes or fails.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	quizId, err := uuid.Parse(c.Params("quizId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quiz id")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting progress stream", map[string]interface{}{"quiz_id": quizId})
			internalWS.ServeProgress(conn, quizId, h.service.GetProgress, h.pollInterval, h.logger)
			h.logger.Info("ProgressHandler", "Progress stream ended", map[string]interface{}{"quiz_id": quizId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/quiz/v1/progress/:quizId/ws", h.ServeWs)
}
