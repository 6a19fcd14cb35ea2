package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/internal/pkg/serverutils"
	"ai-quiz-generator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopQuizService struct {
	service.IQuizService
}

func (noopQuizService) GetProgress(context.Context, uuid.UUID) (*dto.QuizProgressResponse, error) {
	return &dto.QuizProgressResponse{Status: "COMPLETED", Progress: 100}, nil
}

func TestProgressHandler_RejectsPlainRequests(t *testing.T) {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewProgressHandler(noopQuizService{}, logger.NewNopLogger()).RegisterRoutes(app)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"bad id", "/quiz/v1/progress/nope/ws", fiber.StatusBadRequest},
		{"no upgrade", "/quiz/v1/progress/" + uuid.NewString() + "/ws", fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
