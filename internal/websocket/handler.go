package websocket

import (
	"time"

	"ai-quiz-generator-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeProgress streams progress for quizId over c and returns once the job
// is terminal or the peer disconnects.
func ServeProgress(c *websocket.Conn, quizId uuid.UUID, source ProgressSource, interval time.Duration, log logger.ILogger) {
	client := &Client{
		Conn:         c,
		QuizID:       quizId,
		Source:       source,
		PollInterval: interval,
		logger:       log,
		done:         make(chan struct{}),
	}

	go client.readPump()
	client.writePump()
	<-client.done
}
