package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	quizService IQuizService
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	quizService IQuizService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		quizService: quizService,
		logger:      log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	// The subscriber hands over the next message only after the previous ack, so ack on
	// receipt and run each job on its own goroutine. A slow generation must not hold back
	// jobs for other quizzes while their admission locks age.
	go func() {
		for msg := range messages {
			msg.Ack()
			go cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage never redelivers: a failed job is already recorded as FAILED and its
// lock released, so a second run would go ahead without a lock.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishQuizGenerationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if err := cs.quizService.ProcessQueued(ctx, &payload); err != nil {
		var labeled LabeledError
		label := "unknown"
		if errors.As(err, &labeled) {
			label = labeled.Label()
		}
		cs.logger.Warn("CONSUMER", "Queued quiz generation failed", map[string]interface{}{
			"message_id": msg.UUID,
			"quiz_id":    payload.QuizId.String(),
			"label":      label,
		})
		return
	}

	cs.logger.Info("CONSUMER", "Queued quiz generation finished", map[string]interface{}{
		"message_id": msg.UUID,
		"quiz_id":    payload.QuizId.String(),
	})
}
