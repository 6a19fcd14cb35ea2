package nats

import (
	"testing"
	"time"

	"ai-quiz-generator-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	evt := events.QuizGenerationCompleted{QuizId: uuid.New(), TotalQuestions: 4, Duration: 2 * time.Second, OccurredAt: occurred}

	decoded, err := DecodeEvent(Subject(evt), []byte(`{"quiz_id":"`+evt.QuizId.String()+`","total_questions":4,"occurred_at":"2026-03-01T10:00:00Z"}`))

	require.NoError(t, err)
	assert.Equal(t, events.TypeQuizGenerationCompleted, decoded.EventType())
	assert.Equal(t, evt.QuizId.String(), decoded.Payload()["quiz_id"])
	assert.True(t, occurred.Equal(decoded.Timestamp()))
}

func TestDecodeEvent_InvalidJSON(t *testing.T) {
	_, err := DecodeEvent("events.quiz.generation.failed", []byte("{"))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.quiz.generation.failed", Subject(events.QuizGenerationFailed{}))
}
