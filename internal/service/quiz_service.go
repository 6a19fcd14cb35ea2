package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/mapper"
	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/internal/repository/specification"
	"ai-quiz-generator-be/internal/repository/unitofwork"
	"ai-quiz-generator-be/pkg/coordinator"
	"ai-quiz-generator-be/pkg/events"
	"ai-quiz-generator-be/pkg/generation/prompt"
	"ai-quiz-generator-be/pkg/llm"
	"ai-quiz-generator-be/pkg/metrics"
	"ai-quiz-generator-be/pkg/outputparser"
	"ai-quiz-generator-be/pkg/quiz"
	"ai-quiz-generator-be/pkg/retriever"
	"ai-quiz-generator-be/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("ai-quiz-generator-be/service")

var requestedCountPattern = regexp.MustCompile(`(?i)(\d+)\s*(questions?|câu|items?|mcqs?)`)

const eventPublishTimeout = 5 * time.Second

// SourceMaterial is the course content questions are drawn from.
type SourceMaterial struct {
	Passages []string
}

// GenerationRequest is one generate-and-persist job. A nil Material generates from the
// prompt alone.
type GenerationRequest struct {
	QuizID   uuid.UUID
	Prompt   string
	Skills   []string
	Material *SourceMaterial
}

type QuizServiceConfig struct {
	MinPromptLength  int
	MaxPromptLength  int
	MinPromptWords   int
	MaxQuestionCount int // 0 disables the cap

	ChunkSize    int
	ChunkOverlap int

	TopK            int // 0 uses the retriever's CandidatesN
	MaxOutputTokens int
	Temperature     float64
}

func DefaultQuizServiceConfig() QuizServiceConfig {
	return QuizServiceConfig{
		MinPromptLength:  10,
		MaxPromptLength:  2000,
		MinPromptWords:   3,
		MaxQuestionCount: 50,
		ChunkSize:        1000,
		ChunkOverlap:     200,
		MaxOutputTokens:  4096,
		Temperature:      0.7,
	}
}

// IEventPublisher is satisfied by the NATS publisher.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IQuizService interface {
	// Create admits an asynchronous job: the lock is taken here and handed to the worker.
	Create(ctx context.Context, req *dto.CreateQuizRequest) (*dto.CreateQuizResponse, error)
	Generate(ctx context.Context, req *dto.CreateQuizRequest) (*dto.GenerateQuizResponse, error)
	GenerateQuestions(ctx context.Context, req GenerationRequest) ([]quiz.QuestionDraft, error)
	ProcessQueued(ctx context.Context, msg *dto.PublishQuizGenerationMessage) error
	GetProgress(ctx context.Context, quizId uuid.UUID) (*dto.QuizProgressResponse, error)
	DeleteProgress(ctx context.Context, quizId uuid.UUID) error
	ListQuestions(ctx context.Context, req *dto.ListQuestionsRequest) (*dto.QuizQuestionsResponse, error)
}

type quizService struct {
	coordinator *coordinator.Coordinator
	retrievers  *retriever.Factory
	llm         llm.LLMProvider
	parser      *outputparser.Parser[quiz.Document]
	uowFactory  unitofwork.RepositoryFactory
	publisher   IPublisherService
	events      IEventPublisher
	mapper      *mapper.QuestionMapper
	config      QuizServiceConfig
	logger      logger.ILogger
}

func NewQuizService(
	coord *coordinator.Coordinator,
	retrievers *retriever.Factory,
	llmProvider llm.LLMProvider,
	uowFactory unitofwork.RepositoryFactory,
	publisher IPublisherService,
	eventPublisher IEventPublisher,
	config QuizServiceConfig,
	log logger.ILogger,
) IQuizService {
	return &quizService{
		coordinator: coord,
		retrievers:  retrievers,
		llm:         llmProvider,
		parser:      outputparser.New[quiz.Document]((*quiz.Document).Validate),
		uowFactory:  uowFactory,
		publisher:   publisher,
		events:      eventPublisher,
		mapper:      mapper.NewQuestionMapper(),
		config:      config,
		logger:      log,
	}
}

func (s *quizService) Create(ctx context.Context, req *dto.CreateQuizRequest) (*dto.CreateQuizResponse, error) {
	genReq := s.toGenerationRequest(req)
	if err := s.validatePrompt(genReq.Prompt); err != nil {
		return nil, err
	}

	resourceID := genReq.QuizID.String()
	guard, err := s.coordinator.AcquireLock(ctx, resourceID, 0)
	if err != nil {
		return nil, s.lockError(resourceID, err)
	}

	job := s.coordinator.NewJob(resourceID)
	if err := job.Pending(ctx, "Quiz creation queued"); err != nil {
		guard.Release(ctx)
		return nil, err
	}

	msg := dto.PublishQuizGenerationMessage{
		QuizId:     genReq.QuizID,
		Prompt:     genReq.Prompt,
		Skills:     genReq.Skills,
		LockToken:  guard.Token(),
		EnqueuedAt: time.Now(),
	}
	if genReq.Material != nil {
		msg.Passages = genReq.Material.Passages
	}

	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.publisher.Publish(ctx, payload)
	}
	if err != nil {
		failure := &GenerationError{Err: fmt.Errorf("enqueue job: %w", err)}
		s.fail(ctx, genReq.QuizID, job, failure)
		guard.Release(ctx)
		return nil, failure
	}

	s.logger.Info("QUIZ", "Quiz generation queued", map[string]interface{}{
		"quiz_id":  resourceID,
		"passages": len(msg.Passages),
		"degraded": guard.Degraded(),
	})

	return &dto.CreateQuizResponse{
		QuizId:  genReq.QuizID,
		Status:  string(coordinator.StatusPending),
		Message: fmt.Sprintf("Quiz generation started, poll /api/quiz/v1/progress/%s for progress", resourceID),
	}, nil
}

func (s *quizService) Generate(ctx context.Context, req *dto.CreateQuizRequest) (*dto.GenerateQuizResponse, error) {
	drafts, err := s.GenerateQuestions(ctx, s.toGenerationRequest(req))
	if err != nil {
		return nil, err
	}
	return &dto.GenerateQuizResponse{
		QuizId:         req.QuizId,
		TotalQuestions: len(drafts),
		Questions:      drafts,
	}, nil
}

// GenerateQuestions runs a whole job under the quiz lock. Every failure is recorded as
// FAILED and returned as a LabeledError; the lock is released on all paths.
func (s *quizService) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]quiz.QuestionDraft, error) {
	if err := s.validatePrompt(req.Prompt); err != nil {
		return nil, err
	}

	resourceID := req.QuizID.String()
	guard, err := s.coordinator.AcquireLock(ctx, resourceID, 0)
	if err != nil {
		return nil, s.lockError(resourceID, err)
	}
	defer guard.Release(ctx)

	job := s.coordinator.NewJob(resourceID)
	if err := job.Pending(ctx, "Starting quiz generation"); err != nil {
		return nil, err
	}

	return s.execute(ctx, req, job)
}

func (s *quizService) ProcessQueued(ctx context.Context, msg *dto.PublishQuizGenerationMessage) error {
	req := GenerationRequest{
		QuizID: msg.QuizId,
		Prompt: msg.Prompt,
		Skills: msg.Skills,
	}
	if len(msg.Passages) > 0 {
		req.Material = &SourceMaterial{Passages: msg.Passages}
	}

	resourceID := req.QuizID.String()
	guard := s.coordinator.Resume(resourceID, msg.LockToken)
	defer guard.Release(ctx)

	s.logger.Info("QUIZ", "Processing queued quiz generation", map[string]interface{}{
		"quiz_id":   resourceID,
		"queued_ms": time.Since(msg.EnqueuedAt).Milliseconds(),
	})

	job := s.coordinator.ResumeJob(resourceID, coordinator.StatusPending)
	_, err := s.execute(ctx, req, job)
	return err
}

func (s *quizService) execute(ctx context.Context, req GenerationRequest, job *coordinator.Job) ([]quiz.QuestionDraft, error) {
	ctx, span := tracer.Start(ctx, "QuizService.GenerateQuestions")
	defer span.End()
	span.SetAttributes(attribute.String("quiz_id", req.QuizID.String()))

	start := time.Now()
	drafts, err := s.run(ctx, req, job)
	if err != nil {
		failure := classify(err, func(e error) LabeledError { return &GenerationError{Err: e} })
		span.RecordError(failure)
		s.fail(ctx, req.QuizID, job, failure)
		return nil, failure
	}

	metrics.JobsTotal.WithLabelValues(string(coordinator.StatusCompleted), "").Inc()
	s.logger.Info("QUIZ", "Quiz generation completed", map[string]interface{}{
		"quiz_id":     req.QuizID.String(),
		"questions":   len(drafts),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	s.publishEvent(ctx, events.QuizGenerationCompleted{
		QuizId:         req.QuizID,
		TotalQuestions: len(drafts),
		Duration:       time.Since(start),
		OccurredAt:     time.Now(),
	})

	return drafts, nil
}

func (s *quizService) run(ctx context.Context, req GenerationRequest, job *coordinator.Job) ([]quiz.QuestionDraft, error) {
	if err := job.Processing(ctx, 20, "Loading retrieval pipeline", 0); err != nil {
		return nil, err
	}
	passages, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := job.Processing(ctx, 40, "Generating questions", 0); err != nil {
		return nil, err
	}
	instruction := prompt.NewQuizBuilder(req.Prompt, passages, req.Skills).Build()
	raw, err := s.generate(ctx, instruction)
	if errors.Is(err, llm.ErrOutputTruncated) {
		return nil, &TruncatedOutputError{Err: err}
	}
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	doc, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	drafts := doc.Data

	if err := job.Processing(ctx, 80, "Saving questions", len(drafts)); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, req.QuizID, drafts); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	if err := job.Complete(ctx, fmt.Sprintf("Generated %d questions", len(drafts)), len(drafts)); err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *quizService) retrieve(ctx context.Context, req GenerationRequest) ([]string, error) {
	if req.Material == nil {
		return nil, nil
	}
	passages := retriever.NewPassages(req.Material.Passages)
	if len(passages) == 0 {
		return nil, nil
	}

	start := time.Now()
	texts, err := s.retrievers.Create(passages).Retrieve(ctx, req.Prompt, s.config.TopK)
	metrics.StageDuration.WithLabelValues("retrieval").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	s.logger.Debug("QUIZ", "Retrieved context passages", map[string]interface{}{
		"quiz_id":   req.QuizID.String(),
		"passages":  len(passages),
		"retrieved": len(texts),
	})
	return texts, nil
}

func (s *quizService) generate(ctx context.Context, instruction string) (string, error) {
	ctx, span := tracer.Start(ctx, "QuizService.generate")
	defer span.End()

	start := time.Now()
	raw, err := s.llm.Generate(ctx, instruction,
		llm.WithMaxTokens(s.config.MaxOutputTokens),
		llm.WithTemperature(s.config.Temperature),
		llm.WithJSONMode(),
	)
	metrics.StageDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("output_chars", len(raw)))
	return raw, nil
}

func (s *quizService) parse(raw string) (*quiz.Document, error) {
	result, err := s.parser.Parse(raw)
	if err != nil {
		metrics.ParseStrategyTotal.WithLabelValues("none").Inc()
		s.logger.Warn("QUIZ", "Could not recover a quiz document from model output", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	metrics.ParseStrategyTotal.WithLabelValues(result.Strategy).Inc()
	if result.Strategy != "direct" {
		s.logger.Info("QUIZ", "Recovered model output with fallback strategy", map[string]interface{}{
			"strategy": result.Strategy,
		})
	}
	return &result.Value, nil
}

// persist replaces the quiz's question set in one transaction.
func (s *quizService) persist(ctx context.Context, quizId uuid.UUID, drafts []quiz.QuestionDraft) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("persistence").Observe(time.Since(start).Seconds())
	}()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	questions := s.mapper.FromDrafts(quizId, drafts)
	if err := uow.QuestionRepository().ReplaceForQuiz(ctx, quizId, questions); err != nil {
		return err
	}
	return uow.Commit()
}

// fail records the FAILED state on a context that survives caller cancellation.
func (s *quizService) fail(ctx context.Context, quizId uuid.UUID, job *coordinator.Job, failure LabeledError) {
	ctx = context.WithoutCancel(ctx)

	if err := job.Fail(ctx, "Quiz generation failed", failure.Label(), failure.Error()); err != nil {
		s.logger.Error("QUIZ", "Failed to record job failure", map[string]interface{}{
			"quiz_id": quizId.String(),
			"error":   err.Error(),
		})
	}
	metrics.JobsTotal.WithLabelValues(string(coordinator.StatusFailed), failure.Label()).Inc()

	s.logger.Error("QUIZ", "Quiz generation failed", map[string]interface{}{
		"quiz_id": quizId.String(),
		"label":   failure.Label(),
		"error":   failure.Error(),
	})
	s.publishEvent(ctx, events.QuizGenerationFailed{
		QuizId:     quizId,
		Label:      failure.Label(),
		Error:      failure.Error(),
		OccurredAt: time.Now(),
	})
}

func (s *quizService) publishEvent(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("QUIZ", "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *quizService) GetProgress(ctx context.Context, quizId uuid.UUID) (*dto.QuizProgressResponse, error) {
	p, err := s.coordinator.GetProgress(ctx, quizId.String())
	if err != nil {
		return nil, s.progressError(quizId, err)
	}
	return &dto.QuizProgressResponse{
		QuizId:         quizId,
		Status:         string(p.Status),
		Progress:       p.Progress,
		Message:        p.Message,
		TotalQuestions: p.TotalQuestions,
		Error:          p.Error,
	}, nil
}

func (s *quizService) DeleteProgress(ctx context.Context, quizId uuid.UUID) error {
	if err := s.coordinator.DeleteProgress(ctx, quizId.String()); err != nil {
		return s.progressError(quizId, err)
	}
	return nil
}

// ListQuestions reads back the persisted question set of a quiz in generation order.
func (s *quizService) ListQuestions(ctx context.Context, req *dto.ListQuestionsRequest) (*dto.QuizQuestionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.QuestionRepository()

	filters := []specification.Specification{specification.ByQuizID{QuizID: req.QuizId}}
	if req.QuestionType != "" {
		filters = append(filters, specification.ByQuestionType{Type: req.QuestionType})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if total == 0 {
		return nil, &NotFoundError{Message: fmt.Sprintf("no questions found for quiz %s", req.QuizId)}
	}

	questions, err := repo.FindAll(ctx, append(filters,
		specification.WithAnswers{},
		specification.OrderBy{Field: "position", Desc: false},
		specification.Pagination{Limit: req.Limit, Offset: req.Offset},
	)...)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	res := &dto.QuizQuestionsResponse{
		QuizId:    req.QuizId,
		Total:     total,
		Questions: make([]dto.QuestionResponse, 0, len(questions)),
	}
	for _, q := range questions {
		answers := make([]dto.AnswerResponse, len(q.Answers))
		for i, a := range q.Answers {
			answers[i] = dto.AnswerResponse{Id: a.Id, AnswerText: a.AnswerText, IsCorrect: a.IsCorrect}
		}
		res.Questions = append(res.Questions, dto.QuestionResponse{
			Id:           q.Id,
			Position:     q.Position,
			QuestionText: q.QuestionText,
			Explanation:  q.Explanation,
			Point:        q.Point,
			QuestionType: q.QuestionType,
			Answers:      answers,
		})
	}
	return res, nil
}

func (s *quizService) progressError(quizId uuid.UUID, err error) error {
	switch {
	case errors.Is(err, coordinator.ErrProgressNotFound):
		return &NotFoundError{Message: fmt.Sprintf("no generation progress found for quiz %s, it may not have started or has expired", quizId)}
	case errors.Is(err, coordinator.ErrCoordinationUnavailable):
		return &CoordinationUnavailableError{Err: err}
	default:
		return err
	}
}

func (s *quizService) lockError(resourceID string, err error) error {
	if errors.Is(err, coordinator.ErrLockHeld) {
		s.logger.Warn("QUIZ", "Quiz is already being generated", map[string]interface{}{"quiz_id": resourceID})
		return &ConflictError{ResourceID: resourceID}
	}
	return &CoordinationUnavailableError{Err: err}
}

// toGenerationRequest prefers explicit passages; otherwise source_text is chunked.
func (s *quizService) toGenerationRequest(req *dto.CreateQuizRequest) GenerationRequest {
	genReq := GenerationRequest{
		QuizID: req.QuizId,
		Prompt: req.Prompt,
		Skills: req.Skills,
	}
	switch {
	case len(req.Passages) > 0:
		genReq.Material = &SourceMaterial{Passages: req.Passages}
	case strings.TrimSpace(req.SourceText) != "":
		genReq.Material = &SourceMaterial{
			Passages: utils.SplitText(req.SourceText, s.config.ChunkSize, s.config.ChunkOverlap),
		}
	}
	return genReq
}

func (s *quizService) validatePrompt(raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return &ValidationError{Message: "prompt must not be empty"}
	}

	length := utf8.RuneCountInString(text)
	if length < s.config.MinPromptLength {
		return &ValidationError{Message: fmt.Sprintf("prompt is too short: %d characters, at least %d required", length, s.config.MinPromptLength)}
	}
	if s.config.MaxPromptLength > 0 && length > s.config.MaxPromptLength {
		return &ValidationError{Message: fmt.Sprintf("prompt is too long: %d characters, at most %d allowed", length, s.config.MaxPromptLength)}
	}

	if words := meaningfulWords(text); words < s.config.MinPromptWords {
		return &ValidationError{Message: fmt.Sprintf("prompt must contain at least %d meaningful words, found %d", s.config.MinPromptWords, words)}
	}

	if s.config.MaxQuestionCount > 0 {
		for _, m := range requestedCountPattern.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if errors.Is(err, strconv.ErrRange) {
				return &ValidationError{Message: fmt.Sprintf("at most %d questions can be generated per request, %s requested", s.config.MaxQuestionCount, m[1])}
			}
			if err != nil {
				continue
			}
			if n > s.config.MaxQuestionCount {
				return &ValidationError{Message: fmt.Sprintf("at most %d questions can be generated per request, %d requested", s.config.MaxQuestionCount, n)}
			}
		}
	}
	return nil
}

// meaningfulWords counts whitespace separated tokens holding at least two letters.
func meaningfulWords(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		letters := 0
		for _, r := range field {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters >= 2 {
			count++
		}
	}
	return count
}
