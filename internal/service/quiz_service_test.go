package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/internal/repository/contract"
	"ai-quiz-generator-be/internal/repository/specification"
	"ai-quiz-generator-be/internal/repository/unitofwork"
	"ai-quiz-generator-be/pkg/coordinator"
	"ai-quiz-generator-be/pkg/embedding"
	"ai-quiz-generator-be/pkg/events"
	"ai-quiz-generator-be/pkg/llm"
	"ai-quiz-generator-be/pkg/retriever"
	"ai-quiz-generator-be/pkg/retriever/dense"
)

const validModelOutput = `{"data": [
  {"question_text": "What does a loop do?", "explanation": "Loops repeat a block.", "question_type": "SINGLE_CHOICE",
   "answers": [{"answer_text": "Repeats a block", "is_correct": true}, {"answer_text": "Declares a type", "is_correct": false}]},
  {"question_text": "A variable binds a name to a value.", "question_type": "TRUE_FALSE",
   "answers": [{"answer_text": "True", "is_correct": true}, {"answer_text": "False", "is_correct": false}]}
]}`

const validPrompt = "Create 2 questions about loops and variables"

// fakes

type fakeLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastPrompt string
	lastOpts   *llm.Options
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	f.lastOpts = llm.ApplyOptions(options...)
	return f.response, f.err
}

type fakeQuestionRepo struct {
	mu     sync.Mutex
	err    error
	stored map[uuid.UUID][]*entity.Question
}

func (r *fakeQuestionRepo) CreateBulk(_ context.Context, questions []*entity.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range questions {
		r.stored[q.QuizId] = append(r.stored[q.QuizId], q)
	}
	return nil
}

func (r *fakeQuestionRepo) DeleteByQuizId(_ context.Context, quizId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stored, quizId)
	return nil
}

func (r *fakeQuestionRepo) ReplaceForQuiz(ctx context.Context, quizId uuid.UUID, questions []*entity.Question) error {
	if r.err != nil {
		return r.err
	}
	if err := r.DeleteByQuizId(ctx, quizId); err != nil {
		return err
	}
	return r.CreateBulk(ctx, questions)
}

// filter understands the quiz specifications the service passes.
func (r *fakeQuestionRepo) filter(specs []specification.Specification) []*entity.Question {
	r.mu.Lock()
	defer r.mu.Unlock()

	var quizId uuid.UUID
	var questionType string
	page := specification.Pagination{Limit: -1}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByQuizID:
			quizId = s.QuizID
		case specification.ByQuestionType:
			questionType = s.Type
		case specification.Pagination:
			page = s
		}
	}

	var out []*entity.Question
	for _, q := range r.stored[quizId] {
		if questionType == "" || q.QuestionType == questionType {
			out = append(out, q)
		}
	}
	if page.Offset >= len(out) {
		return nil
	}
	out = out[page.Offset:]
	if page.Limit >= 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out
}

func (r *fakeQuestionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Question, error) {
	return r.filter(specs), nil
}

func (r *fakeQuestionRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.filter(specs))), nil
}

type fakeUoW struct {
	repo      *fakeQuestionRepo
	committed *int
}

func (u *fakeUoW) Begin(context.Context) error { return nil }
func (u *fakeUoW) Rollback() error             { return nil }

func (u *fakeUoW) Commit() error {
	*u.committed++
	return nil
}

func (u *fakeUoW) QuestionRepository() contract.QuestionRepository { return u.repo }

func (u *fakeUoW) PassageEmbeddingRepository() contract.PassageEmbeddingRepository { return nil }

type fakeRepositoryFactory struct {
	repo      *fakeQuestionRepo
	committed int
}

func (f *fakeRepositoryFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{repo: f.repo, committed: &f.committed}
}

type fakePublisher struct {
	err      error
	payloads [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) Publish(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, event.EventType())
	return nil
}

type keywordEmbedder struct {
	err error
}

func (e *keywordEmbedder) ModelName() string { return "test/keywords" }

func (e *keywordEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	vec := []float32{
		float32(strings.Count(lower, "loop")),
		float32(strings.Count(lower, "variable")),
		0.1,
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

type fixture struct {
	svc       IQuizService
	coord     *coordinator.Coordinator
	llm       *fakeLLM
	repo      *fakeQuestionRepo
	repos     *fakeRepositoryFactory
	publisher *fakePublisher
	events    *fakeEvents
}

func newFixture(t *testing.T, embedder embedding.EmbeddingProvider) *fixture {
	t.Helper()
	log := logger.NewNopLogger()

	store, err := dense.NewChromemStore("", false)
	require.NoError(t, err)
	retrievers := retriever.NewFactory(dense.NewRetriever(embedder, store, log), retriever.DefaultConfig(), log)

	f := &fixture{
		coord:     coordinator.New(coordinator.NewMemoryStore(), coordinator.DefaultConfig(), log),
		llm:       &fakeLLM{response: validModelOutput},
		repo:      &fakeQuestionRepo{stored: map[uuid.UUID][]*entity.Question{}},
		publisher: &fakePublisher{},
		events:    &fakeEvents{},
	}
	f.repos = &fakeRepositoryFactory{repo: f.repo}
	f.svc = NewQuizService(f.coord, retrievers, f.llm, f.repos, f.publisher, f.events, DefaultQuizServiceConfig(), log)
	return f
}

func withPassages(quizID uuid.UUID, prompt string) GenerationRequest {
	return GenerationRequest{
		QuizID: quizID,
		Prompt: prompt,
		Skills: []string{"iteration"},
		Material: &SourceMaterial{Passages: []string{
			"Loops iterate over sequences.",
			"A variable binds a name to a value.",
		}},
	}
}

func (f *fixture) assertUnlocked(t *testing.T, quizID uuid.UUID) {
	t.Helper()
	locked, err := f.coord.IsLocked(context.Background(), quizID.String())
	require.NoError(t, err)
	assert.False(t, locked, "lock must be released")

	guard, err := f.coord.AcquireLock(context.Background(), quizID.String(), 0)
	require.NoError(t, err, "a new job must be able to lock the quiz")
	guard.Release(context.Background())
}

// tests

func TestGenerateQuestions_Success(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()

	drafts, err := f.svc.GenerateQuestions(context.Background(), withPassages(quizID, validPrompt))

	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, 1.0, drafts[0].Point)

	progress, err := f.coord.GetProgress(context.Background(), quizID.String())
	require.NoError(t, err)
	assert.Equal(t, coordinator.StatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
	assert.Equal(t, 2, progress.TotalQuestions)
	assert.Equal(t, "Generated 2 questions", progress.Message)
	assert.Nil(t, progress.Error)

	require.Len(t, f.repo.stored[quizID], 2)
	assert.Equal(t, 1, f.repos.committed)
	assert.Equal(t, 1, f.repo.stored[quizID][1].Position)

	assert.Contains(t, f.llm.lastPrompt, "Loops iterate over sequences.")
	assert.Contains(t, f.llm.lastPrompt, "iteration")
	assert.Equal(t, 4096, f.llm.lastOpts.MaxTokens)
	assert.Equal(t, 0.7, f.llm.lastOpts.Temperature)

	assert.Equal(t, []string{events.TypeQuizGenerationCompleted}, f.events.types)
	f.assertUnlocked(t, quizID)
}

func TestGenerateQuestions_WithoutMaterialSkipsRetrieval(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{err: errors.New("must not be called")})
	quizID := uuid.New()

	drafts, err := f.svc.GenerateQuestions(context.Background(), GenerationRequest{QuizID: quizID, Prompt: validPrompt})

	require.NoError(t, err)
	assert.Len(t, drafts, 2)
	assert.NotContains(t, f.llm.lastPrompt, "<lesson_content>")
}

func TestGenerateQuestions_InvalidPromptTakesNoLock(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()

	_, err := f.svc.GenerateQuestions(context.Background(), withPassages(quizID, "a"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ValidationError", verr.Label())
	assert.Zero(t, f.llm.calls)

	locked, err := f.coord.IsLocked(context.Background(), quizID.String())
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = f.coord.GetProgress(context.Background(), quizID.String())
	assert.ErrorIs(t, err, coordinator.ErrProgressNotFound)
}

func TestGenerateQuestions_Conflict(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()

	guard, err := f.coord.AcquireLock(context.Background(), quizID.String(), 0)
	require.NoError(t, err)
	defer guard.Release(context.Background())

	_, err = f.svc.GenerateQuestions(context.Background(), withPassages(quizID, validPrompt))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, quizID.String(), conflict.ResourceID)
	assert.Zero(t, f.llm.calls)
}

func TestGenerateQuestions_ReleasesLockOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		embedder embedding.EmbeddingProvider
		setup    func(f *fixture)
		label    string
	}{
		{
			name:     "retrieval",
			embedder: &keywordEmbedder{err: errors.New("embedding service down")},
			label:    "RetrievalError",
		},
		{
			name:     "generation",
			embedder: &keywordEmbedder{},
			setup:    func(f *fixture) { f.llm.err = errors.New("model unavailable") },
			label:    "GenerationError",
		},
		{
			name:     "parse",
			embedder: &keywordEmbedder{},
			setup:    func(f *fixture) { f.llm.response = "I cannot help with that" },
			label:    "ParseError",
		},
		{
			name:     "truncated output",
			embedder: &keywordEmbedder{},
			setup:    func(f *fixture) { f.llm.response = `{"data": [{` },
			label:    "TruncatedOutputError",
		},
		{
			name:     "token limit reached",
			embedder: &keywordEmbedder{},
			setup:    func(f *fixture) { f.llm.err = llm.ErrOutputTruncated },
			label:    "TruncatedOutputError",
		},
		{
			name:     "persistence",
			embedder: &keywordEmbedder{},
			setup:    func(f *fixture) { f.repo.err = errors.New("connection reset") },
			label:    "PersistenceError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.embedder)
			if tt.setup != nil {
				tt.setup(f)
			}
			quizID := uuid.New()

			_, err := f.svc.GenerateQuestions(context.Background(), withPassages(quizID, validPrompt))

			var labeled LabeledError
			require.ErrorAs(t, err, &labeled)
			assert.Equal(t, tt.label, labeled.Label())

			progress, perr := f.coord.GetProgress(context.Background(), quizID.String())
			require.NoError(t, perr)
			assert.Equal(t, coordinator.StatusFailed, progress.Status)
			assert.Equal(t, 0, progress.Progress)
			require.NotNil(t, progress.Error)
			assert.True(t, strings.HasPrefix(*progress.Error, tt.label+": "), *progress.Error)

			assert.Empty(t, f.repo.stored[quizID])
			assert.Equal(t, []string{events.TypeQuizGenerationFailed}, f.events.types)
			f.assertUnlocked(t, quizID)
		})
	}
}

func TestGenerateQuestions_CancelledCallerStillReleases(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	f.llm.err = context.Canceled
	quizID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.GenerateQuestions(ctx, GenerationRequest{QuizID: quizID, Prompt: validPrompt})

	require.Error(t, err)
	f.assertUnlocked(t, quizID)
}

func TestValidatePrompt(t *testing.T) {
	s := &quizService{config: DefaultQuizServiceConfig()}

	tests := []struct {
		name   string
		prompt string
		valid  bool
	}{
		{"empty", "   ", false},
		{"too short", "loops", false},
		{"too long", strings.Repeat("loop ", 401), false},
		{"too few words", "loooooooooooooooooops", false},
		{"numbers are not words", "5 10 15 20 25 30", false},
		{"over question cap", "Create 60 questions about loops", false},
		{"vietnamese over cap", "Tạo 51 câu hỏi về vòng lặp", false},
		{"count beyond int range", "Create 99999999999999999999 questions about loops", false},
		{"within cap", "Create 10 questions about loops", true},
		{"vietnamese within cap", "Tạo 5 câu hỏi về vòng lặp", true},
		{"no count", "Write some questions about variables", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.validatePrompt(tt.prompt)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestValidatePrompt_CapDisabled(t *testing.T) {
	cfg := DefaultQuizServiceConfig()
	cfg.MaxQuestionCount = 0
	s := &quizService{config: cfg}

	assert.NoError(t, s.validatePrompt("Create 500 questions about loops"))
}

func TestCreate_QueuesJobAndHandsOffLock(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()
	ctx := context.Background()

	res, err := f.svc.Create(ctx, &dto.CreateQuizRequest{
		QuizId:     quizID,
		Prompt:     validPrompt,
		SourceText: "Loops iterate over sequences. A variable binds a name to a value.",
	})

	require.NoError(t, err)
	assert.Equal(t, "PENDING", res.Status)
	require.Len(t, f.publisher.payloads, 1)

	locked, err := f.coord.IsLocked(ctx, quizID.String())
	require.NoError(t, err)
	assert.True(t, locked, "lock stays held until the worker finishes")

	progress, err := f.svc.GetProgress(ctx, quizID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", progress.Status)
	assert.Equal(t, "Quiz creation queued", progress.Message)

	var msg dto.PublishQuizGenerationMessage
	require.NoError(t, json.Unmarshal(f.publisher.payloads[0], &msg))
	assert.NotEmpty(t, msg.LockToken)
	assert.Len(t, msg.Passages, 1)

	_, err = f.svc.Create(ctx, &dto.CreateQuizRequest{QuizId: quizID, Prompt: validPrompt})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, f.svc.ProcessQueued(ctx, &msg))

	progress, err = f.svc.GetProgress(ctx, quizID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", progress.Status)
	assert.Equal(t, 2, progress.TotalQuestions)
	f.assertUnlocked(t, quizID)
}

func TestCreate_PublishFailureReleasesLock(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	f.publisher.err = errors.New("queue closed")
	quizID := uuid.New()

	_, err := f.svc.Create(context.Background(), &dto.CreateQuizRequest{QuizId: quizID, Prompt: validPrompt})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)

	progress, err := f.svc.GetProgress(context.Background(), quizID)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", progress.Status)
	f.assertUnlocked(t, quizID)
}

func TestGetProgress_NotFound(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})

	_, err := f.svc.GetProgress(context.Background(), uuid.New())

	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteProgress(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()
	ctx := context.Background()

	_, err := f.svc.GenerateQuestions(ctx, GenerationRequest{QuizID: quizID, Prompt: validPrompt})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProgress(ctx, quizID))

	_, err = f.svc.GetProgress(ctx, quizID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestToGenerationRequest(t *testing.T) {
	s := &quizService{config: DefaultQuizServiceConfig()}
	quizID := uuid.New()

	explicit := s.toGenerationRequest(&dto.CreateQuizRequest{QuizId: quizID, Passages: []string{"a", "b"}, SourceText: "ignored"})
	require.NotNil(t, explicit.Material)
	assert.Equal(t, []string{"a", "b"}, explicit.Material.Passages)

	chunked := s.toGenerationRequest(&dto.CreateQuizRequest{QuizId: quizID, SourceText: strings.Repeat("word ", 500)})
	require.NotNil(t, chunked.Material)
	assert.Greater(t, len(chunked.Material.Passages), 1)

	none := s.toGenerationRequest(&dto.CreateQuizRequest{QuizId: quizID, SourceText: "  "})
	assert.Nil(t, none.Material)
}

func TestListQuestions(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})
	quizID := uuid.New()
	ctx := context.Background()

	_, err := f.svc.GenerateQuestions(ctx, GenerationRequest{QuizID: quizID, Prompt: validPrompt})
	require.NoError(t, err)

	all, err := f.svc.ListQuestions(ctx, &dto.ListQuestionsRequest{QuizId: quizID, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	require.Len(t, all.Questions, 2)
	assert.Equal(t, "What does a loop do?", all.Questions[0].QuestionText)
	require.Len(t, all.Questions[0].Answers, 2)
	assert.True(t, all.Questions[0].Answers[0].IsCorrect)

	trueFalse, err := f.svc.ListQuestions(ctx, &dto.ListQuestionsRequest{QuizId: quizID, QuestionType: "TRUE_FALSE", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), trueFalse.Total)
	assert.Equal(t, 1, trueFalse.Questions[0].Position)

	paged, err := f.svc.ListQuestions(ctx, &dto.ListQuestionsRequest{QuizId: quizID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), paged.Total)
	require.Len(t, paged.Questions, 1)
	assert.Equal(t, "A variable binds a name to a value.", paged.Questions[0].QuestionText)
}

func TestListQuestions_NotFound(t *testing.T) {
	f := newFixture(t, &keywordEmbedder{})

	_, err := f.svc.ListQuestions(context.Background(), &dto.ListQuestionsRequest{QuizId: uuid.New(), Limit: 50})

	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
