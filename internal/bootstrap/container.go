package bootstrap

import (
	"context"
	"log"

	"ai-quiz-generator-be/internal/config"
	"ai-quiz-generator-be/internal/controller"
	"ai-quiz-generator-be/internal/handler"
	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/internal/pkg/serverutils"
	"ai-quiz-generator-be/internal/repository/unitofwork"
	"ai-quiz-generator-be/internal/repository/vectorstore"
	"ai-quiz-generator-be/internal/service"
	"ai-quiz-generator-be/pkg/coordinator"
	"ai-quiz-generator-be/pkg/embedding"
	"ai-quiz-generator-be/pkg/events"
	"ai-quiz-generator-be/pkg/llm/factory"
	"ai-quiz-generator-be/pkg/metrics"
	pktNats "ai-quiz-generator-be/pkg/nats"
	"ai-quiz-generator-be/pkg/retriever"
	"ai-quiz-generator-be/pkg/retriever/dense"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventLogDurable = "quiz-event-log"

type Container struct {
	QuizController  controller.IQuizController
	ProgressHandler *handler.ProgressHandler

	// Auth guards the mutating quiz routes.
	Auth fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Coordinator *coordinator.Coordinator
	Logger      logger.ILogger

	eventSubscriber *pktNats.Subscriber
	eventPublisher  *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	metrics.Register()

	// 2. Job Queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider, err := embedding.NewProvider(embedding.Config{
		Provider:      cfg.Ai.EmbeddingProvider,
		Model:         cfg.Ai.EmbeddingModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		OpenAIKey:     cfg.Keys.OpenAI,
		GeminiKey:     cfg.Keys.GoogleGemini,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, embeddingProvider.ModelName())

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		OpenAIKey:     cfg.Keys.OpenAI,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Coordination Store
	coord := coordinator.New(newCoordinationStore(cfg), coordinator.Config{
		LockTTL:     cfg.Coordination.LockTTL,
		ProgressTTL: cfg.Coordination.ProgressTTL,
	}, sysLogger)

	// 5. Retrieval
	vectorStore := newVectorStore(cfg, uowFactory, embeddingProvider.ModelName())
	retrievers := retriever.NewFactory(
		dense.NewRetriever(embeddingProvider, vectorStore, sysLogger),
		retriever.Config{
			RRFK:        cfg.Retrieval.RRFK,
			CandidatesN: cfg.Retrieval.CandidatesN,
		},
		sysLogger,
	)

	// 6. Events (optional)
	c := &Container{Coordinator: coord, Logger: sysLogger}

	var eventPublisher service.IEventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.eventPublisher = natsPub
		eventPublisher = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.eventSubscriber = natsSub
	}

	// 7. Services
	quizService := service.NewQuizService(
		coord,
		retrievers,
		llmProvider,
		uowFactory,
		service.NewPublisherService(cfg.App.GenerationTopic, pubSub),
		eventPublisher,
		service.QuizServiceConfig{
			MinPromptLength:  cfg.Generation.MinPromptLength,
			MaxPromptLength:  cfg.Generation.MaxPromptLength,
			MinPromptWords:   cfg.Generation.MinPromptWords,
			MaxQuestionCount: cfg.Generation.MaxQuestionCount,
			ChunkSize:        cfg.Retrieval.ChunkSize,
			ChunkOverlap:     cfg.Retrieval.ChunkOverlap,
			MaxOutputTokens:  cfg.Ai.MaxOutputTokens,
			Temperature:      cfg.Ai.Temperature,
		},
		sysLogger,
	)

	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.GenerationTopic, quizService, sysLogger)
	c.QuizController = controller.NewQuizController(quizService)
	c.ProgressHandler = handler.NewProgressHandler(quizService, sysLogger)

	if cfg.Keys.JwtSecret != "" {
		c.Auth = serverutils.JwtMiddleware(cfg.Keys.JwtSecret)
	} else {
		log.Printf("[WARN] JWT_SECRET is not set, quiz routes are unauthenticated")
		c.Auth = serverutils.AllowAll
	}

	return c
}

func newCoordinationStore(cfg *config.Config) coordinator.Store {
	if cfg.Coordination.Store == "memory" {
		log.Printf("[INFO] Using in-process coordination store; locks are not shared between instances")
		return coordinator.NewMemoryStore()
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		// Keep the client: the coordinator degrades while redis is down and recovers with it.
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return coordinator.NewRedisStore(rdb)
}

func newVectorStore(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, model string) dense.VectorStore {
	if cfg.Retrieval.VectorStore == "pgvector" {
		log.Printf("[INFO] Using Vector Store: PGVECTOR")
		return vectorstore.NewPgvectorStore(uowFactory, model)
	}

	store, err := dense.NewChromemStore(cfg.Retrieval.VectorStorePath, true)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open chromem store at %s: %v", cfg.Retrieval.VectorStorePath, err)
	}
	log.Printf("[INFO] Using Vector Store: CHROMEM (%s)", cfg.Retrieval.VectorStorePath)
	return store
}

// StartEventLog mirrors quiz generation events from NATS into the system log.
func (c *Container) StartEventLog(ctx context.Context) error {
	if c.eventSubscriber == nil {
		return nil
	}
	return c.eventSubscriber.Subscribe(ctx, "events.quiz.generation.>", eventLogDurable, func(_ context.Context, evt events.Event) error {
		c.Logger.Info("EVENTS", evt.EventType(), evt.Payload())
		return nil
	})
}

func (c *Container) Close() {
	if c.eventSubscriber != nil {
		c.eventSubscriber.Close()
	}
	if c.eventPublisher != nil {
		c.eventPublisher.Close()
	}
	_ = c.Logger.Sync()
}
