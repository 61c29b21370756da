package bootstrap

import (
	"context"
	"log"
	"os"

	"pc-build-advisor-be/internal/config"
	"pc-build-advisor-be/internal/controller"
	"pc-build-advisor-be/internal/pkg/logger"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/internal/repository/implementation"
	"pc-build-advisor-be/internal/repository/memory"
	redisrepo "pc-build-advisor-be/internal/repository/redis"
	"pc-build-advisor-be/internal/service"
	"pc-build-advisor-be/pkg/build/compat"
	"pc-build-advisor-be/pkg/build/session"
	"pc-build-advisor-be/pkg/catalog"
	"pc-build-advisor-be/pkg/embedding"
	"pc-build-advisor-be/pkg/llm/factory"
	"pc-build-advisor-be/pkg/rag/generator"
	"pc-build-advisor-be/pkg/rag/intent"
	"pc-build-advisor-be/pkg/rag/retriever"

	pktEvents "pc-build-advisor-be/pkg/events"
	pktNats "pc-build-advisor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AdvisorController controller.IAdvisorController
	OpsController     controller.IOpsController

	// Background Services (Exposed for main.go to run)
	IngestService service.ICatalogIngestService

	// Shared infra exposed for shutdown and health reporting
	VectorIndex contract.VectorIndexRepository
	NatsPub     *pktNats.Publisher
	NatsSub     *pktNats.Subscriber
	Logger      logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}
	batchClient := embedding.NewBatchClient(embeddingProvider, embedding.DefaultBatchConfig())

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Audit trail: completed builds are logged from the event stream, so
	// the record survives even when the session store has expired them.
	var natsSub *pktNats.Subscriber
	if natsPub != nil {
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			err = natsSub.Subscribe("events.BUILD_SESSION_COMPLETED", "advisor-build-audit",
				func(ctx context.Context, event pktEvents.Event) error {
					sysLogger.Info("AUDIT", "Build completed", event.Payload())
					return nil
				})
			if err != nil {
				log.Printf("[WARN] Failed to subscribe to completion events: %v", err)
			}
		}
	}

	// Session store: in-process by default, Redis when configured
	var sessionRepo contract.BuildSessionRepository
	if cfg.Session.Store == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessionRepo = redisrepo.NewSessionRepository(rdb, cfg.Session.TTL)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		sessionRepo = memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.PurgeInterval)
		log.Printf("[INFO] Using Session Store: MEMORY (ttl %s)", cfg.Session.TTL)
	}

	// 5. Domain Wiring
	vectorIndex := implementation.NewVectorIndexRepository(db)

	ret := retriever.NewRetriever(
		embeddingProvider,
		vectorIndex,
		retriever.DefaultConfig(),
		stdLogger,
	)
	gen := generator.NewGenerator(llmProvider, stdLogger)
	resolver := intent.NewResolver(llmProvider, stdLogger)
	filter := compat.NewFilter(compat.DefaultConfig())

	var eventPublisher session.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	manager := session.NewManager(
		sessionRepo,
		ret,
		filter,
		eventPublisher,
		sysLogger,
		session.DefaultConfig(),
	)

	ingestService := service.NewCatalogIngestService(
		pubSub,
		cfg.Ingest.Topic,
		catalog.NewParser(),
		batchClient,
		vectorIndex,
		cfg.Ingest.BatchSize,
		cfg.Ingest.MaxPerCategory,
	)

	advisorService := service.NewAdvisorService(resolver, ret, gen, manager, stdLogger)

	return &Container{
		AdvisorController: controller.NewAdvisorController(advisorService),
		OpsController:     controller.NewOpsController(sysLogger),
		IngestService:     ingestService,
		VectorIndex:       vectorIndex,
		NatsPub:           natsPub,
		NatsSub:           natsSub,
		Logger:            sysLogger,
	}
}

// IndexedCount reports how many documents the vector index holds, for the
// health endpoint. Errors read as zero.
func (c *Container) IndexedCount(ctx context.Context) int64 {
	count, err := c.VectorIndex.Count(ctx)
	if err != nil {
		return 0
	}
	return count
}
