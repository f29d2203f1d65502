package bootstrap

import (
	"context"
	"fmt"

	"emotion-diary-be/internal/config"
	"emotion-diary-be/internal/controller"
	"emotion-diary-be/internal/handler"
	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/repository/memory"
	"emotion-diary-be/internal/service"
	"emotion-diary-be/pkg/diary"
	"emotion-diary-be/pkg/embedding"
	"emotion-diary-be/pkg/events"
	"emotion-diary-be/pkg/gateway"
	"emotion-diary-be/pkg/index"
	"emotion-diary-be/pkg/llm/factory"
	pktNats "emotion-diary-be/pkg/nats"
	"emotion-diary-be/pkg/response"
	"emotion-diary-be/pkg/retrieval"
	"emotion-diary-be/pkg/stt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventTopic is the in-process topic domain events travel on.
const EventTopic = "companion.events"

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	ChatController    controller.IChatController
	DiaryController   controller.IDiaryController
	StatusController  controller.IStatusController

	// WebSockets
	ChatWSHandler *handler.ChatWSHandler

	// Middleware
	SessionTokens *serverutils.SessionTokens
	RateLimiter   *serverutils.RateLimiter

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	CompanionService service.ICompanionService
	Logger           logger.ILogger

	pubSub *gochannel.GoChannel
	nats   *pktNats.Publisher
	audit  logger.ILogger
}

// NewContainer wires every component around a loaded index.
func NewContainer(cfg *config.Config, idx *index.EmbeddingIndex, sysLogger logger.ILogger) (*Container, error) {
	zl := sysLogger.Zap()

	// 1. Tables
	templates, err := response.LoadTable(cfg.Index.ResponseTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("load response templates: %w", err)
	}
	narrative, err := diary.LoadTable(cfg.Index.NarrativeTablePath)
	if err != nil {
		return nil, fmt.Errorf("load narrative table: %w", err)
	}

	// 2. Collaborators, each behind its own gateway
	gwCfg := gateway.Config{
		MaxInFlight: cfg.External.MaxInFlight,
		Timeout:     cfg.External.Timeout,
	}

	var encoder embedding.Encoder
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		encoder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		sysLogger.Info("BOOT", "Using embedding provider", map[string]interface{}{
			"provider": "ollama",
			"model":    cfg.Ai.OllamaModel,
		})
	default:
		return nil, fmt.Errorf("unsupported EMBEDDING_PROVIDER %q", cfg.Ai.EmbeddingProvider)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	var generator response.Generator
	if llmProvider != nil {
		generator = response.NewLLMGenerator(llmProvider)
		sysLogger.Info("BOOT", "Using LLM provider", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"model":    cfg.Ai.LLMModel,
		})
	} else {
		sysLogger.Warn("BOOT", "No LLM provider configured, replies come from templates", nil)
	}

	var transcriber stt.Transcriber
	if cfg.Keys.ClovaClientID != "" && cfg.Keys.ClovaClientSecret != "" {
		transcriber = stt.NewClovaTranscriber(cfg.Keys.ClovaClientID, cfg.Keys.ClovaClientSecret)
	} else {
		sysLogger.Warn("BOOT", "Clova credentials missing, voice input disabled", nil)
	}

	responder := response.NewResilient(
		generator,
		gateway.New("llm", gwCfg, zl),
		templates,
		response.NewSeededSelector(cfg.Ai.FallbackSeed),
		zl,
	)

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	publisherService := service.NewPublisherService(EventTopic, pubSub)

	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, zl)
		if err != nil {
			sysLogger.Warn("BOOT", "Failed to connect to NATS, events stay local", map[string]interface{}{"error": err.Error()})
			natsPub = nil
		}
	}

	audit := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	var forwarder service.EventForwarder
	if natsPub != nil {
		forwarder = natsPub
	}
	consumerService := service.NewConsumerService(pubSub, EventTopic, audit, sysLogger, forwarder)

	// 4. Sessions
	sessions := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)
	sessions.OnExpired(func(sessionID string, turns int) {
		raw, err := events.Marshal(events.New(events.SessionExpired, map[string]interface{}{
			"session_id":  sessionID,
			"total_turns": turns,
		}))
		if err == nil {
			err = publisherService.Publish(context.Background(), raw)
		}
		if err != nil {
			sysLogger.Warn("SESSION", "Failed to publish expiry", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	})

	tokens := serverutils.NewSessionTokens(cfg.Session.Secret)

	// 5. Services
	companionService := service.NewCompanionService(service.CompanionDeps{
		Retriever:   retrieval.NewRetriever(idx, zl),
		Encoder:     encoder,
		EncoderGW:   gateway.New("embedding", gwCfg, zl),
		Transcriber: transcriber,
		STTGW:       gateway.New("stt", gwCfg, zl),
		Responder:   responder,
		Aggregator:  diary.NewAggregator(narrative),
		Sessions:    sessions,
		Tokens:      tokens,
		Publisher:   publisherService,
		Logger:      sysLogger,
		SessionTTL:  cfg.Session.TTL,
	})

	// 6. Controllers
	return &Container{
		SessionController: controller.NewSessionController(companionService),
		ChatController:    controller.NewChatController(companionService),
		DiaryController:   controller.NewDiaryController(companionService),
		StatusController:  controller.NewStatusController(companionService),
		ChatWSHandler:     handler.NewChatWSHandler(companionService, tokens, sysLogger),

		SessionTokens: tokens,
		RateLimiter:   serverutils.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),

		ConsumerService:  consumerService,
		CompanionService: companionService,
		Logger:           sysLogger,

		pubSub: pubSub,
		nats:   natsPub,
		audit:  audit,
	}, nil
}

// Close releases the event bus and outbound connections.
func (c *Container) Close() error {
	err := c.pubSub.Close()
	c.nats.Close()
	_ = c.audit.Sync()
	return err
}
