package bootstrap

import (
	"context"
	"errors"
	"log"
	"time"

	"nyan-bot/internal/config"
	"nyan-bot/internal/controller"
	"nyan-bot/internal/discord"
	"nyan-bot/internal/handler"
	"nyan-bot/internal/metrics"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/pkg/serverutils"
	"nyan-bot/internal/repository/contract"
	"nyan-bot/internal/repository/implementation"
	"nyan-bot/internal/repository/memory"
	"nyan-bot/internal/service"
	"nyan-bot/internal/websocket"
	"nyan-bot/pkg/events"
	"nyan-bot/pkg/llm"
	"nyan-bot/pkg/llm/factory"
	pktNats "nyan-bot/pkg/nats"
	"nyan-bot/pkg/sequencer"
	"nyan-bot/pkg/stylize"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger            logger.ILogger
	Sequencer         *sequencer.Sequencer
	BotService        service.IBotService
	Gateway           *discord.Gateway
	UsageConsumer     service.IUsageConsumer
	StyleModeListener *service.StyleModeListener
	WebSocketHub      *websocket.Hub
	Metrics           *metrics.Recorder

	BotController controller.IBotController
	LogController controller.ILogController
	ChatHandler   *handler.ChatHandler

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	var external events.Publisher
	if cfg.Infra.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Infra.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			c.natsPub = natsPub
			external = natsPub
		}
		natsSub, err := pktNats.NewSubscriber(cfg.Infra.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.natsSub = natsSub
		}
	}

	usageRepo := c.newUsageRepository(cfg.Infra.RedisURL)

	// 4. Completion provider
	provider, err := factory.NewLLMProvider(factory.Settings{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    providerKey(cfg.LLM),
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.LLM.Provider, cfg.LLM.Model)

	var completionOpts []llm.Option
	if cfg.LLM.SystemPrompt != "" {
		completionOpts = append(completionOpts, llm.WithSystemPrompt(cfg.LLM.SystemPrompt))
	}
	completer := llm.NewCompleter(provider, cfg.LLM.Provider, completionOpts...)

	// 5. Sequencer and services
	eventPublisher := service.NewBotEventPublisher(c.pubSub, cfg.Infra.EventsTopic, external, sysLogger)
	// gauges are read on scrape, after the sequencer below exists
	c.Metrics = metrics.NewRecorder(func() sequencer.Snapshot { return c.Sequencer.Snapshot() })
	c.Sequencer = sequencer.New(completer,
		sequencer.WithTransform(stylize.New(cfg.Bot.StyleMarker).Transform),
		sequencer.WithLogger(sysLogger),
		sequencer.WithEventSink(events.Multi{eventPublisher, c.Metrics}),
		sequencer.WithQueueCapacity(cfg.Bot.QueueCapacity),
		sequencer.WithStyleMode(cfg.Bot.StyleModeDefault),
		// answers in flight must still be delivered while the process winds down
		sequencer.WithBaseContext(context.WithoutCancel(ctx)),
	)

	c.BotService = service.NewBotService(c.Sequencer, usageRepo, cfg.LLM.Provider, sysLogger)
	c.UsageConsumer = service.NewUsageConsumer(c.pubSub, cfg.Infra.EventsTopic, usageRepo, sysLogger)
	if c.natsSub != nil {
		c.StyleModeListener = service.NewStyleModeListener(c.natsSub, c.BotService, sysLogger)
	}

	gate := service.NewAdmissionGate(cfg.Discord.AllowedServerID, cfg.Discord.AllowedUserIDs)

	// 6. Discord gateway
	c.Gateway, err = discord.NewGateway(ctx, cfg.Discord, gate, c.BotService, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Discord gateway: %v", err)
	}

	// 7. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WebSocketLogPath)
	c.WebSocketHub = websocket.NewHub(wsLogger)
	go c.WebSocketHub.Run(ctx)

	// 8. Controllers
	auth := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)
	c.BotController = controller.NewBotController(c.BotService, c.WebSocketHub, auth)
	c.LogController = controller.NewLogController(sysLogger, auth)
	c.ChatHandler = handler.NewChatHandler(c.BotService, gate, c.WebSocketHub, cfg.App.JwtSecret, wsLogger)

	return c
}

// newUsageRepository prefers Redis and falls back to process memory.
func (c *Container) newUsageRepository(redisURL string) contract.UsageRepository {
	if redisURL == "" {
		log.Printf("[INFO] REDIS_URL not set, keeping usage counters in memory")
		return memory.NewUsageRepository()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: redisURL,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Keeping usage counters in memory", err)
		_ = rdb.Close()
		return memory.NewUsageRepository()
	}

	c.rdb = rdb
	return implementation.NewRedisUsageRepository(rdb)
}

func providerKey(cfg config.LLMConfig) string {
	switch cfg.Provider {
	case factory.ProviderHuggingFace:
		return cfg.HuggingFaceAPIKey
	default:
		return cfg.AnthropicAPIKey
	}
}

// Close waits for admitted requests, then releases connections.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if err := c.Sequencer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
