package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"voiceagent-server/internal/clients/crm"
	kafkaClient "voiceagent-server/internal/clients/kafka"
	redisClient "voiceagent-server/internal/clients/redis"
	"voiceagent-server/internal/clients/s3"
	"voiceagent-server/internal/clients/twilio"
	"voiceagent-server/internal/config"
	"voiceagent-server/internal/events"
	"voiceagent-server/internal/events/consumers"
	importHandler "voiceagent-server/internal/imports/handler"
	importProcessor "voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/imports/progress"
	"voiceagent-server/internal/jobs"
	"voiceagent-server/internal/jobs/scheduler"
	scheduledJobs "voiceagent-server/internal/jobs/scheduler/jobs"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/ratelimit"
	"voiceagent-server/internal/store"
	"voiceagent-server/internal/targeting"
	targetListHandler "voiceagent-server/internal/targetlist/handler"
	targetListProcessor "voiceagent-server/internal/targetlist/processor"

	"github.com/hibiken/asynq"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store   store.Store
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Processors
	TargetLists *targetListProcessor.TargetListProcessor
	Imports     *importProcessor.ImportProcessor

	// Handlers
	TargetListHandler targetListHandler.Handler
	ImportHandler     importHandler.Handler

	// Background work
	Scheduler        *scheduler.Scheduler
	ContactsConsumer *consumers.ContactsConsumer

	// Clients (for cleanup)
	Redis         *redisClient.Client
	KafkaProducer *kafkaClient.Producer
	KafkaConsumer *kafkaClient.Consumer
	JobClient     *jobs.Client
}

// Services are the pieces shared by the API server and the background worker
type Services struct {
	Store     store.Store
	Contacts  *targeting.ContactStore
	Imports   *importProcessor.ImportProcessor
	Publisher *events.Publisher
	Objects   *s3.Client
	Redis     *redisClient.Client
	Producer  *kafkaClient.Producer
}

// InitializeServices connects to the database, Redis and Kafka and builds the import
// pipeline around an empty contact store.
func InitializeServices(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger) (*Services, error) {
	svc := &Services{}

	var err error
	svc.Store, err = store.New(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := svc.Store.Migrate(ctx); err != nil {
		_ = svc.Store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	svc.Redis, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		_ = svc.Store.Close()
		return nil, err
	}

	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		svc.Producer = kafkaClient.NewProducer(kafkaClient.ProducerConfig{
			Brokers: brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
	} else {
		logger.Info(ctx, "KAFKA_BROKERS not set, events are disabled")
	}
	svc.Publisher = events.NewPublisher(svc.Producer, logger)

	svc.Contacts, err = targeting.NewContactStore(nil)
	if err != nil {
		svc.Close()
		return nil, err
	}

	importCfg := importProcessor.Config{
		Persister:    &svc.Store,
		CRM:          crm.NewClient(&http.Client{Timeout: 30 * time.Second}, logger),
		Publisher:    svc.Publisher,
		Metrics:      metrics,
		MaxFileBytes: cfg.Import.MaxFileBytes,
	}
	if redis := svc.Redis.GetClient(); redis != nil {
		importCfg.Tracker = progress.NewRedisTracker(redis, cfg.Import.ProgressTTL, logger)
	}
	if cfg.Services.TwilioEnabled() {
		importCfg.Verifier = twilio.NewPhoneVerifier(cfg.Services.TwilioAccountSID, cfg.Services.TwilioAuthToken, logger)
	}
	if cfg.Import.S3Bucket != "" {
		svc.Objects, err = s3.New(ctx, cfg.Import)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		importCfg.Objects = svc.Objects
	}
	svc.Imports = importProcessor.New(svc.Contacts, importCfg, logger)

	return svc, nil
}

// Close releases the connections opened by InitializeServices
func (s *Services) Close() {
	if s.Producer != nil {
		_ = s.Producer.Close()
	}
	_ = s.Redis.Close()
	_ = s.Store.Close()
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	metrics := observability.NewMetrics()

	svc, err := InitializeServices(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Store:         svc.Store,
		Logger:        logger,
		Metrics:       metrics,
		Imports:       svc.Imports,
		Redis:         svc.Redis,
		KafkaProducer: svc.Producer,
	}

	presets, err := targeting.DefaultPresets()
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}

	deps.TargetLists = targetListProcessor.New(svc.Contacts, targetListProcessor.Config{
		Repository: &deps.Store,
		Publisher:  svc.Publisher,
		Metrics:    metrics,
		Presets:    presets,
	}, logger)
	if err := deps.TargetLists.Init(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to load target lists: %w", err)
	}
	deps.TargetListHandler = targetListHandler.New(deps.TargetLists, logger)

	// Background CRM sync needs the asynq queue in Redis
	var syncScheduler importHandler.SyncScheduler
	if cfg.Redis.Enabled {
		deps.JobClient = jobs.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		syncScheduler = deps.JobClient
	}

	var archiver importHandler.Archiver
	if svc.Objects != nil {
		archiver = svc.Objects
	}
	deps.ImportHandler = importHandler.New(deps.Imports, archiver, syncScheduler, cfg.Import.MaxFileBytes, logger)
	limiter := ratelimit.NewService(nil, logger)
	if redis := svc.Redis.GetClient(); redis != nil {
		limiter = ratelimit.NewService(redis, logger)
	}
	deps.ImportHandler.UseRateLimit(limiter.Middleware("imports", cfg.Import.RateLimitRPM))

	// Each API instance reads every import event, so the group is per host
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		host, _ := os.Hostname()
		deps.KafkaConsumer = kafkaClient.NewConsumer(kafkaClient.ConsumerConfig{
			Brokers: brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroup, host),
		}, logger)
		deps.ContactsConsumer = consumers.NewContactsConsumer(deps.KafkaConsumer, deps.TargetLists, deps.Imports, logger)
	}

	deps.Scheduler = scheduler.New(logger)
	deps.Scheduler.Register(scheduledJobs.NewContactRefreshJob(deps.TargetLists, logger, cfg.Server.ContactRefreshInterval))

	return deps, nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.JobClient != nil {
		_ = d.JobClient.Close()
	}
	if d.KafkaProducer != nil {
		_ = d.KafkaProducer.Close()
	}
	if d.KafkaConsumer != nil {
		_ = d.KafkaConsumer.Close()
	}
	_ = d.Redis.Close()
	_ = d.Store.Close()
}
