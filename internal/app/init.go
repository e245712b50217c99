package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http"
	alertsController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/alerts"
	creditsController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/credits"
	groupingController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/grouping"
	healthcheckController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/healthcheck"
	listingsController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/listings"
	paymentsController "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/controllers/payments"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/middlewares"
	kafkaConsumerAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/alerter"
	anthropicAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/anthropic"
	kafkaAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/kafka"
	stripeAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/payment/stripe"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/inmemory"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/s3"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/cache"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/kafka"
	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/storage"
	listingRepo "github.com/lightwork87/fashion-analyzer-pro/internal/repository/listing"
	paymentRepo "github.com/lightwork87/fashion-analyzer-pro/internal/repository/payment"
	userRepo "github.com/lightwork87/fashion-analyzer-pro/internal/repository/user"
	alerterService "github.com/lightwork87/fashion-analyzer-pro/internal/services/alerter"
	jobScheduler "github.com/lightwork87/fashion-analyzer-pro/internal/services/jobs"
	visionService "github.com/lightwork87/fashion-analyzer-pro/internal/services/vision"
	creditsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
	groupingUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/grouping"
	listingUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/listing"
	paymentsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/payments"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Dependencies struct {
	DB             *sqlx.DB
	HTTPServer     *http.Server
	KafkaProducers map[string]*kafkaAdapter.Producer
	KafkaConsumers map[string]*kafkaConsumerAdapter.Consumer
	Cache          cache.Cache
	JobScheduler   *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres()
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	repos := a.initRepositories(db)
	external := a.initExternalServices()

	creditsService := creditsUsecase.New(
		repos.User,
		external.Cache,
		a.Cfg.Credits.StarterGrant,
		a.Cfg.Credits.GoodwillGrant,
		a.Log,
	)

	kafkaProducers, kafkaConsumers, err := a.initKafka(creditsService)
	if err != nil {
		return nil, fmt.Errorf("failed to init kafka: %w", err)
	}

	var eventProducer kafka.IEventProducer
	if prod, ok := kafkaProducers["analysis_events"]; ok {
		eventProducer = prod
	}

	groupingService := groupingUsecase.New(
		creditsService,
		external.Vision, // может быть nil
		external.S3,     // может быть nil
		eventProducer,   // может быть nil
		a.Log,
	)

	listingService := listingUsecase.New(
		repos.Listing,
		repos.User,
		external.Copy, // может быть nil
		external.S3,   // может быть nil
		a.Log,
	)

	paymentsService, provider, err := a.initPayments(repos, creditsService, external.Alerter)
	if err != nil {
		return nil, fmt.Errorf("failed to init payments: %w", err)
	}

	httpServer := a.initHTTP(db, creditsService, groupingService, listingService, paymentsService, provider, external.Alerter)
	scheduler := a.initJobScheduler(external.Alerter, creditsService, paymentsService)

	return &Dependencies{
		DB:             db,
		HTTPServer:     httpServer,
		KafkaProducers: kafkaProducers,
		KafkaConsumers: kafkaConsumers,
		Cache:          external.Cache,
		JobScheduler:   scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	User    repository.IUserRepo
	Payment repository.IPaymentRepo
	Listing repository.IListingRepo
}

// initRepositories инициализирует репозитории для работы с БД
func (a *App) initRepositories(db *sqlx.DB) *repositories {
	persistenceLayer := pg.NewDB(db)
	return &repositories{
		User:    userRepo.New(persistenceLayer, a.Log),
		Payment: paymentRepo.New(persistenceLayer, a.Log),
		Listing: listingRepo.New(persistenceLayer, a.Log),
	}
}

// externalServices содержит внешние сервисы (опциональные)
type externalServices struct {
	Vision  service.IVisionService
	Copy    service.IListingCopyService
	Alerter service.IAlerterService
	Cache   cache.Cache
	S3      storage.IS3Client
}

// initExternalServices инициализирует внешние сервисы (Anthropic, Alerter, Cache, S3)
func (a *App) initExternalServices() *externalServices {
	services := &externalServices{}

	// Anthropic - без него работает только fallback-группировка
	if a.Cfg.Anthropic == nil || a.Cfg.Anthropic.ApiKey == "" {
		a.Log.Warn("anthropic configuration is missing, ai grouping disabled")
	} else {
		anthropicClient := anthropicAdapter.NewClient(a.Cfg.Anthropic, a.Log)
		vision := visionService.New(anthropicClient)
		services.Vision = vision
		services.Copy = vision
	}

	// Alerter - опциональный
	if a.Cfg.Alerter != nil && a.Cfg.Alerter.WebhookURL != "" {
		alerterClient := alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
		services.Alerter = alerterService.New(alerterClient)
	}

	// Redis Cache - опциональный, при отсутствии fallback на in-memory
	if a.Cfg.Redis != nil && a.Cfg.Redis.Host != "" {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, falling back to in-memory", "error", err)
		} else {
			services.Cache = redisAdapter.NewClient(redisClient)
			a.Log.Info("redis cache connected successfully")
		}
	}
	if services.Cache == nil {
		services.Cache = inmemory.NewCache()
		a.Log.Info("using in-memory cache")
	}

	// S3 - опциональный, без него миниатюры не сохраняются
	if a.Cfg.S3 == nil || a.Cfg.S3.Host == "" {
		a.Log.Warn("s3 configuration is missing, image storage disabled")
	} else {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3 client, image storage disabled", "error", err)
		} else {
			services.S3 = s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			a.Log.Info("s3 storage connected successfully")
		}
	}

	return services
}

// initPayments инициализирует платёжный провайдер и сервис покупок
func (a *App) initPayments(
	repos *repositories,
	creditsService *creditsUsecase.Service,
	alerterSvc service.IAlerterService,
) (*paymentsUsecase.Service, paymentPort.IPaymentProvider, error) {
	if a.Cfg.Stripe == nil || a.Cfg.Stripe.SecretKey == "" {
		a.Log.Warn("stripe configuration is missing, payments disabled")
		return nil, nil, nil
	}

	packs, err := a.Cfg.Packs.ToDomain()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid packs config: %w", err)
	}

	provider := stripeAdapter.NewProvider(a.Cfg.Stripe, a.Log)
	paymentsService := paymentsUsecase.New(
		repos.Payment,
		repos.User,
		provider,
		creditsService,
		alerterSvc, // может быть nil
		packs,      // пусто - дефолтные пакеты
		a.Log,
	)
	return paymentsService, provider, nil
}

// initKafka инициализирует Kafka producers и consumers
func (a *App) initKafka(creditsService *creditsUsecase.Service) (
	producers map[string]*kafkaAdapter.Producer,
	consumers map[string]*kafkaConsumerAdapter.Consumer,
	err error,
) {
	producers = make(map[string]*kafkaAdapter.Producer)
	consumers = make(map[string]*kafkaConsumerAdapter.Consumer)

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config == nil {
			continue
		}

		// Producer: есть topic, но нет consumer group
		if kafkaCfg.Config.Topic != "" && kafkaCfg.Config.ConsumerGroup == "" {
			prod, err := kafkaAdapter.NewProducer(kafkaCfg.Config, a.Log)
			if err != nil {
				a.Log.Warn("failed to create kafka producer", "error", err, "name", kafkaCfg.Name)
				continue
			}
			producers[kafkaCfg.Name] = prod
		}

		// Consumer: есть consumer group
		if kafkaCfg.Config.ConsumerGroup != "" {
			handler := a.createHandlerForTopic(kafkaCfg.Name, creditsService)
			if handler == nil {
				a.Log.Warn("no handler for kafka topic, skipping consumer", "name", kafkaCfg.Name)
				continue
			}

			consumer, err := kafkaConsumerAdapter.NewConsumer(kafkaCfg.Config, handler, a.Log)
			if err != nil {
				a.Log.Warn("failed to create kafka consumer", "error", err, "name", kafkaCfg.Name)
				continue
			}
			consumers[kafkaCfg.Name] = consumer
		}
	}

	return producers, consumers, nil
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *sqlx.DB,
	creditsService *creditsUsecase.Service,
	groupingService *groupingUsecase.Service,
	listingService *listingUsecase.Service,
	paymentsService *paymentsUsecase.Service,
	provider paymentPort.IPaymentProvider,
	alerterSvc service.IAlerterService,
) *http.Server {
	authMiddleware := middlewares.Auth(a.Cfg.Auth.SharedSecret, a.Log)

	globalMiddlewares := []gin.HandlerFunc{
		middlewares.RecoveryLogger(a.Log),
	}
	if a.Cfg.Server.EnableLoggingMiddleware {
		globalMiddlewares = append(globalMiddlewares, middlewares.RequestLogger(a.Log))
	}

	controllers := []server.Controller{
		healthcheckController.New(db, a.Log),
		creditsController.New(creditsService, authMiddleware, a.Log),
		groupingController.New(groupingService, authMiddleware, a.Log),
		listingsController.New(listingService, authMiddleware, a.Log),
	}

	if paymentsService != nil {
		controllers = append(controllers, paymentsController.New(paymentsService, provider, authMiddleware, a.Log))
	}
	if alerterSvc != nil {
		controllers = append(controllers, alertsController.New(alerterSvc, a.Log))
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, globalMiddlewares, controllers...)
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(
	alerterSvc service.IAlerterService,
	creditsService *creditsUsecase.Service,
	paymentsService *paymentsUsecase.Service,
) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc)

	goodwillGrant := jobScheduler.NewGoodwillGrant(creditsService, a.Log)
	scheduler.Register(goodwillGrant)
	a.Log.Info("goodwill grant job registered")

	if paymentsService != nil {
		paymentExpirer := jobScheduler.NewPaymentExpirer(paymentsService, a.Log)
		scheduler.Register(paymentExpirer)
		a.Log.Info("payment expirer job registered")
	}

	return scheduler
}

// initPostgres инициализирует подключение к PostgreSQL и запускает миграции
func (a *App) initPostgres() (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(db, a.Log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// createHandlerForTopic создаёт handler для указанного топика Kafka
func (a *App) createHandlerForTopic(
	topicName string,
	creditsService *creditsUsecase.Service,
) kafka.MessageHandler {
	switch topicName {
	case "credit_grants":
		return kafkaHandlers.NewCreditGrantHandler(creditsService, a.Log)
	default:
		a.Log.Warn("unknown kafka topic, using default handler", "topic", topicName)
		return nil
	}
}
