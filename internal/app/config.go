package app

import (
	"fmt"

	server "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http"
	alerterAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/alerter"
	anthropicAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/anthropic"
	kafkaAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/kafka"
	stripeAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/payment/stripe"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/storage/s3"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Postgres  *pg.Config                `envconfig:"POSTGRES"`
	Log       *logger.Config            `envconfig:"LOG"`
	Server    *server.Config            `envconfig:"APISERVER"`
	Anthropic *anthropicAdapter.Config  `envconfig:"ANTHROPIC"`
	Stripe    *stripeAdapter.Config     `envconfig:"STRIPE"`
	Redis     *redisAdapter.Config      `envconfig:"REDIS"`
	S3        *s3Adapter.Config         `envconfig:"S3"`
	Kafka     kafkaAdapter.KafkaConfigs `envconfig:"KAFKA"`
	Alerter   *alerterAdapter.Config    `envconfig:"ALERTER"`
	Auth      AuthConfig                `envconfig:"AUTH"`
	Credits   CreditsConfig             `envconfig:"CREDITS"`
	Packs     PacksConfig               `envconfig:"PACKS"`
}

// AuthConfig конфигурация auth-прокси перед API
type AuthConfig struct {
	// SharedSecret общий секрет с прокси; пустой - проверяется только заголовок identity
	SharedSecret string `envconfig:"SHARED_SECRET"`
}

// CreditsConfig параметры учёта кредитов
type CreditsConfig struct {
	StarterGrant  int `envconfig:"STARTER_GRANT" default:"10"`
	GoodwillGrant int `envconfig:"GOODWILL_GRANT" default:"5"`
}

// PacksConfig конфигурация продаваемых пакетов кредитов
type PacksConfig struct {
	Count int          `envconfig:"COUNT" default:"0"`
	List  []PackConfig `envconfig:"-"` // Игнорируем envconfig, загружаем вручную
}

// Load загружает конфигурацию пакетов из переменных окружения
func (pc *PacksConfig) Load(envPrefix string) error {
	pc.List = make([]PackConfig, pc.Count)
	for i := 0; i < pc.Count; i++ {
		prefix := fmt.Sprintf("%s_PACKS_%d", envPrefix, i) // FASHION_ANALYZER_PACKS_0, FASHION_ANALYZER_PACKS_1, ...
		var pack PackConfig
		if err := envconfig.Process(prefix, &pack); err != nil {
			return fmt.Errorf("failed to load pack %d: %w", i, err)
		}
		pc.List[i] = pack
	}
	return nil
}

// ToDomain конвертирует конфигурацию пакетов в доменные CreditPack
func (pc *PacksConfig) ToDomain() ([]domain.CreditPack, error) {
	packs := make([]domain.CreditPack, 0, len(pc.List))
	for i, pack := range pc.List {
		if err := pack.Validate(); err != nil {
			return nil, fmt.Errorf("invalid pack config at index %d: %w", i, err)
		}
		packs = append(packs, domain.CreditPack{
			ProductID:   pack.ProductID,
			Title:       pack.Title,
			Credits:     pack.Credits,
			AmountCents: pack.AmountCents,
			Currency:    pack.Currency,
		})
	}
	return packs, nil
}

// PackConfig конфигурация одного пакета кредитов
type PackConfig struct {
	ProductID   string `envconfig:"PRODUCT_ID" required:"true"` // FASHION_ANALYZER_PACKS_0_PRODUCT_ID, ...
	Title       string `envconfig:"TITLE" required:"true"`
	Credits     int    `envconfig:"CREDITS" required:"true"`
	AmountCents int64  `envconfig:"AMOUNT_CENTS" required:"true"`
	Currency    string `envconfig:"CURRENCY" default:"gbp"`
}

func (c *PackConfig) Validate() error {
	if c.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	if c.Credits <= 0 {
		return fmt.Errorf("credits must be positive")
	}
	if c.AmountCents <= 0 {
		return fmt.Errorf("amount_cents must be positive")
	}
	return nil
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	// Загружаем пакеты вручную (envconfig не умеет автоматически определять размер слайса)
	if err := cfg.Packs.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load packs config: %w", err)
	}

	// Загружаем Kafka конфигурацию вручную
	if err := cfg.Kafka.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}

	return cfg, nil
}
