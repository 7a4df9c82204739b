package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config содержит все настройки конвейера
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Postgres struct {
		Enabled  bool
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Enabled           bool
		Host              string
		Port              int
		Password          string
		DB                int
		Prefix            string
		DefaultExpiration time.Duration // срок действия кэша по умолчанию
	}

	Kafka struct {
		Enabled       bool     `mapstructure:"enabled"`
		Brokers       []string `mapstructure:"brokers"`
		GroupID       string   `mapstructure:"group_id"`
		ClientID      string   `mapstructure:"client_id"`
		CommandsTopic string   `mapstructure:"commands_topic"`
		EventsTopic   string   `mapstructure:"events_topic"`
		Partitions    int      `mapstructure:"partitions"`
		Replication   int      `mapstructure:"replication"`
	}

	Metrics struct {
		Enabled  bool
		Endpoint string
		Port     int `mapstructure:"port"`
	}

	Security struct {
		Enabled          bool
		JWTSecret        string
		JWTExpirationMin time.Duration
		JWTIssuer        string
		CORSAllowOrigins []string
	}

	Pricing struct {
		ExchangeRate string
		Markup       string
		RoundingUnit int64
		MinPrice     int64
	}

	Category struct {
		// TableFile yaml-файл с правилами и таксономией; пусто - встроенная таблица
		TableFile string
	}

	Title struct {
		MaxLength int
	}

	Translation struct {
		Enabled    bool
		APIKey     string
		BaseURL    string
		Model      string
		TargetLang string
		Timeout    time.Duration
		MaxInput   int
		CacheTTL   time.Duration
	}

	Listing models.ListingDefaults

	Assembler struct {
		SellerCodePrefix string
		Workers          int
	}

	Marketplace MarketplaceConfig

	Export struct {
		OutputDir  string
		FilePrefix string
	}
}

var (
	ErrMissingMarketplaceCredentials = errors.New("marketplace client id and secret are required when publishing is enabled")
	ErrMissingJWTSecret              = errors.New("security.jwtSecret is required when auth is enabled")
	ErrMissingOpenAIKey              = errors.New("translation.apiKey is required when translation is enabled")
)

// Load загружает конфигурацию из .env, файла и переменных окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if strings.HasSuffix(configFile, ".yaml") || strings.HasSuffix(configFile, ".yml") {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFile)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Чтение конфигурационного файла
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	setDefaults(v)
	bindEnvVariables(v)

	cfg := Config{Listing: models.DefaultListingDefaults()}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	cfg.ENV = v.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность включенных компонентов
func (c *Config) Validate() error {
	if c.Marketplace.Enabled && (c.Marketplace.ClientID == "" || c.Marketplace.ClientSecret == "") {
		return ErrMissingMarketplaceCredentials
	}
	if c.Security.Enabled && c.Security.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Translation.Enabled && c.Translation.APIKey == "" {
		return ErrMissingOpenAIKey
	}
	if _, err := c.PricingPolicy(); err != nil {
		return err
	}
	return nil
}

// IsProduction сообщает, запущен ли сервис в боевом окружении
func (c *Config) IsProduction() bool {
	return c.ENV == "production"
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Основные настройки
	v.SetDefault("appName", "listing-pipeline")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "0s") // синхронная публикация длится минуты
	v.SetDefault("server.shutdownTimeout", "30s")

	// Настройки Postgres
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "listing")
	v.SetDefault("redis.defaultExpiration", "720h")

	// Настройки Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "listing-pipeline")
	v.SetDefault("kafka.client_id", "listing-pipeline")
	v.SetDefault("kafka.commands_topic", "listing-commands")
	v.SetDefault("kafka.events_topic", "listing-events")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication", 1)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.endpoint", "/metrics")
	v.SetDefault("metrics.port", 9090)

	// Настройки безопасности
	v.SetDefault("security.enabled", false)
	v.SetDefault("security.jwtSecret", "")
	v.SetDefault("security.jwtExpirationMin", "60m")
	v.SetDefault("security.jwtIssuer", "listing-pipeline")
	v.SetDefault("security.corsAllowOrigins", []string{"*"})

	// Пересчет цены
	v.SetDefault("pricing.exchangeRate", "1350")
	v.SetDefault("pricing.markup", "1.6")
	v.SetDefault("pricing.roundingUnit", 800)
	v.SetDefault("pricing.minPrice", 1000)

	v.SetDefault("category.tableFile", "")
	v.SetDefault("title.maxLength", 100)

	// Перевод
	v.SetDefault("translation.enabled", false)
	v.SetDefault("translation.baseURL", "")
	v.SetDefault("translation.model", "gpt-4o-mini")
	v.SetDefault("translation.targetLang", "Korean")
	v.SetDefault("translation.timeout", "20s")
	v.SetDefault("translation.maxInput", 4000)
	v.SetDefault("translation.cacheTTL", "720h")

	v.SetDefault("assembler.sellerCodePrefix", "AMZ")
	v.SetDefault("assembler.workers", 4)

	// Маркетплейс
	v.SetDefault("marketplace.enabled", false)
	v.SetDefault("marketplace.baseURL", "https://api.commerce.naver.com")
	v.SetDefault("marketplace.tokenType", "SELF")
	v.SetDefault("marketplace.requestTimeout", "30s")
	v.SetDefault("marketplace.pacingInterval", "2s")
	v.SetDefault("marketplace.dailyLimit", 0)
	v.SetDefault("marketplace.returnCenterCode", "10001")
	v.SetDefault("marketplace.returnChargeName", "판매자")

	v.SetDefault("export.outputDir", "./out")
	v.SetDefault("export.filePrefix", "smartstore_upload")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) {
	// Основные настройки
	v.BindEnv("appName", "APP_NAME")
	v.BindEnv("version", "APP_VERSION")
	v.BindEnv("logLevel", "LOG_LEVEL")
	v.BindEnv("env", "APP_ENV")

	// Настройки сервера
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Настройки Postgres
	v.BindEnv("postgres.enabled", "POSTGRES_ENABLED")
	v.BindEnv("postgres.host", "POSTGRES_HOST")
	v.BindEnv("postgres.port", "POSTGRES_PORT")
	v.BindEnv("postgres.user", "POSTGRES_USER")
	v.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	v.BindEnv("postgres.dbname", "POSTGRES_DBNAME")
	v.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")

	// Настройки Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Настройки Kafka
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.commands_topic", "KAFKA_COMMANDS_TOPIC")
	v.BindEnv("kafka.events_topic", "KAFKA_EVENTS_TOPIC")

	// Настройки безопасности
	v.BindEnv("security.enabled", "AUTH_ENABLED")
	v.BindEnv("security.jwtSecret", "JWT_SECRET")
	v.BindEnv("security.jwtExpirationMin", "JWT_EXPIRATION_MIN")
	v.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")

	// Пересчет цены
	v.BindEnv("pricing.exchangeRate", "PRICING_EXCHANGE_RATE")
	v.BindEnv("pricing.markup", "PRICING_MARKUP")

	// Перевод
	v.BindEnv("translation.enabled", "TRANSLATION_ENABLED")
	v.BindEnv("translation.apiKey", "OPENAI_API_KEY")
	v.BindEnv("translation.baseURL", "OPENAI_BASE_URL")
	v.BindEnv("translation.model", "OPENAI_MODEL")

	// Маркетплейс
	v.BindEnv("marketplace.enabled", "MARKETPLACE_ENABLED")
	v.BindEnv("marketplace.baseURL", "MARKETPLACE_BASE_URL")
	v.BindEnv("marketplace.clientID", "MARKETPLACE_CLIENT_ID")
	v.BindEnv("marketplace.clientSecret", "MARKETPLACE_CLIENT_SECRET")
	v.BindEnv("marketplace.customerID", "MARKETPLACE_CUSTOMER_ID")
	v.BindEnv("marketplace.dailyLimit", "MARKETPLACE_DAILY_LIMIT")

	v.BindEnv("export.outputDir", "EXPORT_OUTPUT_DIR")
}
