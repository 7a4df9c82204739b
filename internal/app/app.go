package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/athebyme/listing-pipeline/config"
	"github.com/athebyme/listing-pipeline/internal/adapters/cache"
	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/adapters/messaging"
	postgres "github.com/athebyme/listing-pipeline/internal/adapters/storage"
	"github.com/athebyme/listing-pipeline/internal/adapters/translator"
	"github.com/athebyme/listing-pipeline/internal/domain/assembler"
	"github.com/athebyme/listing-pipeline/internal/domain/category"
	"github.com/athebyme/listing-pipeline/internal/domain/normalizer"
	"github.com/athebyme/listing-pipeline/internal/domain/pricing"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// Options переопределяют настройки при сборке приложения
type Options struct {
	// NoTranslate отключает перевод независимо от конфигурации
	NoTranslate bool
	// NoPublish не создает публикатор маркетплейса
	NoPublish bool
	// WithMessaging подключает Kafka, если она включена в конфигурации
	WithMessaging bool
}

// App связанные компоненты конвейера и их ресурсы
type App struct {
	Pipeline  *services.PipelineService
	Assembler *assembler.Assembler
	Exporter  *export.Exporter
	Messaging *messaging.KafkaMessaging
	Events    *messaging.EventPublisher

	closers []func() error
	logger  interfaces.LoggerPort
}

// Build собирает конвейер по конфигурации
func Build(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort, opts Options) (*App, error) {
	a := &App{logger: log}

	cacheClient, err := a.buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var tr interfaces.TranslatorPort
	if cfg.Translation.Enabled && !opts.NoTranslate {
		tr = translator.NewCachedTranslator(translator.NewOpenAITranslator(cfg.OpenAIConfig()), cacheClient, cfg.Translation.CacheTTL, log)
		log.Info("Перевод карточек включен",
			interfaces.LogField{Key: "model", Value: cfg.Translation.Model},
		)
	}

	policy, err := cfg.PricingPolicy()
	if err != nil {
		a.Close()
		return nil, err
	}
	prices, err := pricing.NewCalculator(policy)
	if err != nil {
		a.Close()
		return nil, err
	}

	table, err := cfg.CategoryTable()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка загрузки таблицы категорий: %w", err)
	}
	classifier, err := category.NewClassifier(table)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка проверки таблицы категорий: %w", err)
	}
	log.Info("Таблица категорий загружена",
		interfaces.LogField{Key: "file", Value: cfg.Category.TableFile},
		interfaces.LogField{Key: "default_category", Value: string(classifier.Default())},
	)

	a.Assembler = assembler.NewAssembler(
		normalizer.NewTitleNormalizer(tr, cfg.Title.MaxLength, log),
		normalizer.NewDescriptionBuilder(tr, log),
		prices,
		classifier,
		cfg.AssemblerConfig(),
		log,
	)
	a.Exporter = export.NewExporter(cfg.Export.FilePrefix, log)

	ledger, err := a.buildLedger(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var svcOpts []services.Option
	if cfg.Marketplace.Enabled && !opts.NoPublish {
		svcOpts = append(svcOpts, services.WithPublisher(cfg.Marketplace.NewPublisher(&http.Client{}, log)))
		if cfg.Marketplace.DailyLimit > 0 {
			svcOpts = append(svcOpts, services.WithQuota(cache.NewDailyQuota(cacheClient, cfg.Marketplace.DailyLimit)))
		}
		log.Info("Публикация на маркетплейсе включена",
			interfaces.LogField{Key: "base_url", Value: cfg.Marketplace.BaseURL},
			interfaces.LogField{Key: "pacing_interval", Value: cfg.Marketplace.PacingInterval.String()},
			interfaces.LogField{Key: "daily_limit", Value: cfg.Marketplace.DailyLimit},
		)
	}

	if cfg.Kafka.Enabled && opts.WithMessaging {
		if err := a.buildMessaging(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
		svcOpts = append(svcOpts, services.WithEvents(a.Events))
	}

	a.Pipeline = services.NewPipelineService(a.Assembler, a.Exporter, ledger, log, svcOpts...)
	return a, nil
}

func (a *App) buildCache(ctx context.Context, cfg *config.Config) (interfaces.CachePort, error) {
	if !cfg.Redis.Enabled {
		c := cache.NewMemoryCache(cfg.Redis.DefaultExpiration, 10*time.Minute)
		a.closers = append(a.closers, c.Close)
		a.logger.Info("Используется кэш в памяти процесса")
		return c, nil
	}

	c, err := cache.NewRedisCache(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации кэша: %w", err)
	}
	a.closers = append(a.closers, c.Close)

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := CheckCacheConnection(checkCtx, c); err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	a.logger.Info("Соединение с Redis проверено")
	return c, nil
}

func (a *App) buildLedger(ctx context.Context, cfg *config.Config) (services.BatchLedger, error) {
	if !cfg.Postgres.Enabled {
		a.logger.Info("Журнал партий хранится в памяти процесса")
		return services.NewMemoryLedger(), nil
	}

	dsn, err := cfg.PostgresDSN()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации строки подключения базы: %w", err)
	}
	db, err := postgres.NewPostgresStorage(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("Журнал партий PostgreSQL инициализирован")
	return db, nil
}

func (a *App) buildMessaging(ctx context.Context, cfg *config.Config) error {
	client, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ClientID, a.logger)
	if err != nil {
		return fmt.Errorf("ошибка инициализации системы обмена сообщениями: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	for _, topic := range []string{cfg.Kafka.CommandsTopic, cfg.Kafka.EventsTopic} {
		if err := client.CreateTopic(ctx, topic, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			a.logger.Warn("Не удалось создать топик",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	a.Messaging = client
	a.Events = messaging.NewEventPublisher(client, cfg.Kafka.EventsTopic)
	a.logger.Info("Система обмена сообщениями инициализирована")
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("Ошибка при закрытии ресурса",
				interfaces.LogField{Key: "error", Value: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.closers = nil
	return firstErr
}

// CheckCacheConnection проверяет запись, чтение и удаление тестового ключа
func CheckCacheConnection(ctx context.Context, cacheClient interfaces.CachePort) error {
	testKey := "test:connection"
	testValue := []byte("test-value")

	if err := cacheClient.Set(ctx, testKey, testValue, 10*time.Second); err != nil {
		return fmt.Errorf("ошибка записи в кэш: %w", err)
	}

	value, err := cacheClient.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("ошибка чтения из кэша: %w", err)
	}

	if string(value) != string(testValue) {
		return fmt.Errorf("некорректное значение из кэша: получено %s, ожидалось %s",
			string(value), string(testValue))
	}

	if err := cacheClient.Delete(ctx, testKey); err != nil {
		return fmt.Errorf("ошибка удаления из кэша: %w", err)
	}

	return nil
}
