package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/listing-pipeline/config"
	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/api"
	"github.com/athebyme/listing-pipeline/internal/app"
	"github.com/athebyme/listing-pipeline/internal/security"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

func main() {
	configPath := flag.String("config", "", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	application, err := app.Build(ctx, cfg, log, app.Options{WithMessaging: true})
	if err != nil {
		log.Fatal("Ошибка инициализации конвейера", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Конвейер карточек инициализирован")

	var authPort interfaces.AuthPort
	if cfg.Security.Enabled {
		jwtManager, err := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpirationMin, cfg.Security.JWTIssuer)
		if err != nil {
			log.Fatal("Ошибка инициализации проверки токенов", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		authPort = jwtManager
		log.Info("Авторизация по JWT включена")
	}

	router := api.SetupRouter(application.Pipeline, log, cfg.Security.CORSAllowOrigins, authPort)
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка при остановке HTTP сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("HTTP сервер остановлен")

		// выполняющиеся партии отменяются, их итог сохраняется в журнал
		if err := application.Pipeline.Shutdown(shutdownCtx); err != nil {
			log.Error("Партии не завершились до таймаута",
				interfaces.LogField{Key: "running", Value: application.Pipeline.RunningBatches()},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}

		log.Info("Закрытие соединений с зависимостями...")
		_ = application.Close()

		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}
