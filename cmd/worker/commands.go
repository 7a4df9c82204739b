package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/adapters/marketplace"
	"github.com/athebyme/listing-pipeline/internal/adapters/messaging"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// commandPipeline операции конвейера, которые выполняет воркер
type commandPipeline interface {
	Publish(ctx context.Context, raws []models.RawProduct) (*models.BatchResult, []models.Rejection, error)
	Export(ctx context.Context, raws []models.RawProduct, dir string) (*services.ExportReport, error)
}

// newCommandHandler возвращает обработчик команд конвейера.
// Команды, которые нельзя выполнить повторно с другим итогом, подтверждаются без ошибки.
func newCommandHandler(pipeline commandPipeline, outputDir string, logger interfaces.LoggerPort) interfaces.MessageHandler {
	return func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()
		activeWorkers.Inc()
		defer activeWorkers.Dec()

		logger.InfoWithContext(ctx, "Получена команда конвейера",
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "topic", Value: msg.Topic},
		)

		cmd, err := messaging.DecodeCommand(msg)
		if err != nil {
			logger.ErrorWithContext(ctx, "Ошибка декодирования команды",
				interfaces.LogField{Key: "message_id", Value: msg.ID},
				interfaces.LogField{Key: "error", Value: err.Error()})
			messagesProcessed.WithLabelValues(msg.Topic, "invalid").Inc()
			return nil
		}

		cmdCtx := ctx
		if cmd.BatchID != "" {
			cmdCtx = interfaces.WithBatchID(ctx, cmd.BatchID)
		}

		switch cmd.Type {
		case messaging.PublishBatchCommand:
			var result *models.BatchResult
			var rejections []models.Rejection
			result, rejections, err = pipeline.Publish(cmdCtx, cmd.Products)
			if err == nil && marketplace.IsAuthFailure(result) {
				logger.ErrorWithContext(cmdCtx, "Партия прервана: авторизация на маркетплейсе не пройдена",
					interfaces.LogField{Key: "batch_id", Value: result.ID},
					interfaces.LogField{Key: "error", Value: result.Error},
				)
			} else if err == nil {
				logger.InfoWithContext(cmdCtx, "Партия опубликована",
					interfaces.LogField{Key: "batch_id", Value: result.ID},
					interfaces.LogField{Key: "state", Value: result.State},
					interfaces.LogField{Key: "succeeded", Value: result.Succeeded},
					interfaces.LogField{Key: "failed", Value: result.Failed},
					interfaces.LogField{Key: "rejected", Value: len(rejections)},
				)
			}

		case messaging.ExportBatchCommand:
			dir := cmd.OutputDir
			if dir == "" {
				dir = outputDir
			}
			var report *services.ExportReport
			report, err = pipeline.Export(cmdCtx, cmd.Products, dir)
			if err == nil {
				logger.InfoWithContext(cmdCtx, "Документы выгрузки записаны",
					interfaces.LogField{Key: "upload_path", Value: report.UploadPath},
					interfaces.LogField{Key: "reference_path", Value: report.ReferencePath},
					interfaces.LogField{Key: "rows", Value: report.Rows},
					interfaces.LogField{Key: "rejected", Value: len(report.Rejections)},
				)
			}
		}

		if err != nil {
			if errors.Is(err, utils.ErrNothingToPublish) || errors.Is(err, export.ErrExportEmpty) {
				logger.WarnWithContext(cmdCtx, "Ни одна запись команды не прошла сборку карточки",
					interfaces.LogField{Key: "command_type", Value: cmd.Type},
					interfaces.LogField{Key: "products", Value: len(cmd.Products)})
				messagesProcessed.WithLabelValues(msg.Topic, "empty").Inc()
				return nil
			}
			logger.ErrorWithContext(cmdCtx, "Ошибка обработки команды",
				interfaces.LogField{Key: "command_type", Value: cmd.Type},
				interfaces.LogField{Key: "error", Value: err.Error()})
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		duration := time.Since(startTime).Seconds()
		messageProcessingDuration.WithLabelValues(msg.Topic).Observe(duration)
		messagesProcessed.WithLabelValues(msg.Topic, "success").Inc()

		logger.InfoWithContext(cmdCtx, "Команда успешно обработана",
			interfaces.LogField{Key: "command_type", Value: cmd.Type},
			interfaces.LogField{Key: "duration", Value: duration},
		)

		return nil
	}
}

// subscribeToCommands подписывает обработчик на топик команд до отмены ctx
func subscribeToCommands(ctx context.Context, messagingClient interfaces.MessagingPort, topic string,
	handler interfaces.MessageHandler, logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, topic, handler)
		if err != nil {
			logger.Error("Ошибка подписки на команды конвейера",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer unsubscribe()

		logger.Info("Подписка на команды конвейера установлена",
			interfaces.LogField{Key: "topic", Value: topic})

		<-ctx.Done()
		logger.Info("Отмена подписки на команды конвейера")
	}()
}
