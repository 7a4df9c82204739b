package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/athebyme/listing-pipeline/config"
	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/adapters/marketplace"
	"github.com/athebyme/listing-pipeline/internal/adapters/source"
	"github.com/athebyme/listing-pipeline/internal/app"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

func main() {
	input := flag.String("input", "", "файл с товарами (.json или .csv)")
	out := flag.String("out", "", "каталог для документов выгрузки и итогов публикации")
	publish := flag.Bool("publish", false, "опубликовать карточки на маркетплейсе после выгрузки")
	noTranslate := flag.Bool("no-translate", false, "не переводить названия и описания")
	configPath := flag.String("config", "", "путь к файлу конфигурации")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Не указан входной файл: -input products.json")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = cfg.Export.OutputDir
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *input, *out, *publish, *noTranslate); err != nil {
		log.Error("Конвертация завершилась ошибкой", interfaces.LogField{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort, input, out string, publish, noTranslate bool) error {
	raws, err := source.LoadFile(input)
	if err != nil {
		return err
	}
	log.Info("Товары загружены",
		interfaces.LogField{Key: "input", Value: input},
		interfaces.LogField{Key: "products", Value: len(raws)},
	)

	application, err := app.Build(ctx, cfg, log, app.Options{NoTranslate: noTranslate, NoPublish: !publish})
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Pipeline.Export(ctx, raws, out)
	if err != nil {
		if errors.Is(err, export.ErrExportEmpty) {
			fmt.Printf("Ни одна из %d записей не прошла сборку карточки\n", len(raws))
		}
		return err
	}

	fmt.Printf("Документ загрузки: %s\n", report.UploadPath)
	fmt.Printf("Справочный документ: %s\n", report.ReferencePath)
	fmt.Printf("Карточек: %d, отклонено записей: %d\n", report.Rows, len(report.Rejections))
	for _, r := range report.Rejections {
		fmt.Printf("  #%d %q: %s\n", r.Index, r.Title, r.Reason)
	}

	if !publish {
		return nil
	}

	result, _, err := application.Pipeline.Publish(ctx, raws)
	if err != nil {
		return err
	}

	path, err := writeResults(out, result)
	if err != nil {
		return err
	}

	fmt.Printf("Публикация %s: успешно %d, ошибок %d, исключено %d\n",
		result.State, result.Succeeded, result.Failed, len(result.Excluded))
	fmt.Printf("Итоги публикации: %s\n", path)

	if marketplace.IsAuthFailure(result) {
		return fmt.Errorf("авторизация на маркетплейсе не пройдена: %s", result.Error)
	}
	return nil
}

// resultsFileName имя файла итогов публикации
func resultsFileName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("registration_results_%s.json", t.Format("20060102_150405")))
}

// writeResults сохраняет итог партии в каталог dir
func writeResults(dir string, result *models.BatchResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога итогов: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации итогов: %w", err)
	}

	path := resultsFileName(dir, result.FinishedAt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи итогов: %w", err)
	}
	return path, nil
}
