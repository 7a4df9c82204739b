package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/adapters/marketplace"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
	"github.com/google/uuid"
)

var timeNow = time.Now

// ListingAssembler собирает карточки из сырых записей
type ListingAssembler interface {
	AssembleBatch(ctx context.Context, raws []models.RawProduct) ([]models.Listing, []models.Rejection)
}

// DocumentExporter формирует документы выгрузки
type DocumentExporter interface {
	Export(ctx context.Context, listings []models.Listing, dir string) (*export.ExportResult, error)
	Render(listings []models.Listing, artifact export.Artifact) ([]byte, error)
	FileName(artifact export.Artifact) string
}

// BatchPublisher публикует партию на маркетплейсе
type BatchPublisher interface {
	Run(ctx context.Context, batch marketplace.Batch) *models.BatchResult
}

// BatchLedger журнал партий публикации
type BatchLedger interface {
	SaveBatch(ctx context.Context, result *models.BatchResult) error
	GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error)
	ListBatches(ctx context.Context, filters map[string]interface{}, pagination *pkgutils.Pagination) ([]models.BatchSummary, int, error)
}

// RegistrationQuota суточный лимит регистраций
type RegistrationQuota interface {
	Reserve(ctx context.Context, n int) (int, error)
	Release(ctx context.Context, n int) error
	Limit() int
}

// BatchEvents публикует события завершенной партии
type BatchEvents interface {
	PublishBatchEvents(ctx context.Context, result *models.BatchResult) error
}

// PipelineServiceInterface определяет операции конвейера для транспортного слоя
type PipelineServiceInterface interface {
	Assemble(ctx context.Context, raws []models.RawProduct) *AssembleResult
	Export(ctx context.Context, raws []models.RawProduct, dir string) (*ExportReport, error)
	Render(ctx context.Context, raws []models.RawProduct, artifact export.Artifact) (*RenderedDocument, error)
	Publish(ctx context.Context, raws []models.RawProduct) (*models.BatchResult, []models.Rejection, error)
	StartPublish(ctx context.Context, raws []models.RawProduct) (*StartedBatch, error)
	CancelBatch(ctx context.Context, batchID string) error
	GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error)
	ListBatches(ctx context.Context, filter *models.BatchFilter, pagination *pkgutils.Pagination) (*pkgutils.PagedResult, error)
}

var _ PipelineServiceInterface = (*PipelineService)(nil)

// AssembleResult итог сборки карточек
type AssembleResult struct {
	Listings   []models.Listing   `json:"listings"`
	Rejections []models.Rejection `json:"rejections"`
}

// ExportReport итог выгрузки документов
type ExportReport struct {
	*export.ExportResult
	Rejections []models.Rejection `json:"rejections"`
}

// RenderedDocument документ выгрузки в памяти
type RenderedDocument struct {
	FileName   string
	Content    []byte
	Rows       int
	Rejections []models.Rejection
}

// StartedBatch запущенная в фоне партия
type StartedBatch struct {
	BatchID    string             `json:"batch_id"`
	Requested  int                `json:"requested"`
	Rejections []models.Rejection `json:"rejections"`
}

// runningBatch партия, выполняющаяся в фоне
type runningBatch struct {
	cancel   context.CancelFunc
	snapshot *models.BatchResult
}

// PipelineService предоставляет бизнес-логику конвейера карточек
type PipelineService struct {
	assembler ListingAssembler
	exporter  DocumentExporter
	publisher BatchPublisher
	ledger    BatchLedger
	quota     RegistrationQuota
	events    BatchEvents
	logger    interfaces.LoggerPort

	mu      sync.Mutex
	running map[string]*runningBatch
	wg      sync.WaitGroup
}

// Option настраивает необязательные зависимости сервиса
type Option func(*PipelineService)

// WithPublisher подключает публикацию на маркетплейсе
func WithPublisher(p BatchPublisher) Option {
	return func(s *PipelineService) { s.publisher = p }
}

// WithQuota подключает суточный лимит регистраций
func WithQuota(q RegistrationQuota) Option {
	return func(s *PipelineService) { s.quota = q }
}

// WithEvents подключает публикацию событий
func WithEvents(e BatchEvents) Option {
	return func(s *PipelineService) { s.events = e }
}

// NewPipelineService создает новый экземпляр PipelineService
func NewPipelineService(
	assembler ListingAssembler,
	exporter DocumentExporter,
	ledger BatchLedger,
	logger interfaces.LoggerPort,
	opts ...Option,
) *PipelineService {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	s := &PipelineService{
		assembler: assembler,
		exporter:  exporter,
		ledger:    ledger,
		logger:    logger,
		running:   make(map[string]*runningBatch),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assemble собирает карточки и возвращает отклоненные записи
func (s *PipelineService) Assemble(ctx context.Context, raws []models.RawProduct) *AssembleResult {
	listings, rejections := s.assembler.AssembleBatch(ctx, raws)
	if rejections == nil {
		rejections = []models.Rejection{}
	}
	return &AssembleResult{Listings: listings, Rejections: rejections}
}

// Export собирает карточки и записывает оба документа в каталог dir.
// Если ни одна запись не прошла сборку, возвращается export.ErrExportEmpty.
func (s *PipelineService) Export(ctx context.Context, raws []models.RawProduct, dir string) (*ExportReport, error) {
	assembled := s.Assemble(ctx, raws)

	result, err := s.exporter.Export(ctx, assembled.Listings, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to export listings: %w", err)
	}

	return &ExportReport{ExportResult: result, Rejections: assembled.Rejections}, nil
}

// Render собирает карточки и формирует один документ в памяти
func (s *PipelineService) Render(ctx context.Context, raws []models.RawProduct, artifact export.Artifact) (*RenderedDocument, error) {
	if artifact != export.ArtifactUpload && artifact != export.ArtifactReference {
		return nil, fmt.Errorf("%w: %q", utils.ErrInvalidArtifact, artifact)
	}

	assembled := s.Assemble(ctx, raws)
	content, err := s.exporter.Render(assembled.Listings, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s document: %w", artifact, err)
	}

	return &RenderedDocument{
		FileName:   s.exporter.FileName(artifact),
		Content:    content,
		Rows:       len(assembled.Listings),
		Rejections: assembled.Rejections,
	}, nil
}

// Publish собирает карточки и синхронно публикует их одной партией
func (s *PipelineService) Publish(ctx context.Context, raws []models.RawProduct) (*models.BatchResult, []models.Rejection, error) {
	if s.publisher == nil {
		return nil, nil, utils.ErrPublisherDisabled
	}

	assembled := s.Assemble(ctx, raws)
	if len(assembled.Listings) == 0 {
		return nil, assembled.Rejections, utils.ErrNothingToPublish
	}

	result := s.runBatch(ctx, uuid.NewString(), assembled.Listings, nil)
	return result, assembled.Rejections, nil
}

// StartPublish собирает карточки и запускает публикацию в фоне.
// Партия не зависит от отмены ctx; остановить ее можно через CancelBatch.
func (s *PipelineService) StartPublish(ctx context.Context, raws []models.RawProduct) (*StartedBatch, error) {
	if s.publisher == nil {
		return nil, utils.ErrPublisherDisabled
	}

	assembled := s.Assemble(ctx, raws)
	if len(assembled.Listings) == 0 {
		return &StartedBatch{Rejections: assembled.Rejections}, utils.ErrNothingToPublish
	}

	batchID := uuid.NewString()
	batchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	rb := &runningBatch{
		cancel:   cancel,
		snapshot: models.NewBatchResult(batchID, len(assembled.Listings), timeNow()),
	}
	s.mu.Lock()
	s.running[batchID] = rb
	s.mu.Unlock()

	s.saveLedger(batchCtx, rb.snapshot)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer func() {
			s.mu.Lock()
			delete(s.running, batchID)
			s.mu.Unlock()
		}()

		s.runBatch(batchCtx, batchID, assembled.Listings, func(snapshot *models.BatchResult) {
			s.mu.Lock()
			rb.snapshot = snapshot
			s.mu.Unlock()
		})
	}()

	s.logger.InfoWithContext(ctx, "Партия поставлена на публикацию",
		interfaces.LogField{Key: "batch_id", Value: batchID},
		interfaces.LogField{Key: "listings", Value: len(assembled.Listings)},
		interfaces.LogField{Key: "rejected", Value: len(assembled.Rejections)},
	)

	return &StartedBatch{
		BatchID:    batchID,
		Requested:  len(assembled.Listings),
		Rejections: assembled.Rejections,
	}, nil
}

// runBatch резервирует лимит, публикует карточки и сохраняет итог.
// Ошибки журнала и событий только логируются.
func (s *PipelineService) runBatch(ctx context.Context, batchID string, listings []models.Listing, progress func(*models.BatchResult)) *models.BatchResult {
	allowed := len(listings)
	if s.quota != nil {
		granted, err := s.quota.Reserve(ctx, len(listings))
		switch {
		case errors.Is(err, utils.ErrQuotaUnavailable):
			s.logger.WarnWithContext(ctx, "Лимит регистраций недоступен, партия публикуется без ограничения",
				interfaces.LogField{Key: "batch_id", Value: batchID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		case err != nil:
			s.logger.WarnWithContext(ctx, "Ошибка учета лимита регистраций после резервирования",
				interfaces.LogField{Key: "batch_id", Value: batchID},
				interfaces.LogField{Key: "granted", Value: granted},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			allowed = granted
		default:
			allowed = granted
		}
	}

	overLimit := listings[allowed:]
	withLimit := func(r *models.BatchResult) *models.BatchResult {
		r.Requested = len(listings)
		for i, l := range overLimit {
			r.Exclude(allowed+i+1, l, models.ExcludedDailyLimit)
		}
		return r
	}

	if len(overLimit) > 0 {
		s.logger.WarnWithContext(ctx, "Суточный лимит регистраций исчерпан",
			interfaces.LogField{Key: "batch_id", Value: batchID},
			interfaces.LogField{Key: "daily_limit", Value: s.quota.Limit()},
			interfaces.LogField{Key: "allowed", Value: allowed},
			interfaces.LogField{Key: "excluded", Value: len(overLimit)},
		)
	}

	batch := marketplace.Batch{ID: batchID, Listings: listings[:allowed]}
	if progress != nil {
		batch.OnProgress = func(snapshot *models.BatchResult) {
			progress(withLimit(snapshot))
		}
	}

	var result *models.BatchResult
	if allowed == 0 {
		result = models.NewBatchResult(batchID, 0, timeNow())
		result.State = models.BatchStateCompleted
		result.FinishedAt = result.StartedAt
		result = withLimit(result)
		if progress != nil {
			progress(result.Clone())
		}
	} else {
		result = withLimit(s.publisher.Run(ctx, batch))
	}

	if s.quota != nil && allowed > result.Total {
		if err := s.quota.Release(context.WithoutCancel(ctx), allowed-result.Total); err != nil {
			s.logger.WarnWithContext(ctx, "Не удалось вернуть неиспользованный лимит",
				interfaces.LogField{Key: "batch_id", Value: batchID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	persistCtx := context.WithoutCancel(ctx)
	s.saveLedger(persistCtx, result)
	if s.events != nil {
		if err := s.events.PublishBatchEvents(persistCtx, result); err != nil {
			s.logger.ErrorWithContext(ctx, "Ошибка публикации событий партии",
				interfaces.LogField{Key: "batch_id", Value: batchID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	return result
}

func (s *PipelineService) saveLedger(ctx context.Context, result *models.BatchResult) {
	if err := s.ledger.SaveBatch(ctx, result); err != nil {
		s.logger.ErrorWithContext(ctx, "Ошибка сохранения партии в журнал",
			interfaces.LogField{Key: "batch_id", Value: result.ID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}

// CancelBatch останавливает выполняющуюся партию.
// Карточка, публикуемая в момент отмены, завершается; остальные исключаются.
func (s *PipelineService) CancelBatch(ctx context.Context, batchID string) error {
	if _, err := uuid.Parse(batchID); err != nil {
		return utils.ErrInvalidBatchID
	}

	s.mu.Lock()
	rb, ok := s.running[batchID]
	s.mu.Unlock()
	if ok {
		rb.cancel()
		s.logger.InfoWithContext(ctx, "Запрошена отмена партии",
			interfaces.LogField{Key: "batch_id", Value: batchID},
		)
		return nil
	}

	if _, err := s.ledger.GetBatch(ctx, batchID); err != nil {
		return err
	}
	return utils.ErrBatchNotRunning
}

// GetBatch возвращает текущее состояние партии
func (s *PipelineService) GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, utils.ErrInvalidBatchID
	}

	s.mu.Lock()
	rb, ok := s.running[batchID]
	var snapshot *models.BatchResult
	if ok {
		snapshot = rb.snapshot.Clone()
	}
	s.mu.Unlock()
	if ok {
		return snapshot, nil
	}

	result, err := s.ledger.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, utils.ErrBatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return result, nil
}

// ListBatches возвращает страницу журнала партий
func (s *PipelineService) ListBatches(ctx context.Context, filter *models.BatchFilter, pagination *pkgutils.Pagination) (*pkgutils.PagedResult, error) {
	if filter == nil {
		filter = &models.BatchFilter{}
	}
	if pagination == nil {
		pagination = pkgutils.NewPagination(1, pkgutils.DefaultPageSize, models.BatchSortStartedAt, true)
	}

	batches, total, err := s.ledger.ListBatches(ctx, filter.ToMap(), pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	pagination.SetTotal(int64(total))
	return pkgutils.NewPagedResult(batches, pagination), nil
}

// RunningBatches возвращает идентификаторы выполняющихся партий
func (s *PipelineService) RunningBatches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown отменяет выполняющиеся партии и ждет их завершения
func (s *PipelineService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, rb := range s.running {
		rb.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
