package marketplace

import (
	"context"
	"sync"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenSource выдает токен доступа на одну партию
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// API операции маркетплейса, используемые публикатором
type API interface {
	UploadImage(ctx context.Context, token, imageURL string) (string, error)
	CreateProduct(ctx context.Context, token string, req ProductRequest, idempotencyKey string) (string, error)
	ProductRequest(l models.Listing, images []string) ProductRequest
}

// Batch партия карточек для публикации
type Batch struct {
	ID       string
	Listings []models.Listing
	// OnProgress получает копию результата после каждой смены состояния и каждой карточки
	OnProgress func(snapshot *models.BatchResult)
}

// Publisher последовательно публикует карточки на маркетплейсе
type Publisher struct {
	tokens TokenSource
	api    API
	pacer  Pacer
	clock  Clock
	logger interfaces.LoggerPort
}

// NewPublisher создает публикатор партий
func NewPublisher(tokens TokenSource, api API, pacer Pacer, clock Clock, logger interfaces.LoggerPort) *Publisher {
	if clock == nil {
		clock = RealClock()
	}
	if pacer == nil {
		pacer = NewFixedIntervalPacer(DefaultPacingInterval, clock)
	}
	return &Publisher{
		tokens: tokens,
		api:    api,
		pacer:  pacer,
		clock:  clock,
		logger: logger,
	}
}

// session токен доступа, живущий не дольше одной партии
type session struct {
	mu    sync.Mutex
	token string
}

func (s *session) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *session) clear() {
	s.set("")
}

// PublishBatch публикует карточки новой партией
func (p *Publisher) PublishBatch(ctx context.Context, listings []models.Listing) *models.BatchResult {
	return p.Run(ctx, Batch{ID: uuid.NewString(), Listings: listings})
}

// Run выполняет партию: INIT -> AUTHENTICATED -> PUBLISHING -> COMPLETED | AUTH_FAILED.
// Ошибка авторизации прерывает партию до обработки первой карточки.
// Остальные ошибки фиксируются в результате карточки, партия продолжается.
// Отмена контекста проверяется между карточками: необработанные карточки
// попадают в Excluded с пометкой CANCELLED.
func (p *Publisher) Run(ctx context.Context, batch Batch) *models.BatchResult {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	ctx = interfaces.WithBatchID(ctx, batch.ID)

	result := models.NewBatchResult(batch.ID, len(batch.Listings), p.clock.Now())
	notify := func() {
		if batch.OnProgress != nil {
			batch.OnProgress(result.Clone())
		}
	}

	observability.ActiveBatches.Inc()
	defer observability.ActiveBatches.Dec()

	sess := &session{}
	defer sess.clear()

	notify()

	if err := ctx.Err(); err != nil {
		p.excludeFrom(result, batch.Listings, 0)
		return p.finish(ctx, result, models.BatchStateCompleted, notify)
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		result.FailureCode = models.FailureAuth
		result.Error = err.Error()
		p.logger.ErrorWithContext(ctx, "Ошибка авторизации на маркетплейсе, партия прервана",
			interfaces.LogField{Key: "error", Value: err.Error()},
			interfaces.LogField{Key: "requested", Value: len(batch.Listings)},
		)
		return p.finish(ctx, result, models.BatchStateAuthFailed, notify)
	}
	sess.set(token.AccessToken)
	result.State = models.BatchStateAuthenticated
	notify()

	p.logger.InfoWithContext(ctx, "Начата публикация партии",
		interfaces.LogField{Key: "requested", Value: len(batch.Listings)},
	)
	result.State = models.BatchStatePublishing
	notify()

	// вызовы внутри карточки не прерываются отменой партии, только своим дедлайном
	itemCtx := context.WithoutCancel(ctx)

	for i, l := range batch.Listings {
		if i > 0 {
			if err := p.pacer.Wait(ctx); err != nil {
				p.excludeFrom(result, batch.Listings, i)
				break
			}
		}
		if ctx.Err() != nil {
			p.excludeFrom(result, batch.Listings, i)
			break
		}

		outcome := p.publishOne(itemCtx, sess.get(), i+1, l)
		result.Record(outcome)
		notify()
	}

	return p.finish(ctx, result, models.BatchStateCompleted, notify)
}

func (p *Publisher) finish(ctx context.Context, result *models.BatchResult, state models.BatchState, notify func()) *models.BatchResult {
	result.State = state
	result.FinishedAt = p.clock.Now()
	observability.Batches.WithLabelValues(string(state)).Inc()

	p.logger.InfoWithContext(ctx, "Публикация партии завершена",
		interfaces.LogField{Key: "state", Value: state},
		interfaces.LogField{Key: "total", Value: result.Total},
		interfaces.LogField{Key: "success", Value: result.Succeeded},
		interfaces.LogField{Key: "failed", Value: result.Failed},
		interfaces.LogField{Key: "excluded", Value: len(result.Excluded)},
	)

	notify()
	return result
}

func (p *Publisher) excludeFrom(result *models.BatchResult, listings []models.Listing, from int) {
	for i := from; i < len(listings); i++ {
		result.Exclude(i+1, listings[i], models.ExcludedCancelled)
	}
	if from < len(listings) {
		p.logger.WithBatch(result.ID).Warn("Публикация партии отменена",
			interfaces.LogField{Key: "excluded", Value: len(listings) - from},
		)
	}
}

// publishOne загружает изображения и регистрирует одну карточку
func (p *Publisher) publishOne(ctx context.Context, token string, index int, l models.Listing) (outcome models.PublishOutcome) {
	outcome = models.PublishOutcome{
		Index:      index,
		SellerCode: l.SellerCode,
		Title:      l.Title,
		Price:      l.SalePrice,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Succeeded = false
			outcome.FailureCode = models.FailureTransform
			outcome.FailureReason = "panic during publish"
			p.logger.ErrorWithContext(ctx, "Паника при публикации карточки",
				interfaces.LogField{Key: "seller_code", Value: l.SellerCode},
				interfaces.LogField{Key: "panic", Value: r},
			)
		}
		observability.PublishTotal.WithLabelValues(publishStatus(outcome)).Inc()
	}()

	images := l.Images()
	outcome.ImagesTotal = len(images)
	uploaded := make([]string, 0, len(images))
	for _, src := range images {
		ref, err := p.api.UploadImage(ctx, token, src)
		if err != nil {
			observability.MediaUploads.WithLabelValues("failed").Inc()
			p.logger.WarnWithContext(ctx, "Изображение не загружено, карточка будет опубликована без него",
				interfaces.LogField{Key: "seller_code", Value: l.SellerCode},
				interfaces.LogField{Key: "image_url", Value: src},
				interfaces.LogField{Key: "code", Value: models.FailureMediaFetch},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}
		observability.MediaUploads.WithLabelValues("ok").Inc()
		uploaded = append(uploaded, ref)
	}
	outcome.ImagesUploaded = len(uploaded)

	remoteID, err := p.api.CreateProduct(ctx, token, p.api.ProductRequest(l, uploaded), IdempotencyKey(l))
	if err != nil {
		outcome.FailureCode = FailureCodeOf(err)
		outcome.FailureReason = err.Error()
		p.logger.ErrorWithContext(ctx, "Ошибка регистрации товара",
			interfaces.LogField{Key: "seller_code", Value: l.SellerCode},
			interfaces.LogField{Key: "code", Value: outcome.FailureCode},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return outcome
	}

	outcome.Succeeded = true
	outcome.RemoteID = remoteID
	p.logger.InfoWithContext(ctx, "Товар зарегистрирован",
		interfaces.LogField{Key: "seller_code", Value: l.SellerCode},
		interfaces.LogField{Key: "product_id", Value: remoteID},
		interfaces.LogField{Key: "images", Value: outcome.ImagesUploaded},
	)
	return outcome
}

func publishStatus(o models.PublishOutcome) string {
	if o.Succeeded {
		return "ok"
	}
	return string(o.FailureCode)
}

// IsAuthFailure сообщает, что партия прервана из-за авторизации
func IsAuthFailure(r *models.BatchResult) bool {
	return r != nil && r.State == models.BatchStateAuthFailed
}
