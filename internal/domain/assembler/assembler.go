package assembler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/normalizer"
	"github.com/athebyme/listing-pipeline/internal/domain/pricing"
	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

const (
	// DefaultSellerCodePrefix префикс кода продавца
	DefaultSellerCodePrefix = "AMZ"
	modelNameTitleLength    = 30
)

var (
	ErrMissingTitle    = errors.New("title is empty")
	ErrMissingPrice    = errors.New("price is missing or not positive")
	ErrPriceConversion = errors.New("converted price is zero")
	ErrUnknownCategory = errors.New("classified category is not in taxonomy")
)

// PriceCalculator пересчитывает цену источника в целевую валюту
type PriceCalculator interface {
	ToTarget(sourcePrice string) int64
}

// CategoryClassifier определяет категорию и ее место в таксономии
type CategoryClassifier interface {
	Classify(title, hint string) models.CategoryCode
	Node(code models.CategoryCode) (models.CategoryNode, bool)
}

// TitleNormalizer нормализует название товара
type TitleNormalizer interface {
	Normalize(ctx context.Context, rawTitle string) normalizer.NormalizedTitle
}

// DescriptionBuilder формирует описание карточки
type DescriptionBuilder interface {
	Build(ctx context.Context, description string, features []string, title string) string
}

// Config настройки сборщика карточек
type Config struct {
	SellerCodePrefix string
	Workers          int
	Defaults         models.ListingDefaults
}

// Assembler собирает карточки целевого маркетплейса из сырых записей
type Assembler struct {
	titles       TitleNormalizer
	descriptions DescriptionBuilder
	prices       PriceCalculator
	classifier   CategoryClassifier
	cfg          Config
	logger       interfaces.LoggerPort
}

// NewAssembler создает сборщик карточек
func NewAssembler(
	titles TitleNormalizer,
	descriptions DescriptionBuilder,
	prices PriceCalculator,
	classifier CategoryClassifier,
	cfg Config,
	logger interfaces.LoggerPort,
) *Assembler {
	if cfg.SellerCodePrefix == "" {
		cfg.SellerCodePrefix = DefaultSellerCodePrefix
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Assembler{
		titles:       titles,
		descriptions: descriptions,
		prices:       prices,
		classifier:   classifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// SellerCode возвращает код продавца для позиции index (нумерация с 1)
func (a *Assembler) SellerCode(index int) string {
	return fmt.Sprintf("%s_%04d", a.cfg.SellerCodePrefix, index)
}

// Assemble собирает карточку из одной записи. Ошибка всегда имеет тип
// *models.RejectionError: MISSING_REQUIRED_FIELD для невалидной записи,
// TRANSFORM_ERROR для любой непредвиденной ошибки.
func (a *Assembler) Assemble(ctx context.Context, raw models.RawProduct, index int) (listing models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = models.Listing{}
			err = models.NewRejectionError(index, raw.Title, models.ReasonTransformError, fmt.Errorf("panic: %v", r))
		}
	}()

	reject := func(reason models.RejectionReason, cause error) (models.Listing, error) {
		return models.Listing{}, models.NewRejectionError(index, raw.Title, reason, cause)
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return reject(models.ReasonMissingRequiredField, ErrMissingTitle)
	}
	if _, ok := pricing.ParseSourcePrice(raw.Price.String()); !ok {
		return reject(models.ReasonMissingRequiredField, fmt.Errorf("%w: %q", ErrMissingPrice, raw.Price))
	}

	salePrice := a.prices.ToTarget(raw.Price.String())
	if salePrice <= 0 {
		return reject(models.ReasonMissingRequiredField, ErrPriceConversion)
	}

	normalized := a.titles.Normalize(ctx, title)
	display := normalizer.Sanitize(normalized.Display)
	if display == "" {
		return reject(models.ReasonMissingRequiredField, ErrMissingTitle)
	}

	brand := normalizer.Sanitize(normalized.Brand)
	if brand == "" {
		brand = normalizer.Sanitize(raw.Brand)
	}
	manufacturer := brand
	if manufacturer == "" {
		manufacturer = a.cfg.Defaults.DefaultMaker
	}

	code := a.classifier.Classify(display, raw.CategoryHint)
	node, ok := a.classifier.Node(code)
	if !ok {
		return reject(models.ReasonTransformError, fmt.Errorf("%w: %s", ErrUnknownCategory, code))
	}

	sellerCode := a.SellerCode(index)
	images := validImageURLs(append([]string{raw.ImageURL}, raw.AdditionalImages...))

	listing = models.Listing{
		SellerCode:       sellerCode,
		CategoryCode:     code,
		LeafCategoryCode: node.Leaf(),
		CategoryPath:     node.Path,
		Title:            display,
		Brand:            brand,
		Manufacturer:     manufacturer,
		Description:      a.descriptions.Build(ctx, raw.Description, raw.Features, display),
		SalePrice:        salePrice,
		ModelName:        headRunes(display, modelNameTitleLength) + "_" + sellerCode,
		SizeModelName:    fmt.Sprintf("MODEL%04d", index),
		Defaults:         a.cfg.Defaults,
		Provenance: models.Provenance{
			OriginalTitle:          normalized.Original,
			OriginalPrice:          raw.Price.String(),
			Rating:                 raw.Rating,
			ReviewCount:            raw.ReviewCount,
			ImageURL:               raw.ImageURL,
			BrandBeforeTranslation: normalized.Brand,
			CollectedAt:            raw.CollectedAt,
		},
	}
	if len(images) > 0 {
		listing.ImageURL = images[0]
		listing.AdditionalImages = images[1:]
	}

	return listing, nil
}

// AssembleBatch собирает карточки из партии записей. Записи нумеруются с 1,
// порядок карточек совпадает с порядком входа. Невалидные записи попадают
// в список отклонений и не прерывают обработку остальных.
func (a *Assembler) AssembleBatch(ctx context.Context, raws []models.RawProduct) ([]models.Listing, []models.Rejection) {
	type slot struct {
		listing models.Listing
		err     error
	}
	slots := make([]slot, len(raws))

	sem := make(chan struct{}, a.cfg.Workers)
	var wg sync.WaitGroup
	for i := range raws {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			l, err := a.Assemble(ctx, raws[i], i+1)
			slots[i] = slot{listing: l, err: err}
		}(i)
	}
	wg.Wait()

	listings := make([]models.Listing, 0, len(raws))
	var rejections []models.Rejection
	for i, s := range slots {
		if s.err != nil {
			rej := models.AsRejection(i+1, raws[i].Title, s.err)
			rejections = append(rejections, rej)
			observability.ListingsAssembled.WithLabelValues("rejected").Inc()
			observability.ListingRejections.WithLabelValues(string(rej.Reason)).Inc()
			a.logger.WarnWithContext(ctx, "Запись отклонена",
				interfaces.LogField{Key: "index", Value: rej.Index},
				interfaces.LogField{Key: "reason", Value: rej.Reason},
				interfaces.LogField{Key: "detail", Value: rej.Detail},
			)
			continue
		}
		listings = append(listings, s.listing)
		observability.ListingsAssembled.WithLabelValues("ok").Inc()
	}

	a.logger.InfoWithContext(ctx, "Сборка карточек завершена",
		interfaces.LogField{Key: "input", Value: len(raws)},
		interfaces.LogField{Key: "assembled", Value: len(listings)},
		interfaces.LogField{Key: "rejected", Value: len(rejections)},
	)

	return listings, rejections
}

func validImageURLs(candidates []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		u, err := url.Parse(c)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
