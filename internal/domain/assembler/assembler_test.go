package assembler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/domain/category"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/normalizer"
	"github.com/athebyme/listing-pipeline/internal/domain/pricing"
)

// panickingTitles нормализатор, который всегда паникует
type panickingTitles struct{}

func (panickingTitles) Normalize(context.Context, string) normalizer.NormalizedTitle {
	panic("translator exploded")
}

func newTestAssembler(t *testing.T, titles TitleNormalizer, workers int) *Assembler {
	t.Helper()

	log := logger.NewNopLogger()
	prices, err := pricing.NewCalculator(pricing.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}
	classifier, err := category.NewClassifier(category.DefaultTable())
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if titles == nil {
		titles = normalizer.NewTitleNormalizer(nil, normalizer.DefaultTitleMaxLength, log)
	}

	return NewAssembler(
		titles,
		normalizer.NewDescriptionBuilder(nil, log),
		prices,
		classifier,
		Config{SellerCodePrefix: "AMZ", Workers: workers, Defaults: models.DefaultListingDefaults()},
		log,
	)
}

func validProduct() models.RawProduct {
	rating := 4.5
	reviews := 1200
	return models.RawProduct{
		Title:        "CeraVe Hydrating Serum™ 😀",
		Price:        "45.99",
		CategoryHint: "skincare",
		Rating:       &rating,
		ReviewCount:  &reviews,
		ImageURL:     "https://images.example.com/serum.jpg",
		AdditionalImages: []string{
			"https://images.example.com/serum-2.jpg",
			"not a url",
			"https://images.example.com/serum.jpg",
		},
		Description: "A lightweight hydrating serum with hyaluronic acid for all skin types.",
	}
}

func TestAssembler_Assemble(t *testing.T) {
	a := newTestAssembler(t, nil, 1)

	l, err := a.Assemble(context.Background(), validProduct(), 1)
	if err != nil {
		t.Fatalf("Assemble returned unexpected error: %v", err)
	}

	if l.SellerCode != "AMZ_0001" {
		t.Errorf("SellerCode = %s, want AMZ_0001", l.SellerCode)
	}
	if l.Title != "CeraVe Hydrating Serum" {
		t.Errorf("Title = %q, want sanitized title", l.Title)
	}
	if l.Brand != "CeraVe" || l.Manufacturer != "CeraVe" {
		t.Errorf("Brand/Manufacturer = %q/%q, want CeraVe", l.Brand, l.Manufacturer)
	}
	if l.SalePrice != 99200 {
		t.Errorf("SalePrice = %d, want 99200", l.SalePrice)
	}
	if l.CategoryCode != "50000169" || l.LeafCategoryCode != "50000169" {
		t.Errorf("Category = %s/%s, want 50000169", l.CategoryCode, l.LeafCategoryCode)
	}
	if l.CategoryPath != "뷰티 > 스킨케어 > 에센스/세럼" {
		t.Errorf("CategoryPath = %q", l.CategoryPath)
	}
	if l.Defaults.StockQuantity != 999 || l.Defaults.Status != "신상품" {
		t.Errorf("Defaults = %+v, want schema defaults", l.Defaults)
	}
	if l.ModelName != "CeraVe Hydrating Serum_AMZ_0001" {
		t.Errorf("ModelName = %q", l.ModelName)
	}
	if l.Provenance.OriginalPrice != "45.99" || l.Provenance.BrandBeforeTranslation != "CeraVe" {
		t.Errorf("Provenance = %+v", l.Provenance)
	}
	if len(l.Images()) != 2 {
		t.Errorf("Images = %v, want primary and one valid additional image", l.Images())
	}
}

func TestAssembler_MissingRequiredFields(t *testing.T) {
	a := newTestAssembler(t, nil, 1)

	tests := []struct {
		name string
		raw  models.RawProduct
	}{
		{"empty title", models.RawProduct{Title: "  ", Price: "10"}},
		{"missing price", models.RawProduct{Title: "Serum"}},
		{"zero price", models.RawProduct{Title: "Serum", Price: "0"}},
		{"negative price", models.RawProduct{Title: "Serum", Price: "-3.50"}},
		{"non numeric price", models.RawProduct{Title: "Serum", Price: "call us"}},
		{"title of only symbols", models.RawProduct{Title: "😀 ™", Price: "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assemble(context.Background(), tt.raw, 7)
			var rejErr *models.RejectionError
			if !errors.As(err, &rejErr) {
				t.Fatalf("error = %v, want *models.RejectionError", err)
			}
			if rejErr.Reason != models.ReasonMissingRequiredField {
				t.Errorf("Reason = %s, want MISSING_REQUIRED_FIELD", rejErr.Reason)
			}
			if rejErr.Index != 7 {
				t.Errorf("Index = %d, want 7", rejErr.Index)
			}
		})
	}
}

func TestAssembler_PanicBecomesTransformError(t *testing.T) {
	a := newTestAssembler(t, panickingTitles{}, 1)

	_, err := a.Assemble(context.Background(), validProduct(), 3)
	var rejErr *models.RejectionError
	if !errors.As(err, &rejErr) {
		t.Fatalf("error = %v, want *models.RejectionError", err)
	}
	if rejErr.Reason != models.ReasonTransformError {
		t.Errorf("Reason = %s, want TRANSFORM_ERROR", rejErr.Reason)
	}
	if !strings.Contains(err.Error(), "translator exploded") {
		t.Errorf("error = %v, want panic cause", err)
	}
}

func TestAssembler_AssembleBatch(t *testing.T) {
	a := newTestAssembler(t, nil, 4)

	raws := []models.RawProduct{
		validProduct(),
		{Title: "", Price: "10"},
		{Title: "Retinol Night Cream", Price: "$22.50"},
		{Title: "Vitamin Gummies", Price: "abc", CategoryHint: "supplement"},
		{Title: "Protein Powder Vanilla", Price: "39.99", CategoryHint: "protein"},
	}

	listings, rejections := a.AssembleBatch(context.Background(), raws)

	if len(listings)+len(rejections) != len(raws) {
		t.Fatalf("accounted %d+%d records, want %d", len(listings), len(rejections), len(raws))
	}
	if len(listings) != 3 {
		t.Fatalf("listings = %d, want 3", len(listings))
	}

	wantCodes := []string{"AMZ_0001", "AMZ_0003", "AMZ_0005"}
	for i, l := range listings {
		if l.SellerCode != wantCodes[i] {
			t.Errorf("listing %d SellerCode = %s, want %s", i, l.SellerCode, wantCodes[i])
		}
	}
	if listings[1].CategoryCode != "50000167" {
		t.Errorf("retinol cream category = %s, want 50000167", listings[1].CategoryCode)
	}
	if listings[2].CategoryCode != "50006674" {
		t.Errorf("protein category = %s, want 50006674", listings[2].CategoryCode)
	}

	if rejections[0].Index != 2 || rejections[1].Index != 4 {
		t.Errorf("rejection indices = %d,%d, want 2,4", rejections[0].Index, rejections[1].Index)
	}
	for _, r := range rejections {
		if r.Reason != models.ReasonMissingRequiredField {
			t.Errorf("rejection %d reason = %s, want MISSING_REQUIRED_FIELD", r.Index, r.Reason)
		}
	}
}

func TestAssembler_SellerCodesStableAcrossRuns(t *testing.T) {
	a := newTestAssembler(t, nil, 2)
	raws := []models.RawProduct{validProduct(), validProduct(), validProduct()}

	first, _ := a.AssembleBatch(context.Background(), raws)
	second, _ := a.AssembleBatch(context.Background(), raws)

	for i := range first {
		if first[i].SellerCode != second[i].SellerCode {
			t.Errorf("seller code changed between runs: %s vs %s", first[i].SellerCode, second[i].SellerCode)
		}
	}
}

func TestAssembler_BatchPanicIsolated(t *testing.T) {
	a := newTestAssembler(t, panickingTitles{}, 2)

	listings, rejections := a.AssembleBatch(context.Background(), []models.RawProduct{validProduct(), validProduct()})
	if len(listings) != 0 || len(rejections) != 2 {
		t.Fatalf("got %d listings and %d rejections, want 0 and 2", len(listings), len(rejections))
	}
	if rejections[0].Reason != models.ReasonTransformError {
		t.Errorf("Reason = %s, want TRANSFORM_ERROR", rejections[0].Reason)
	}
}
