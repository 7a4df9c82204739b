package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

// Format формат входного файла сборщика
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported input format, use JSON or CSV")
	ErrNoProducts        = errors.New("input contains no products")
	ErrMissingTitle      = errors.New("csv header has no title column")
)

// FormatFromPath определяет формат по расширению файла
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// FormatFromContentType определяет формат по заголовку Content-Type
func FormatFromContentType(contentType string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "", "application/json":
		return FormatJSON, nil
	case "text/csv", "application/csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ct)
	}
}

// LoadFile читает записи сборщика из файла
func LoadFile(path string) ([]models.RawProduct, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode читает записи сборщика из потока
func Decode(r io.Reader, format Format) ([]models.RawProduct, error) {
	var (
		products []models.RawProduct
		err      error
	)

	br := bufio.NewReader(r)
	skipBOM(br)

	switch format {
	case FormatJSON:
		products, err = decodeJSON(br)
	case FormatCSV:
		products, err = decodeCSV(br)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

func skipBOM(br *bufio.Reader) {
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
}

// decodeJSON принимает массив записей или объект {"products": [...]}
func decodeJSON(r io.Reader) ([]models.RawProduct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Products []models.RawProduct `json:"products"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode json input: %w", err)
		}
		return wrapped.Products, nil
	}

	var products []models.RawProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode json input: %w", err)
	}
	return products, nil
}

func decodeCSV(r io.Reader) ([]models.RawProduct, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoProducts
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, ErrMissingTitle
	}

	var products []models.RawProduct
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		p := models.RawProduct{
			Title:            get("title"),
			Price:            models.PriceText(firstNonEmpty(get("price_usd"), get("price"))),
			CategoryHint:     get("category"),
			Brand:            get("brand"),
			ImageURL:         get("image_url"),
			AdditionalImages: splitList(get("additional_images")),
			Description:      get("description"),
			Features:         splitList(get("features")),
		}
		if v, err := strconv.ParseFloat(get("rating"), 64); err == nil {
			p.Rating = &v
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(get("review_count"), ",", ""), 64); err == nil {
			n := int(v)
			p.ReviewCount = &n
		}
		p.CollectedAt, _ = models.ParseTimestamp(get("crawl_timestamp"))

		products = append(products, p)
	}

	return products, nil
}

// splitList разбирает ячейку со списком: JSON-массив, список в квадратных скобках или значения через "|"
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}

	if strings.HasPrefix(cell, "[") && strings.HasSuffix(cell, "]") {
		var items []string
		if err := json.Unmarshal([]byte(cell), &items); err == nil {
			return compact(items)
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(cell, "["), "]")
		parts := strings.Split(inner, "', '")
		for i, part := range parts {
			parts[i] = strings.Trim(strings.TrimSpace(part), `'"`)
		}
		return compact(parts)
	}

	return compact(strings.Split(cell, "|"))
}

func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
