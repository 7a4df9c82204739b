package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/normalizer"
	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

// ErrExportEmpty нет ни одной карточки для выгрузки
var ErrExportEmpty = errors.New(string(models.FailureExportEmpty))

// Artifact вид документа выгрузки
type Artifact string

const (
	ArtifactUpload    Artifact = "upload"
	ArtifactReference Artifact = "reference"
)

const (
	uploadSheet     = "일괄등록"
	referenceSheet  = "전체정보"
	referenceSuffix = "_참고용"
	minColumnWidth  = 15
	maxColumnWidth  = 50
	headerFont      = "맑은 고딕"
	headerFill      = "E0E0E0"
	tempPattern     = ".export-*.xlsx"
	timestampLayout = "20060102_150405"
	maxNameAttempts = 100
)

// rename переносит временный файл на место документа
var rename = os.Rename

// ExportResult пути к сформированным документам
type ExportResult struct {
	UploadPath    string `json:"upload_path"`
	ReferencePath string `json:"reference_path"`
	Rows          int    `json:"rows"`
}

// Exporter формирует документы массовой загрузки в формате xlsx
type Exporter struct {
	filePrefix string
	now        func() time.Time
	logger     interfaces.LoggerPort
}

// NewExporter создает экспортер документов
func NewExporter(filePrefix string, logger interfaces.LoggerPort) *Exporter {
	if filePrefix == "" {
		filePrefix = "smartstore_upload"
	}
	return &Exporter{
		filePrefix: filePrefix,
		now:        time.Now,
		logger:     logger,
	}
}

// Export записывает документ загрузки и справочный документ в каталог dir.
// Оба документа формируются в памяти и переносятся на место переименованием:
// при любой ошибке в каталоге не остается ни одного файла.
// Пустой список карточек возвращает ErrExportEmpty.
func (e *Exporter) Export(ctx context.Context, listings []models.Listing, dir string) (*ExportResult, error) {
	if len(listings) == 0 {
		observability.ExportDocuments.WithLabelValues("empty").Inc()
		e.logger.ErrorWithContext(ctx, "Нет карточек для выгрузки")
		return nil, ErrExportEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	upload, err := e.Render(listings, ArtifactUpload)
	if err != nil {
		observability.ExportDocuments.WithLabelValues("error").Inc()
		return nil, err
	}
	reference, err := e.Render(listings, ArtifactReference)
	if err != nil {
		observability.ExportDocuments.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		observability.ExportDocuments.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ошибка создания каталога выгрузки: %w", err)
	}

	uploadPath, referencePath, err := reservePaths(dir, fmt.Sprintf("%s_%s", e.filePrefix, e.now().Format(timestampLayout)))
	if err != nil {
		observability.ExportDocuments.WithLabelValues("error").Inc()
		return nil, err
	}
	result := &ExportResult{
		UploadPath:    uploadPath,
		ReferencePath: referencePath,
		Rows:          len(listings),
	}

	if err := writeAll(dir, map[string][]byte{
		result.UploadPath:    upload,
		result.ReferencePath: reference,
	}); err != nil {
		_ = os.Remove(result.UploadPath)
		_ = os.Remove(result.ReferencePath)
		observability.ExportDocuments.WithLabelValues("error").Inc()
		e.logger.ErrorWithContext(ctx, "Ошибка записи документов выгрузки",
			interfaces.LogField{Key: "dir", Value: dir},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return nil, err
	}

	observability.ExportDocuments.WithLabelValues("ok").Inc()
	e.logger.InfoWithContext(ctx, "Документы выгрузки сформированы",
		interfaces.LogField{Key: "upload_path", Value: result.UploadPath},
		interfaces.LogField{Key: "reference_path", Value: result.ReferencePath},
		interfaces.LogField{Key: "rows", Value: result.Rows},
	)

	return result, nil
}

// Render формирует документ в памяти и возвращает содержимое xlsx
func (e *Exporter) Render(listings []models.Listing, artifact Artifact) ([]byte, error) {
	if len(listings) == 0 {
		return nil, ErrExportEmpty
	}

	sheet, columns := uploadSheet, UploadColumns
	if artifact == ArtifactReference {
		sheet, columns = referenceSheet, ReferenceColumns
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}

	widths := make([]int, len(columns))
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.Header
		widths[i] = runewidth.StringWidth(c.Header)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовка: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Family: headerFont, Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания стиля: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return nil, fmt.Errorf("ошибка применения стиля: %w", err)
	}

	for r, l := range listings {
		row := make([]interface{}, len(columns))
		for i, c := range columns {
			v := c.Value(l)
			if s, ok := v.(string); ok {
				v = normalizer.Sanitize(s)
				if w := runewidth.StringWidth(s); w > widths[i] {
					widths[i] = w
				}
			}
			row[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("ошибка записи строки %d: %w", r+1, err)
		}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, float64(clampWidth(w+2))); err != nil {
			return nil, fmt.Errorf("ошибка установки ширины колонки: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName возвращает имя файла документа для выдачи через HTTP
func (e *Exporter) FileName(artifact Artifact) string {
	base := fmt.Sprintf("%s_%s", e.filePrefix, e.now().Format(timestampLayout))
	if artifact == ArtifactReference {
		base += referenceSuffix
	}
	return base + ".xlsx"
}

func clampWidth(w int) int {
	if w < minColumnWidth {
		return minColumnWidth
	}
	if w > maxColumnWidth {
		return maxColumnWidth
	}
	return w
}

// writeAll записывает файлы через временные копии в том же каталоге.
// Если хотя бы одна запись или переименование не удались, удаляются все файлы.
// reservePaths занимает в каталоге пару имен документов, создавая пустые файлы.
// Если имена с этой меткой времени уже заняты, к ним добавляется номер: _2, _3 и так далее.
func reservePaths(dir, base string) (upload, reference string, err error) {
	for n := 1; n <= maxNameAttempts; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		upload = filepath.Join(dir, name+".xlsx")
		reference = filepath.Join(dir, name+referenceSuffix+".xlsx")

		ok, err := createExclusive(upload)
		if err != nil {
			return "", "", err
		}
		if !ok {
			continue
		}
		ok, err = createExclusive(reference)
		if err != nil || !ok {
			_ = os.Remove(upload)
			if err != nil {
				return "", "", err
			}
			continue
		}
		return upload, reference, nil
	}
	return "", "", fmt.Errorf("нет свободного имени документа выгрузки для %s", base)
}

// createExclusive создает пустой файл; false означает, что файл уже существует
func createExclusive(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка создания %s: %w", filepath.Base(path), err)
	}
	return true, f.Close()
}

func writeAll(dir string, files map[string][]byte) (err error) {
	temps := make(map[string]string, len(files))
	var renamed []string

	defer func() {
		if err == nil {
			return
		}
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
		for _, p := range renamed {
			_ = os.Remove(p)
		}
	}()

	for target, data := range files {
		tmp, werr := writeTemp(dir, data)
		if werr != nil {
			return werr
		}
		temps[target] = tmp
	}

	for target, tmp := range temps {
		if rerr := rename(tmp, target); rerr != nil {
			return fmt.Errorf("ошибка переименования %s: %w", filepath.Base(target), rerr)
		}
		delete(temps, target)
		renamed = append(renamed, target)
	}

	return nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("ошибка записи временного файла: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("ошибка записи временного файла: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("ошибка закрытия временного файла: %w", err)
	}
	return name, nil
}

// IsTempFile сообщает, является ли файл незавершенной выгрузкой
func IsTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".export-")
}
