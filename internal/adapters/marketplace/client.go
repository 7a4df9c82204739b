package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// пути API маркетплейса
const (
	TokenPath       = "/external/v1/oauth2/token"
	ImageUploadPath = "/external/v1/product-images/upload"
	ProductsPath    = "/external/v2/products"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	maxImageSize          = 10 << 20
	maxErrorBody          = 4 << 10
	imageFieldName        = "image"
	imageFileName         = "product.jpg"
)

var (
	ErrImageDownload    = errors.New("image download failed")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrMissingImageURL  = errors.New("upload response has no imageUrl")
	ErrMissingProductID = errors.New("register response has no originProductId")
)

// PublishError ошибка обращения к API маркетплейса с кодом отказа
type PublishError struct {
	Code   models.FailureCode
	Status int
	Body   string
	Err    error
}

func (e *PublishError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	return b.String()
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// FailureCodeOf возвращает код отказа для ошибки публикации
func FailureCodeOf(err error) models.FailureCode {
	var pubErr *PublishError
	if errors.As(err, &pubErr) {
		return pubErr.Code
	}
	if isTimeout(err) {
		return models.FailureNetworkTimeout
	}
	return models.FailurePublishRejected
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportError классифицирует ошибку сетевого вызова
func transportError(err error) *PublishError {
	if isTimeout(err) {
		return &PublishError{Code: models.FailureNetworkTimeout, Err: err}
	}
	return &PublishError{Code: models.FailurePublishRejected, Err: err}
}

// ClientConfig параметры HTTP-клиента маркетплейса
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	Returns        ReturnPolicy
}

// Client выполняет подписанные запросы к API маркетплейса
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	timeout    time.Duration
	returns    ReturnPolicy
	logger     interfaces.LoggerPort
}

// NewClient создает клиент API маркетплейса.
// httpClient может быть nil, тогда используется http.DefaultClient.
func NewClient(cfg ClientConfig, signer *Signer, httpClient *http.Client, logger interfaces.LoggerPort) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Returns == (ReturnPolicy{}) {
		cfg.Returns = DefaultReturnPolicy()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		signer:     signer,
		timeout:    cfg.RequestTimeout,
		returns:    cfg.Returns,
		logger:     logger,
	}
}

// TokenURL возвращает адрес обмена учетных данных на токен
func (c *Client) TokenURL() string {
	return c.baseURL + TokenPath
}

// UploadImage скачивает изображение по ссылке и загружает его в хранилище маркетплейса.
// Возвращает ссылку на загруженное изображение.
func (c *Client) UploadImage(ctx context.Context, token, imageURL string) (string, error) {
	data, err := c.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, imageFieldName, imageFileName))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", &PublishError{Code: models.FailureMediaFetch, Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &PublishError{Code: models.FailureMediaFetch, Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &PublishError{Code: models.FailureMediaFetch, Err: err}
	}

	var resp struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.do(ctx, "upload_image", http.MethodPost, ImageUploadPath, token, w.FormDataContentType(), buf.Bytes(), nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.ImageURL == "" {
		return "", &PublishError{Code: models.FailureMediaFetch, Err: ErrMissingImageURL}
	}

	return resp.ImageURL, nil
}

// CreateProduct регистрирует товар и возвращает его идентификатор на маркетплейсе
func (c *Client) CreateProduct(ctx context.Context, token string, req ProductRequest, idempotencyKey string) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &PublishError{Code: models.FailureTransform, Err: err}
	}

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[HeaderIdempotency] = idempotencyKey
	}

	var resp struct {
		OriginProductID json.Number `json:"originProductId"`
	}
	if err := c.do(ctx, "create_product", http.MethodPost, ProductsPath, token, "application/json", body, body, headers, &resp); err != nil {
		return "", err
	}
	if resp.OriginProductID == "" {
		return "", &PublishError{Code: models.FailurePublishRejected, Err: ErrMissingProductID}
	}

	return resp.OriginProductID.String(), nil
}

// ProductRequest собирает тело регистрации с реквизитами возврата клиента
func (c *Client) ProductRequest(l models.Listing, images []string) ProductRequest {
	return NewProductRequest(l, images, c.returns)
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &PublishError{Code: models.FailureMediaFetch, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &PublishError{Code: models.FailureMediaFetch, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Code: models.FailureMediaFetch, Status: resp.StatusCode, Err: ErrImageDownload}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, &PublishError{Code: models.FailureMediaFetch, Err: err}
	}
	if len(data) > maxImageSize {
		return nil, &PublishError{Code: models.FailureMediaFetch, Err: ErrImageTooLarge}
	}

	return data, nil
}

// do выполняет подписанный запрос с собственным дедлайном.
// signed задает тело, входящее в подпись; для multipart оно пустое.
func (c *Client) do(
	ctx context.Context,
	endpoint, method, path, token, contentType string,
	body, signed []byte,
	headers map[string]string,
	out interface{},
) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &PublishError{Code: models.FailureTransform, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.signer.Apply(req, token, signed)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.MarketplaceRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return transportError(err)
	}
	defer resp.Body.Close()
	observability.MarketplaceRequestDuration.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code := models.FailurePublishRejected
		if endpoint == "upload_image" {
			code = models.FailureMediaFetch
		}
		return &PublishError{Code: code, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return transportError(err)
		}
		return &PublishError{Code: models.FailurePublishRejected, Status: resp.StatusCode, Err: fmt.Errorf("ошибка декодирования ответа: %w", err)}
	}

	return nil
}
