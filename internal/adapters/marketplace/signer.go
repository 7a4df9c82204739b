package marketplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

// заголовки подписанного запроса
const (
	HeaderTimestamp   = "X-Timestamp"
	HeaderAPIKey      = "X-API-KEY"
	HeaderCustomer    = "X-Customer"
	HeaderSignature   = "X-Signature"
	HeaderIdempotency = "X-Idempotency-Key"
)

// Signer подписывает запросы к API маркетплейса
type Signer struct {
	clientID   string
	customerID string
	secret     []byte
	now        func() time.Time
}

// NewSigner создает подписчика запросов
func NewSigner(clientID, clientSecret, customerID string) *Signer {
	return &Signer{
		clientID:   clientID,
		customerID: customerID,
		secret:     []byte(clientSecret),
		now:        time.Now,
	}
}

// Sign возвращает base64(HMAC-SHA256(secret, "timestamp.method.path[.body]"))
func (s *Signer) Sign(timestamp, method, path, body string) string {
	message := timestamp + "." + method + "." + path
	if body != "" {
		message += "." + body
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Apply проставляет заголовки подписи и токен доступа.
// body подписывается только для JSON-запросов; multipart подписывается без тела.
func (s *Signer) Apply(req *http.Request, token string, body []byte) {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)

	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderAPIKey, s.clientID)
	if s.customerID != "" {
		req.Header.Set(HeaderCustomer, s.customerID)
	}
	req.Header.Set(HeaderSignature, s.Sign(ts, req.Method, req.URL.Path, string(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
