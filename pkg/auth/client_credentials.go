package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrEmptyAccessToken сервер авторизации вернул ответ без access_token
var ErrEmptyAccessToken = errors.New("authorization server returned empty access token")

// ClientCredentialsConfig конфигурация обмена client_id/client_secret на токен доступа
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Type значение параметра type запроса токена (например, SELF)
	Type string
}

// ClientCredentialsClient получает токены доступа по схеме OAuth2 client credentials.
// Каждый вызов Token выполняет новый запрос: токен не кэшируется между партиями.
type ClientCredentialsClient struct {
	config     *clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentialsClient создает клиент авторизации.
// httpClient может быть nil, тогда используется http.DefaultClient.
func NewClientCredentialsClient(cfg ClientCredentialsConfig, httpClient *http.Client) *ClientCredentialsClient {
	params := url.Values{}
	if cfg.Type != "" {
		params.Set("type", cfg.Type)
	}

	return &ClientCredentialsClient{
		config: &clientcredentials.Config{
			ClientID:       cfg.ClientID,
			ClientSecret:   cfg.ClientSecret,
			TokenURL:       cfg.TokenURL,
			Scopes:         cfg.Scopes,
			EndpointParams: params,
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Token запрашивает новый токен доступа
func (c *ClientCredentialsClient) Token(ctx context.Context) (*oauth2.Token, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	token, err := c.config.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, fmt.Errorf("ошибка получения токена (HTTP %d): %w", retrieveErr.Response.StatusCode, err)
		}
		return nil, fmt.Errorf("ошибка получения токена: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}

	return token, nil
}
