package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeTokenServer(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var forms []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		forms = append(forms, r.PostForm.Encode())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &forms
}

func TestClientCredentialsClient_Token(t *testing.T) {
	srv, forms := fakeTokenServer(t, http.StatusOK, `{"access_token":"tok-1","token_type":"Bearer","expires_in":10800}`)
	c := NewClientCredentialsClient(ClientCredentialsConfig{
		TokenURL:     srv.URL,
		ClientID:     "app-id",
		ClientSecret: "signed-secret",
		Type:         "SELF",
	}, srv.Client())

	token, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %q, want tok-1", token.AccessToken)
	}

	if len(*forms) != 1 {
		t.Fatalf("requests = %d, want 1", len(*forms))
	}
	form := (*forms)[0]
	for _, want := range []string{"client_id=app-id", "client_secret=signed-secret", "grant_type=client_credentials", "type=SELF"} {
		if !strings.Contains(form, want) {
			t.Errorf("form %q does not contain %q", form, want)
		}
	}

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("second Token failed: %v", err)
	}
	if len(*forms) != 2 {
		t.Errorf("requests = %d, want a new exchange per call", len(*forms))
	}
}

func TestClientCredentialsClient_Rejected(t *testing.T) {
	srv, _ := fakeTokenServer(t, http.StatusUnauthorized, `{"error":"invalid_client"}`)
	c := NewClientCredentialsClient(ClientCredentialsConfig{TokenURL: srv.URL, ClientID: "app-id", ClientSecret: "bad"}, srv.Client())

	_, err := c.Token(context.Background())
	if err == nil {
		t.Fatal("Token succeeded on 401, want error")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("error = %v, want HTTP status in message", err)
	}
}
