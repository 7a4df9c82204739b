package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// userIdentity реализуется claims, из которых можно извлечь пользователя
type userIdentity interface {
	GetSubject() (string, error)
}

// AuthMiddleware промежуточное ПО для проверки JWT токенов
func AuthMiddleware(ap interfaces.AuthPort, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			// Проверяем формат токена
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			claims, err := ap.ValidateToken(r.Context(), parts[1])
			if err != nil {
				logger.WarnWithContext(r.Context(), "Invalid JWT token",
					interfaces.LogField{Key: "error", Value: err.Error()})
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), interfaces.ClaimsKey, claims)
			if id, ok := claims.(userIdentity); ok {
				if sub, err := id.GetSubject(); err == nil && sub != "" {
					ctx = context.WithValue(ctx, interfaces.UserIDKey, sub)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole проверяет наличие определенной роли
func RequireRole(ap interfaces.AuthPort, role string) func(http.Handler) http.Handler {
	return RequireAnyRole(ap, role)
}

// RequireAnyRole проверяет наличие хотя бы одной роли из списка
func RequireAnyRole(ap interfaces.AuthPort, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(interfaces.ClaimsKey)
			if claims == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !ap.HasAnyRole(claims, roles...) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
