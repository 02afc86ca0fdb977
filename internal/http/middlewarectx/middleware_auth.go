// Package middlewarectx содержит HTTP middleware API биллинга: проверку JWT сессии
// и ограничение частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и в случае успеха добавляет
// в контекст идентификатор и email пользователя. При ошибке возвращает 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID: ключ идентификатора пользователя в контексте
	UserID Key = "user_id"
	// Email: ключ email пользователя в контексте
	Email Key = "email"
)

// TokenParser проверяет подпись и срок действия токена сессии.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.SessionClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), UserID, claims.UserID())
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext возвращает идентификатор и email пользователя, положенные JWTMiddleware.
func UserFromContext(ctx context.Context) (userID, email string, ok bool) {
	userID, ok = ctx.Value(UserID).(string)
	if !ok || userID == "" {
		return "", "", false
	}
	email, _ = ctx.Value(Email).(string)
	return userID, email, true
}
