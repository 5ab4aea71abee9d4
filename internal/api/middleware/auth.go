package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"predictarb/pkg/crypto"
)

// debugUsername и debugPasswordHash для защиты debug endpoints.
// Загружаются из переменных окружения DEBUG_USERNAME и DEBUG_PASSWORD_HASH, где
// последняя — bcrypt-хеш пароля (см. crypto.HashPassword), а не сам пароль.
// Если не установлены, debug endpoints будут недоступны в production.
var (
	debugUsername     = os.Getenv("DEBUG_USERNAME")
	debugPasswordHash = os.Getenv("DEBUG_PASSWORD_HASH")
)

// DebugAuth - middleware для защиты debug/pprof endpoints
//
// Назначение:
// Защищает debug endpoints (/debug/pprof/*, /debug/runtime) от неавторизованного доступа.
// Использует HTTP Basic Authentication для простоты.
//
// Конфигурация:
// - DEBUG_USERNAME: имя пользователя для доступа к debug endpoints
// - DEBUG_PASSWORD_HASH: bcrypt-хеш пароля (crypto.HashPassword), не сам пароль
// - Если переменные не установлены: при ENV=development или пустом ENV доступ
//   открыт без проверки, иначе доступ запрещен (403)
//
// Безопасность:
// - Имя пользователя сравнивается constant-time, пароль — через bcrypt
// - В production ОБЯЗАТЕЛЬНО установить DEBUG_USERNAME и DEBUG_PASSWORD_HASH
// - Рекомендуется использовать сложные пароли
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Если credentials не настроены, запрещаем доступ в production
		if debugUsername == "" || debugPasswordHash == "" {
			// В development (если явно не настроено) разрешаем доступ
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD_HASH.", http.StatusForbidden)
			return
		}

		// Получаем credentials из запроса
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := crypto.VerifyPassword(pass, debugPasswordHash) == nil

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Auth - middleware аутентификации API endpoints
//
// Текущее поведение:
// Пропускает все запросы к следующему handler без проверок. Токены
// (JWT или session cookie) не извлекаются и не валидируются, 401 не
// возвращается, user_id в context не добавляется, rate limiting нет.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// TODO:
		// 1. Извлечь токен из заголовка Authorization: Bearer <token>
		// 2. Если токена нет - вернуть 401 Unauthorized
		// 3. Валидировать JWT токен:
		//    - Проверить подпись (используя JWT_SECRET из config)
		//    - Проверить срок действия (exp claim)
		// 4. Извлечь claims из токена (user_id, роль)
		// 5. Добавить информацию в context запроса
		// 6. Передать управление следующему handler

		// Временная реализация: пропускать все запросы (для разработки)
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth - опциональная аутентификация
//
// Текущее поведение:
// Пропускает все запросы к следующему handler; предоставленный токен не
// проверяется и в context не добавляется.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// TODO:
		// 1. Попытаться извлечь токен из заголовка
		// 2. Если токен есть - валидировать и добавить в context
		// 3. Если токена нет или невалидный - продолжить без auth
		// 4. Передать управление следующему handler

		next.ServeHTTP(w, r)
	})
}
