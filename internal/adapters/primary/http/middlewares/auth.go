package middlewares

import (
	"crypto/subtle"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
)

const (
	// IdentityKey ключ identity в gin-контексте
	IdentityKey = "identity"

	identityHeader = "X-Auth-Identity"
	secretHeader   = "X-Auth-Secret"
)

// Identity возвращает identity текущего запроса, проставленный Auth middleware
func Identity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}

// Auth достаёт identity пользователя из заголовка, проставленного
// вышестоящим auth-прокси. Если настроен sharedSecret, запрос дополнительно
// должен нести его в заголовке - защита от обращений мимо прокси
func Auth(sharedSecret string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sharedSecret != "" {
			provided := c.GetHeader(secretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(sharedSecret)) != 1 {
				log.Warn("request rejected: bad auth secret",
					"path", c.Request.URL.Path,
					"client_ip", c.ClientIP(),
				)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		identity := c.GetHeader(identityHeader)
		if identity == "" {
			log.Warn("request rejected: missing identity header",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}
