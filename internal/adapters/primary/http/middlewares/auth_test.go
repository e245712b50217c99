package middlewares

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authTestRouter(sharedSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.GET("/protected", Auth(sharedSecret, log), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"identity": Identity(c)})
	})
	return router
}

func TestAuth(t *testing.T) {
	t.Run("passes identity from the header", func(t *testing.T) {
		router := authTestRouter("")

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Auth-Identity", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"identity":"user-1"}`, rec.Body.String())
	})

	t.Run("rejects requests without identity", func(t *testing.T) {
		router := authTestRouter("")

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects requests with a wrong shared secret", func(t *testing.T) {
		router := authTestRouter("proxy-secret")

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Auth-Identity", "user-1")
		req.Header.Set("X-Auth-Secret", "wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts requests with the right shared secret", func(t *testing.T) {
		router := authTestRouter("proxy-secret")

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Auth-Identity", "user-1")
		req.Header.Set("X-Auth-Secret", "proxy-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
