package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/remiges-tech/sift/wscutils"
)

func TestIdentityMiddleware(t *testing.T) {
	r := gin.New()
	batches := r.Group("/batches", IdentityMiddleware())
	batches.GET("/whoami", func(c *gin.Context) {
		user, err := wscutils.GetRequestUser(c)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, user)
	})

	t.Run("exposes the owner from the header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/batches/whoami", nil)
		req.Header.Set("X-Owner", "hr@example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hr@example.com", w.Body.String())
	})

	t.Run("rejects requests without an owner", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t,
			`{"status":"error","data":null,"messages":[{"msgid":401,"errcode":"request_user_invalid"}]}`,
			w.Body.String())
	})
}
