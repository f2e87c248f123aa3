package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestCompetitionID_ValidParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var got uint
	router.GET("/competitions/:id", CompetitionID(), func(c *gin.Context) {
		got = c.MustGet(ContextCompetitionID).(uint)
		c.Status(http.StatusOK)
	})

	w := performRequest(router, "/competitions/42")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(42), got)
}

func TestCompetitionID_RejectsInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlerCalled := false
	router.GET("/competitions/:id", CompetitionID(), func(c *gin.Context) {
		handlerCalled = true
	})

	for _, id := range []string{"abc", "-1", "0", "1.5"} {
		w := performRequest(router, "/competitions/"+id)
		assert.Equal(t, http.StatusBadRequest, w.Code, "id=%q", id)
	}
	assert.False(t, handlerCalled, "Невалидный id обрывается до обработчика")
}
