package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Ключи контекста Gin, под которыми middleware кладут разобранные
// значения. Обработчики читают их через MustGet по этим же ключам.
const (
	ContextCompetitionID = "competitionID"
	ContextUserID        = "userID"
)

// UintParam извлекает числовой параметр URL и кладёт его в контекст Gin
// под заданным ключом. Невалидное или нулевое значение обрывает запрос
// с 400 до входа в обработчик: идентификаторы начинаются с 1.
func UintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || value == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, uint(value))
		c.Next()
	}
}

// CompetitionID разбирает :id соревнования. Все вложенные маршруты
// /competitions/:id/* читают его из контекста как uint.
func CompetitionID() gin.HandlerFunc {
	return UintParam("id", ContextCompetitionID)
}
