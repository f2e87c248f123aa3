package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azamalidev/Kick-Expert-sub000/internal/middleware"
	"github.com/azamalidev/Kick-Expert-sub000/internal/websocket"
	"github.com/azamalidev/Kick-Expert-sub000/pkg/auth"
)

// WSHandler апгрейдит подключения к хабу объявлений.
// По WebSocket идут только объявления (результаты готовы, соревнование
// завершено); расписание слотов и отправка ответов остаются на HTTP.
type WSHandler struct {
	hub        *websocket.Hub
	jwtService *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(hub *websocket.Hub, jwtService *auth.JWTService) *WSHandler {
	return &WSHandler{hub: hub, jwtService: jwtService}
}

// Subscribe подключает участника к комнате соревнования.
// Браузерный WebSocket не умеет ставить заголовок Authorization,
// поэтому токен принимается query-параметром и проверяется здесь,
// а не в middleware.
func (h *WSHandler) Subscribe(c *gin.Context) {
	competitionID := c.MustGet(middleware.ContextCompetitionID).(uint)

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token parameter"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		log.Printf("[WSHandler] Невалидный или истёкший токен: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := websocket.ServeClient(h.hub, c.Writer, c.Request, claims.UserID, competitionID); err != nil {
		log.Printf("[WSHandler] Не удалось апгрейдить соединение пользователя %d: %v", claims.UserID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "WebSocket upgrade failed"})
	}
}
