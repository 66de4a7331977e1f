package httpapi

import (
	"net/http"

	"bot-service/internal/transport/bot"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	handler *bot.Handler
	log     *zap.Logger
}

func NewWebhookHandler(handler *bot.Handler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		handler: handler,
		log:     log,
	}
}

// HandleUpdate принимает конверт входящего события и синхронно отдаёт ответ.
// Ответ в теле HTTP-ответа: шлюз считает событие обработанным только после
// получения Reply, так что «состояние изменено, ответ не отправлен» сужено
// до падения между коммитом и записью ответа.
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var upd bot.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.log.Warn("Невалидный конверт события", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update envelope"})
		return
	}

	reply := h.handler.HandleUpdate(c.Request.Context(), upd)
	c.JSON(http.StatusOK, reply)
}
