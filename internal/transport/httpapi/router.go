package httpapi

import (
	"bot-service/internal/transport/bot"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router поднимает webhook-границу бота. Сам мессенджер (Telegram и т.п.)
// в сервис не заходит: внешний шлюз переводит апдейты в конверт Update
// и доставляет ответ Reply обратно на провод.
func Router(handler *bot.Handler, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	h := NewWebhookHandler(handler, log)
	r.POST("/bot/update", h.HandleUpdate)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}
