package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"bot-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// OrderProducer публикует событие order.created для бэк-офиса.
// Бот на него не подписан: доставка best-effort, коммит заказа от брокера не зависит.
type OrderProducer struct {
	writer *kafka.Writer
}

func NewOrderProducer(brokers []string, topic string) *OrderProducer {
	return &OrderProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *OrderProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		// ключ = беседа: события одной беседы попадают в одну партицию по порядку
		Key:   []byte(strconv.FormatInt(e.ConversationID, 10)),
		Value: value,
	})
}

func (p *OrderProducer) Close() error {
	return p.writer.Close()
}
