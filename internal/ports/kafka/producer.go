package kafka

import (
	"context"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// IEventProducer интерфейс для публикации событий в Kafka
type IEventProducer interface {
	// SendAnalysisCompleted публикует событие о завершённом анализе партии фото
	SendAnalysisCompleted(ctx context.Context, event domain.AnalysisCompletedEvent) error
	// Send отправляет произвольное сообщение
	Send(ctx context.Context, key string, value []byte) error
	// Close закрывает producer
	Close() error
}
