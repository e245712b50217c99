package grouping

import (
	"log/slog"

	kafkaPorts "github.com/lightwork87/fashion-analyzer-pro/internal/ports/kafka"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/storage"
	"github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
)

const (
	// maxGroupSize максимальный размер одной группы
	maxGroupSize = 24
	// maxGroups максимальное число групп в одном анализе
	maxGroups = 25
	// averageImagesPerItem эвристика: сколько фото обычно снимают на одну вещь
	averageImagesPerItem = 6
	// fallbackConfidence уверенность детерминированной разбивки,
	// заведомо ниже значений AI-пути
	fallbackConfidence = 0.5
	// maxBatchImages ограничение размера партии в одном запросе
	maxBatchImages = 1000
)

// Service анализ партии фото: списание кредита, AI-группировка с
// детерминированным fallback, выгрузка миниатюр, событие о завершении
type Service struct {
	Credits  *credits.Service
	Vision   service.IVisionService     // может быть nil
	S3       storage.IS3Client          // может быть nil
	Producer kafkaPorts.IEventProducer  // может быть nil
	Log      *slog.Logger
}

// New создаёт новый сервис группировки фото
func New(
	creditsService *credits.Service,
	visionService service.IVisionService,
	s3Client storage.IS3Client,
	producer kafkaPorts.IEventProducer,
	log *slog.Logger,
) *Service {
	return &Service{
		Credits:  creditsService,
		Vision:   visionService,
		S3:       s3Client,
		Producer: producer,
		Log:      log,
	}
}
