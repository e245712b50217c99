package listing

import (
	"log/slog"

	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/storage"
)

// Service черновики объявлений поверх результатов группировки
type Service struct {
	ListingRepo repository.IListingRepo
	UserRepo    repository.IUserRepo
	Copy        service.IListingCopyService // может быть nil
	S3          storage.IS3Client           // может быть nil
	Log         *slog.Logger
}

// New создаёт новый сервис черновиков объявлений
func New(
	listingRepo repository.IListingRepo,
	userRepo repository.IUserRepo,
	copyService service.IListingCopyService,
	s3Client storage.IS3Client,
	log *slog.Logger,
) *Service {
	return &Service{
		ListingRepo: listingRepo,
		UserRepo:    userRepo,
		Copy:        copyService,
		S3:          s3Client,
		Log:         log,
	}
}
