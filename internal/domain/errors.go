package domain

import "errors"

// Терминальные ошибки бизнес-логики, различаемые контроллерами
var (
	// ErrInsufficientCredits у пользователя нет кредитов на операцию;
	// не ретраится, пользователь должен купить или дождаться гранта
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrNoImagesProvided в запросе анализа нет ни одного фото
	ErrNoImagesProvided = errors.New("no images provided")

	// ErrTooManyImages партия больше допустимого размера
	ErrTooManyImages = errors.New("too many images in batch")

	// ErrUserNotFound запись пользователя отсутствует
	ErrUserNotFound = errors.New("user not found")

	// ErrListingNotFound черновик объявления отсутствует или принадлежит другому пользователю
	ErrListingNotFound = errors.New("listing not found")

	// ErrPaymentNotFound платёж отсутствует
	ErrPaymentNotFound = errors.New("payment not found")
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}
