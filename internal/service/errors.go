package service

import "github.com/pkg/errors"

var (
	// ErrInvalidInput ошибка валидации входных данных
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition недопустимый переход статуса заказа
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthenticated нет сессии или она истекла
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden профиль заблокирован, отклонён или не имеет нужной роли
	ErrForbidden = errors.New("forbidden")
)

func invalid(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}
