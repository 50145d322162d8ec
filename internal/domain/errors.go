package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrConflict конфликт состояния (дубликат активной подписки,
	// дубликат административного гранта, самодеактивация)
	ErrConflict = errors.New("conflict")

	// ErrInvalidState переход запрошен из состояния, которое его не допускает
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthorized пользователь не аутентифицирован или не имеет гранта
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden недостаточно прав
	ErrForbidden = errors.New("forbidden")

	// ErrAccountLocked аккаунт временно заблокирован после неудачных входов
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")
)

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// StateError представляет ошибку недопустимого перехода состояния
type StateError struct {
	Entity  string
	Current string
	Action  string
}

// Error реализует интерфейс error
func (e *StateError) Error() string {
	return fmt.Sprintf("%s in state '%s' does not permit %s", e.Entity, e.Current, e.Action)
}

// Is проверяет, является ли ошибка ошибкой недопустимого состояния
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewStateError создает новую ошибку недопустимого перехода
func NewStateError(entity, current, action string) *StateError {
	return &StateError{Entity: entity, Current: current, Action: action}
}

// ConflictError представляет конфликт состояния
type ConflictError struct {
	Entity string
	Reason string
}

// Error реализует интерфейс error
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

// Is проверяет, является ли ошибка конфликтом
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError создает новый конфликт состояния
func NewConflictError(entity, reason string) *ConflictError {
	return &ConflictError{Entity: entity, Reason: reason}
}

// InvalidInputError представляет ошибку входных данных
type InvalidInputError struct {
	Field  string
	Reason string
}

// Error реализует интерфейс error
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is проверяет, является ли ошибка ошибкой входных данных
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError создает новую ошибку входных данных
func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}
