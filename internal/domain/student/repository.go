package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ListOptions задаёт параметры пагинации для списочных запросов.
type ListOptions struct {
	Limit  int
	Offset int

	// IncludeInactive - включать ли деактивированные аккаунты.
	IncludeInactive bool
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 50, Offset: 0}
}

// Repository определяет основные операции CRUD для студентов.
type Repository interface {
	// Create создаёт нового студента.
	// Возвращает ErrStudentAlreadyExists, если email уже занят.
	Create(ctx context.Context, student *Student) error

	// GetByID возвращает студента по внутреннему ID.
	// Возвращает ErrStudentNotFound, если студент не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByEmail возвращает студента по email.
	// Возвращает ErrStudentNotFound, если студент не найден.
	GetByEmail(ctx context.Context, email Email) (*Student, error)

	// Update обновляет данные студента.
	// Возвращает ErrStudentNotFound, если студент не найден.
	Update(ctx context.Context, student *Student) error

	// Deactivate выполняет мягкое удаление (active = false).
	// Возвращает ErrStudentNotFound, если студент не найден.
	Deactivate(ctx context.Context, id string) error

	// GetAll возвращает всех студентов с пагинацией.
	GetAll(ctx context.Context, opts ListOptions) ([]*Student, error)

	// Count возвращает общее количество студентов.
	Count(ctx context.Context) (int, error)

	// ExistsByEmail проверяет, занят ли email.
	ExistsByEmail(ctx context.Context, email Email) (bool, error)
}
