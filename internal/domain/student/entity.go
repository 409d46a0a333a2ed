// Package student содержит доменную модель студента платформы LearnFlow.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Email представляет адрес электронной почты студента.
type Email string

// IsValid выполняет минимальную проверку формата адреса.
// Полная RFC-валидация не нужна: адрес подтверждается при регистрации.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return false
	}
	if strings.ContainsAny(s, " \t\n\r") {
		return false
	}
	return len(s) >= 5 && len(s) <= 255 && strings.Contains(s[at:], ".")
}

// Normalized возвращает адрес в нижнем регистре без пробелов по краям.
func (e Email) Normalized() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// String возвращает строковое представление адреса.
func (e Email) String() string {
	return string(e)
}

// GradeLevel представляет уровень подготовки студента (например, "beginner").
type GradeLevel string

// IsValid проверяет корректность уровня. Пустое значение допустимо.
func (g GradeLevel) IsValid() bool {
	return len(g) <= 50
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - центральная сущность системы, владелец учётных данных.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Email - уникальный адрес электронной почты.
	Email Email

	// DisplayName - отображаемое имя.
	DisplayName string

	// PasswordHash - bcrypt-хеш пароля. Домен хранит его как непрозрачную строку.
	PasswordHash string

	// GradeLevel - уровень подготовки (опционально).
	GradeLevel GradeLevel

	// Bio - краткая информация о себе (опционально).
	Bio string

	// Active - флаг активности. Аккаунты не удаляются, только деактивируются.
	Active bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEmail - невалидный адрес электронной почты.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidDisplayName - невалидное отображаемое имя.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-255 chars")

	// ErrInvalidGradeLevel - невалидный уровень подготовки.
	ErrInvalidGradeLevel = errors.New("invalid grade level: must be at most 50 chars")

	// ErrEmptyPasswordHash - пустой хеш пароля.
	ErrEmptyPasswordHash = errors.New("password hash is required")

	// ErrStudentNotFound - студент не найден.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - студент с таким email уже существует.
	ErrStudentAlreadyExists = errors.New("student already exists")

	// ErrStudentInactive - аккаунт деактивирован.
	ErrStudentInactive = errors.New("student account is inactive")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания нового студента.
type NewStudentParams struct {
	ID           string
	Email        Email
	DisplayName  string
	PasswordHash string
	GradeLevel   GradeLevel
	Bio          string
}

// NewStudent создаёт нового студента с валидацией всех полей.
func NewStudent(params NewStudentParams) (*Student, error) {
	if params.ID == "" {
		return nil, errors.New("student id is required")
	}

	email := params.Email.Normalized()
	if !email.IsValid() {
		return nil, ErrInvalidEmail
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 255 {
		return nil, ErrInvalidDisplayName
	}

	if params.PasswordHash == "" {
		return nil, ErrEmptyPasswordHash
	}

	if !params.GradeLevel.IsValid() {
		return nil, ErrInvalidGradeLevel
	}

	now := time.Now().UTC()

	return &Student{
		ID:           params.ID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: params.PasswordHash,
		GradeLevel:   params.GradeLevel,
		Bio:          params.Bio,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// Deactivate выполняет мягкое удаление аккаунта.
// Запись остаётся в хранилище, но вход становится невозможен.
func (s *Student) Deactivate() error {
	if !s.Active {
		return ErrStudentInactive
	}

	s.Active = false
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reactivate восстанавливает деактивированный аккаунт.
func (s *Student) Reactivate() {
	s.Active = true
	s.UpdatedAt = time.Now().UTC()
}

// ChangePasswordHash заменяет хеш пароля. Проверка старого пароля
// выполняется на уровне приложения, где доступен bcrypt.
func (s *Student) ChangePasswordHash(newHash string) error {
	if newHash == "" {
		return ErrEmptyPasswordHash
	}

	s.PasswordHash = newHash
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProfile обновляет отображаемое имя и информацию о себе.
func (s *Student) UpdateProfile(displayName, bio string) error {
	displayName = strings.TrimSpace(displayName)
	if len(displayName) == 0 || len(displayName) > 255 {
		return ErrInvalidDisplayName
	}

	s.DisplayName = displayName
	s.Bio = bio
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// CanLogin возвращает true, если аккаунт может пройти аутентификацию.
func (s *Student) CanLogin() bool {
	return s.Active
}

// String возвращает строковое представление студента для логирования.
// Хеш пароля намеренно не включается.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Email: %s, Active: %t}",
		s.ID, s.Email, s.Active,
	)
}

// Clone создаёт глубокую копию студента.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
