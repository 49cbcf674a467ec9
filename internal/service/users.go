package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// RegisterInput — данные для регистрации покупателя.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Wilaya      string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser регистрирует нового пользователя. Адреса из списка администраторов
// получают роль admin.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if !validation.IsStrongPassword(in.Password) {
		return nil, fmt.Errorf("%w: password must be at least %d characters and contain a letter and a digit",
			ErrInvalidInput, validation.MinPasswordLength)
	}
	wilaya, ok := validation.NormalizeWilaya(in.Wilaya)
	if !ok {
		return nil, fmt.Errorf("%w: unknown wilaya %q", ErrInvalidInput, in.Wilaya)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Wilaya:       wilaya,
		Role:         model.RoleCustomer,
	}
	if s.admins[email] {
		u.Role = model.RoleAdmin
	}

	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser возвращает профиль пользователя.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ProfileInput содержит изменяемые поля профиля.
type ProfileInput struct {
	Name        string
	PhoneNumber string
	Wilaya      string
}

// UpdateProfile изменяет имя, телефон и вилайю пользователя. Все поля обязательны.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.PhoneNumber)
	if name == "" || phone == "" || strings.TrimSpace(in.Wilaya) == "" {
		return nil, fmt.Errorf("%w: name, phone number and wilaya are required", ErrInvalidInput)
	}
	wilaya, ok := validation.NormalizeWilaya(in.Wilaya)
	if !ok {
		return nil, fmt.Errorf("%w: unknown wilaya %q", ErrInvalidInput, in.Wilaya)
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.PhoneNumber = phone
	u.Wilaya = wilaya

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateWilaya меняет вилайю пользователя.
func (s *Service) UpdateWilaya(ctx context.Context, userID int64, wilaya string) (*model.User, error) {
	normalized, ok := validation.NormalizeWilaya(wilaya)
	if !ok {
		return nil, fmt.Errorf("%w: unknown wilaya %q", ErrInvalidInput, wilaya)
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Wilaya = normalized

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteAccount удаляет аккаунт покупателя. Аккаунты администраторов не удаляются.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Role == model.RoleAdmin {
		return fmt.Errorf("%w: admin accounts cannot be deleted", ErrForbidden)
	}

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.Int64("userID", userID))
	return nil
}
