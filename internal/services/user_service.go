package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/bbr/taskbot/internal/i18n"
	"github.com/bbr/taskbot/internal/models"
	tele "gopkg.in/telebot.v3"
)

type UserStore interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateActivity(ctx context.Context, id int64) error
	UpdateLanguage(ctx context.Context, id int64, langCode string) error
	UpdateSurname(ctx context.Context, id int64, surname string) error
}

type UserService struct {
	UserRepo UserStore
}

func NewUserService(userRepo UserStore) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) RegisterUser(ctx context.Context, teleUser *tele.User) (*models.User, error) {
	user := &models.User{
		ID:           teleUser.ID,
		FirstName:    teleUser.FirstName,
		LastName:     teleUser.LastName,
		Username:     teleUser.Username,
		LanguageCode: teleUser.LanguageCode,
	}

	if err := s.UserRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	return s.UserRepo.GetByID(ctx, user.ID) // Return full user with db fields
}

// GetUser returns the stored profile without touching it.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.UserRepo.GetByID(ctx, userID)
}

func (s *UserService) RecordActivity(ctx context.Context, userID int64) error {
	return s.UserRepo.UpdateActivity(ctx, userID)
}

func (s *UserService) UpdateLanguage(ctx context.Context, userID int64, langCode string) error {
	if !i18n.IsSupported(langCode) {
		return fmt.Errorf("unsupported language %q", langCode)
	}
	return s.UserRepo.UpdateLanguage(ctx, userID, langCode)
}

func (s *UserService) SetSurname(ctx context.Context, userID int64, surname string) error {
	surname = strings.TrimSpace(surname)
	if surname == "" {
		return fmt.Errorf("surname is empty")
	}
	return s.UserRepo.UpdateSurname(ctx, userID, surname)
}
