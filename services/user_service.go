package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
	"github.com/smashpoint/tournament-api/storage"
)

type UpdateProfileInput struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
	State   *string `json:"state,omitempty"`
}

type UserService interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	ListUsers(ctx context.Context, page, perPage int) ([]*models.User, models.PageMeta, error)
	UpdateProfile(ctx context.Context, id int, currentUser *models.User, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, id int, currentUser *models.User, contentType string, reader io.Reader) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
	}
}

func (s *userService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	populateUserDetails(user, s.uploader)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page, perPage int) ([]*models.User, models.PageMeta, error) {
	page, perPage, offset := normalizePagination(page, perPage)
	users, total, err := s.userRepo.List(ctx, perPage, offset)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	for _, u := range users {
		populateUserDetails(u, s.uploader)
	}
	return users, models.NewPageMeta(total, page, perPage), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int, currentUser *models.User, input UpdateProfileInput) (*models.User, error) {
	if currentUser == nil || (currentUser.ID != id && currentUser.Role != models.RoleAdmin) {
		return nil, ErrForbiddenOperation
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrValidationFailed
		}
		user.Name = *input.Name
	}
	if input.Country != nil {
		user.Country = input.Country
	}
	if input.State != nil {
		user.State = input.State
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	populateUserDetails(user, s.uploader)
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, id int, currentUser *models.User, contentType string, reader io.Reader) (*models.User, error) {
	if currentUser == nil || (currentUser.ID != id && currentUser.Role != models.RoleAdmin) {
		return nil, ErrForbiddenOperation
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if s.uploader == nil {
		return nil, errors.New("file uploader is not configured")
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("avatars/%d%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("ошибка загрузки аватара: %w", err)
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("ошибка сохранения ключа аватара: %w", err)
	}
	user.AvatarKey = &key
	populateUserDetails(user, s.uploader)
	return user, nil
}
