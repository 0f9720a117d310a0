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

type CharacterInput struct {
	Name string `json:"name"`
	Game string `json:"game"`
}

type CharacterService interface {
	CreateCharacter(ctx context.Context, currentUser *models.User, input CharacterInput) (*models.Character, error)
	GetCharacter(ctx context.Context, id int) (*models.Character, error)
	ListCharacters(ctx context.Context, game *string) ([]*models.Character, error)
	UpdateCharacter(ctx context.Context, id int, currentUser *models.User, input CharacterInput) (*models.Character, error)
	DeleteCharacter(ctx context.Context, id int, currentUser *models.User) error
	UploadImage(ctx context.Context, id int, currentUser *models.User, contentType string, reader io.Reader) (*models.Character, error)
	GetUsage(ctx context.Context, id int) (*models.CharacterUsage, error)
}

type characterService struct {
	characterRepo repositories.CharacterRepository
	uploader      storage.FileUploader
}

func NewCharacterService(characterRepo repositories.CharacterRepository, uploader storage.FileUploader) CharacterService {
	return &characterService{
		characterRepo: characterRepo,
		uploader:      uploader,
	}
}

func isAdmin(user *models.User) bool {
	return user != nil && user.Role == models.RoleAdmin
}

func (s *characterService) CreateCharacter(ctx context.Context, currentUser *models.User, input CharacterInput) (*models.Character, error) {
	if !isAdmin(currentUser) {
		return nil, ErrForbiddenOperation
	}
	if input.Name == "" || input.Game == "" {
		return nil, ErrValidationFailed
	}

	character := &models.Character{
		Name: input.Name,
		Game: input.Game,
	}
	if err := s.characterRepo.Create(ctx, character); err != nil {
		if errors.Is(err, repositories.ErrCharacterNameConflict) {
			return nil, ErrCharacterNameConflict
		}
		return nil, fmt.Errorf("ошибка создания персонажа: %w", err)
	}
	return character, nil
}

func (s *characterService) GetCharacter(ctx context.Context, id int) (*models.Character, error) {
	character, err := s.characterRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	s.populateImageURL(character)
	return character, nil
}

func (s *characterService) ListCharacters(ctx context.Context, game *string) ([]*models.Character, error) {
	characters, err := s.characterRepo.List(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка персонажей: %w", err)
	}
	for _, c := range characters {
		s.populateImageURL(c)
	}
	return characters, nil
}

func (s *characterService) UpdateCharacter(ctx context.Context, id int, currentUser *models.User, input CharacterInput) (*models.Character, error) {
	if !isAdmin(currentUser) {
		return nil, ErrForbiddenOperation
	}
	character, err := s.characterRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	if input.Name != "" {
		character.Name = input.Name
	}
	if input.Game != "" {
		character.Game = input.Game
	}
	if err := s.characterRepo.Update(ctx, character); err != nil {
		if errors.Is(err, repositories.ErrCharacterNameConflict) {
			return nil, ErrCharacterNameConflict
		}
		return nil, fmt.Errorf("ошибка обновления персонажа: %w", err)
	}
	s.populateImageURL(character)
	return character, nil
}

func (s *characterService) DeleteCharacter(ctx context.Context, id int, currentUser *models.User) error {
	if !isAdmin(currentUser) {
		return ErrForbiddenOperation
	}
	if err := s.characterRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCharacterNotFound):
			return ErrCharacterNotFound
		case errors.Is(err, repositories.ErrCharacterInUse):
			return ErrValidationFailed
		default:
			return fmt.Errorf("ошибка удаления персонажа: %w", err)
		}
	}
	return nil
}

func (s *characterService) UploadImage(ctx context.Context, id int, currentUser *models.User, contentType string, reader io.Reader) (*models.Character, error) {
	if !isAdmin(currentUser) {
		return nil, ErrForbiddenOperation
	}
	character, err := s.characterRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
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

	key := fmt.Sprintf("characters/%d%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("ошибка загрузки изображения персонажа: %w", err)
	}

	if err := s.characterRepo.UpdateImageKey(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("ошибка сохранения ключа изображения: %w", err)
	}
	character.ImageKey = &key
	s.populateImageURL(character)
	return character, nil
}

func (s *characterService) GetUsage(ctx context.Context, id int) (*models.CharacterUsage, error) {
	if _, err := s.characterRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	usage, err := s.characterRepo.GetUsage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики персонажа: %w", err)
	}
	return usage, nil
}

func (s *characterService) populateImageURL(character *models.Character) {
	if character == nil || s.uploader == nil {
		return
	}
	if character.ImageKey != nil && *character.ImageKey != "" {
		url := s.uploader.GetPublicURL(*character.ImageKey)
		if url != "" {
			character.ImageURL = &url
		}
	}
}
