package services

import (
	"fmt"
	"strings"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/storage"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// normalizePagination приводит параметры страницы к допустимым значениям
// и возвращает смещение для LIMIT/OFFSET запроса.
func normalizePagination(page, perPage int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, (page - 1) * perPage
}

func populateUserDetails(user *models.User, uploader storage.FileUploader) {
	if user == nil {
		return
	}
	user.PasswordHash = ""
	if user.AvatarKey != nil && *user.AvatarKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*user.AvatarKey)
		if url != "" {
			user.AvatarURL = &url
		}
	}
}

// GetExtensionFromContentType подбирает расширение файла по MIME-типу изображения.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			// Убираем суффиксы типа "+xml" (например, "image/svg+xml")
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
