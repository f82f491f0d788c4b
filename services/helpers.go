package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/storage"
)

func generateRandomToken(byteLen int) string {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot do anything secure.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapRepoUserError translates repository conflicts into service errors.
func mapRepoUserError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrUserEmailConflict
	case errors.Is(err, repositories.ErrUserIDNumberConflict):
		return ErrUserIDNumberConflict
	default:
		return err
	}
}

func populateEventBannerURL(event *models.Event, uploader storage.FileUploader) {
	if event != nil && event.BannerKey != nil && *event.BannerKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*event.BannerKey)
		if url != "" {
			event.BannerURL = &url
		}
	}
}

func sanitizeUser(user *models.User) {
	if user != nil {
		user.PasswordHash = ""
	}
}

// GetExtensionFromContentType maps an image content type to a file extension
// for banner object keys.
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
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
