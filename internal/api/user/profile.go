package user

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/database/models"
	"github.com/cubedev/cubedev/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getUserProfile(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}
	// Prepend API path to avatar filename if it's not a full URL
	if user.AvatarURL != "" && !strings.HasPrefix(user.AvatarURL, "http") {
		user.AvatarURL = fmt.Sprintf("/api/v1/assets/avatars/%s", user.AvatarURL)
	}
	util.Success(c, user, "ok")
}

func (h *Handler) getPublicUserProfile(c *gin.Context) {
	user, err := database.GetUserByID(h.db, c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}
	if user.AvatarURL != "" && !strings.HasPrefix(user.AvatarURL, "http") {
		user.AvatarURL = fmt.Sprintf("/api/v1/assets/avatars/%s", user.AvatarURL)
	}

	// Public view only.
	util.Success(c, gin.H{
		"id":           user.ID,
		"wca_id":       user.WCAID,
		"name":         user.Name,
		"avatar_url":   user.AvatarURL,
		"country_iso2": user.CountryISO2,
		"is_deleted":   user.IsDeleted,
	}, "ok")
}

func (h *Handler) updateUserProfile(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}
	var reqBody struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&reqBody); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	user.Name = reqBody.Name
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, user, "Profile updated")
}

// syncPreferences replaces the stored display preferences wholesale. The
// client owns the preference object and pushes it here explicitly; the
// server never merges.
func (h *Handler) syncPreferences(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}

	var prefs models.JSONMap
	if err := c.ShouldBindJSON(&prefs); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	user.Preferences = prefs
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, user.Preferences, "Preferences synced")
}

// deleteAccount anonymizes the user and removes their personal timer data.
// Room participations survive, pointing at the anonymized row.
func (h *Handler) deleteAccount(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}

	if user.AvatarURL != "" && !strings.HasPrefix(user.AvatarURL, "http") {
		avatarPath := filepath.Join(h.cfg.Storage.UserAvatar, filepath.Base(user.AvatarURL))
		_ = os.Remove(avatarPath)
	}

	if err := database.PurgeUserAccount(h.db, userID); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	zap.S().Infof("account %s deleted and anonymized", userID)
	util.Success(c, gin.H{"success": true}, "Account deleted")
}

func validateAvatar(file *multipart.FileHeader) error {
	const maxAvatarSize = 5 * 1024 * 1024
	if file.Size > maxAvatarSize {
		return fmt.Errorf("avatar file is too large. Maximum size is 5MB")
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("could not open file for validation")
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := io.ReadFull(src, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("could not read file for validation")
	}
	buffer = buffer[:n]

	contentType := http.DetectContentType(buffer)
	allowedMIMETypes := map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}

	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return fmt.Errorf("invalid file format. Only JPG, PNG, and WEBP are allowed")
	}

	providedExt := strings.ToLower(filepath.Ext(file.Filename))
	if providedExt != ext && !(ext == ".jpg" && providedExt == ".jpeg") {
		return fmt.Errorf("file extension %s does not match the actual content type %s", providedExt, contentType)
	}

	return nil
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		util.Error(c, http.StatusBadRequest, "Avatar file not provided")
		return
	}

	if err := validateAvatar(file); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}

	if user.AvatarURL != "" && !strings.HasPrefix(user.AvatarURL, "http") {
		oldAvatarPath := filepath.Join(h.cfg.Storage.UserAvatar, filepath.Base(user.AvatarURL))
		_ = os.Remove(oldAvatarPath)
	}

	avatarFilename := fmt.Sprintf("%s%s", user.ID, ext)
	avatarPath := filepath.Join(h.cfg.Storage.UserAvatar, avatarFilename)

	if err := c.SaveUploadedFile(file, avatarPath); err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to save avatar")
		return
	}

	user.AvatarURL = avatarFilename // Store only the filename
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, user, "Avatar updated")
}

func (h *Handler) serveAvatar(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	path := filepath.Join(h.cfg.Storage.UserAvatar, filename)
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(path)
}
