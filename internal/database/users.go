package database

import (
	"time"

	"github.com/cubedev/cubedev/internal/database/models"
	"gorm.io/gorm"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByWCAID(db *gorm.DB, wcaID string) (*models.User, error) {
	var user models.User
	if err := db.Where("wca_id = ?", wcaID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetAllUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func UpdateUser(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// PurgeUserAccount performs the two-phase account deletion: the identity
// fields are anonymized in place (phase one) and the collections owned
// exclusively by the user, the personal timer data, are hard-deleted (phase
// two). Challenge-room participations and solves are left untouched so
// finished leaderboards stay intact; they now point at the anonymized row.
func PurgeUserAccount(db *gorm.DB, userID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"wca_id":        nil,
			"username":      "deleted-" + userID,
			"password_hash": "",
			"name":          "Deleted User",
			"avatar_url":    "",
			"country_iso2":  "",
			"preferences":   nil,
			"is_deleted":    true,
			"deleted_at":    now,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.TimerSolve{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.TimerSession{}).Error
	})
}

// HardDeleteUser removes the user row itself. Admin-only escape hatch; the
// normal deletion path is PurgeUserAccount.
func HardDeleteUser(db *gorm.DB, userID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.TimerSolve{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.TimerSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
}
