package database

import (
	"github.com/cubedev/cubedev/internal/database/models"
	"gorm.io/gorm"
)

// TimerSession CRUD
func CreateTimerSession(db *gorm.DB, session *models.TimerSession) error {
	return db.Create(session).Error
}

func GetTimerSession(db *gorm.DB, id string) (*models.TimerSession, error) {
	var session models.TimerSession
	if err := db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func GetTimerSessionsByUser(db *gorm.DB, userID string) ([]models.TimerSession, error) {
	var sessions []models.TimerSession
	if err := db.Where("user_id = ?", userID).Order("created_at desc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func DeleteTimerSession(db *gorm.DB, sessionID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.TimerSolve{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TimerSession{}, "id = ?", sessionID).Error
	})
}

// TimerSolve CRUD
func CreateTimerSolve(db *gorm.DB, solve *models.TimerSolve) error {
	return db.Create(solve).Error
}

func GetTimerSolve(db *gorm.DB, id string) (*models.TimerSolve, error) {
	var solve models.TimerSolve
	if err := db.Where("id = ?", id).First(&solve).Error; err != nil {
		return nil, err
	}
	return &solve, nil
}

func GetSessionSolves(db *gorm.DB, sessionID string) ([]models.TimerSolve, error) {
	var solves []models.TimerSolve
	if err := db.Where("session_id = ?", sessionID).Order("created_at asc").Find(&solves).Error; err != nil {
		return nil, err
	}
	return solves, nil
}

func UpdateTimerSolve(db *gorm.DB, solve *models.TimerSolve) error {
	return db.Save(solve).Error
}

func DeleteTimerSolve(db *gorm.DB, id string) error {
	return db.Delete(&models.TimerSolve{}, "id = ?", id).Error
}
