package database

import (
	"time"

	"github.com/cubedev/cubedev/internal/database/models"
	"gorm.io/gorm"
)

// ChallengeRoom CRUD
func CreateRoom(db *gorm.DB, room *models.ChallengeRoom) error {
	return db.Create(room).Error
}

func GetRoomByID(db *gorm.DB, id string) (*models.ChallengeRoom, error) {
	var room models.ChallengeRoom
	if err := db.Preload("Creator").Where("id = ?", id).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func GetRoomByCode(db *gorm.DB, code string) (*models.ChallengeRoom, error) {
	var room models.ChallengeRoom
	if err := db.Preload("Creator").Where("code = ?", code).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func RoomCodeExists(db *gorm.DB, code string) (bool, error) {
	var count int64
	if err := db.Model(&models.ChallengeRoom{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func GetPublicRooms(db *gorm.DB, limit int) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	if err := db.Preload("Creator").
		Where("is_public = ? AND status = ?", true, models.RoomActive).
		Order("created_at desc").
		Limit(limit).
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func GetAllRooms(db *gorm.DB) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	if err := db.Preload("Creator").Order("created_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetRoomsExpiringBetween returns active rooms whose deadline falls inside
// (from, to]. The sweep uses a trailing window so rooms already processed in
// a previous run are not picked up again.
func GetRoomsExpiringBetween(db *gorm.DB, from, to time.Time) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	if err := db.Where("status = ? AND expires_at > ? AND expires_at <= ?", models.RoomActive, from, to).
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func GetRoomsCreatedBefore(db *gorm.DB, cutoff time.Time) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	if err := db.Where("created_at < ?", cutoff).Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// DeleteRoomCascade hard-deletes a room together with its solves and
// participants. Children go first: sqlite enforces no cascade for us, so
// ordering is what keeps the store free of orphans.
func DeleteRoomCascade(db *gorm.DB, roomID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomSolve{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChallengeRoom{}, "id = ?", roomID).Error
	})
}

// RoomParticipant CRUD
func CreateParticipant(db *gorm.DB, p *models.RoomParticipant) error {
	return db.Create(p).Error
}

func GetParticipant(db *gorm.DB, roomID, userID string) (*models.RoomParticipant, error) {
	var p models.RoomParticipant
	if err := db.Preload("User").Where("room_id = ? AND user_id = ?", roomID, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetRoomParticipants(db *gorm.DB, roomID string) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	if err := db.Preload("User").Where("room_id = ?", roomID).Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

func GetCompletedParticipants(db *gorm.DB, roomID string) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	if err := db.Where("room_id = ? AND is_completed = ?", roomID, true).Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// GetRecentParticipations returns the user's most recent room joins, newest
// first.
func GetRecentParticipations(db *gorm.DB, userID string, limit int) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	if err := db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// RoomSolve CRUD
func CreateRoomSolve(db *gorm.DB, solve *models.RoomSolve) error {
	return db.Create(solve).Error
}

func GetParticipantSolves(db *gorm.DB, participantID string) ([]models.RoomSolve, error) {
	var solves []models.RoomSolve
	if err := db.Where("participant_id = ?", participantID).
		Order("solve_number asc").
		Find(&solves).Error; err != nil {
		return nil, err
	}
	return solves, nil
}

func SolveSlotTaken(db *gorm.DB, participantID string, solveNumber int) (bool, error) {
	var count int64
	if err := db.Model(&models.RoomSolve{}).
		Where("participant_id = ? AND solve_number = ?", participantID, solveNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
