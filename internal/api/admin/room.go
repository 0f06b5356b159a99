package admin

import (
	"errors"
	"net/http"

	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) getAllRooms(c *gin.Context) {
	rooms, err := database.GetAllRooms(h.db)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, rooms, "Rooms retrieved")
}

func (h *Handler) getRoom(c *gin.Context) {
	details, err := h.rooms.Details(c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}
	util.Success(c, details, "Room retrieved")
}

// deleteRoom is the moderation hammer: an immediate hard cascade delete,
// active or not.
func (h *Handler) deleteRoom(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := database.GetRoomByID(h.db, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "room not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	if err := database.DeleteRoomCascade(h.db, roomID); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	zap.S().Infof("admin deleted room %s", roomID)
	util.Success(c, gin.H{"success": true}, "Room deleted")
}

func (h *Handler) cleanupExpiredRooms(c *gin.Context) {
	deleted, err := h.rooms.CleanupExpired()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"deleted_rooms": deleted}, "Cleanup complete")
}

func (h *Handler) processExpiredRooms(c *gin.Context) {
	if err := h.rooms.ProcessExpired(); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, nil, "Expired rooms processed")
}

func (h *Handler) updateRanks(c *gin.Context) {
	ranked, err := h.rooms.UpdateRanks(c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"ranked": ranked}, "Ranks updated")
}
