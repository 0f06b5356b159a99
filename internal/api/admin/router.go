package admin

import (
	"github.com/cubedev/cubedev/internal/api"
	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/room"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewAdminRouter creates and configures the admin Gin engine.
func NewAdminRouter(cfg *config.Config, db *gorm.DB, rooms *room.Service) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, rooms)

	v1 := r.Group("/api/v1")
	v1.Use(api.AdminAuthMiddleware(cfg.Admin.Token))
	{
		// Room Management
		roomsGroup := v1.Group("/rooms")
		{
			roomsGroup.GET("", h.getAllRooms)
			roomsGroup.GET("/:id", h.getRoom)
			roomsGroup.DELETE("/:id", h.deleteRoom)
			roomsGroup.POST("/cleanup", h.cleanupExpiredRooms)
			roomsGroup.POST("/process-expired", h.processExpiredRooms)
			roomsGroup.POST("/:id/ranks", h.updateRanks)
		}

		// User Management
		users := v1.Group("/users")
		{
			users.GET("", h.getAllUsers)
			users.GET("/:id", h.getUser)
			users.DELETE("/:id", h.deleteUser)
		}
	}

	return r
}
