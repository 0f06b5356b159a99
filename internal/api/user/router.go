package user

import (
	"github.com/cubedev/cubedev/internal/api"
	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/room"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(cfg *config.Config, db *gorm.DB, rooms *room.Service) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, rooms)

	v1 := r.Group("/api/v1")
	{
		// Auth
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/status", h.getAuthStatus)
			// WCA OAuth
			wcaGroup := authGroup.Group("/wca")
			wcaGroup.GET("/login", h.wcaAuthHandler.Login)
			wcaGroup.GET("/callback", h.wcaAuthHandler.Callback)

			// Local Username/Password Auth (if enabled)
			if cfg.Auth.Local.Enabled {
				localAuthGroup := authGroup.Group("/local")
				{
					localAuthGroup.POST("/register", h.localRegister)
					localAuthGroup.POST("/login", h.localLogin)
				}
			}
		}

		// Websocket for live room events with authorization
		v1.GET("/ws/rooms/:id/live", h.handleRoomWs)

		// Publicly accessible info
		v1.GET("/events", h.getEvents)
		v1.GET("/rooms/public", h.getPublicRooms)
		v1.GET("/rooms/code/:code", h.getRoomByCode)
		v1.GET("/rooms/:id", h.getRoomDetails)
		v1.GET("/users/:id", h.getPublicUserProfile)

		// Publicly accessible assets
		v1.GET("/assets/avatars/:filename", h.serveAvatar)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			// User Profile
			profile := authed.Group("/user")
			{
				profile.GET("/profile", h.getUserProfile)
				profile.PATCH("/profile", h.updateUserProfile)
				profile.PUT("/preferences", h.syncPreferences)
				profile.POST("/avatar", h.uploadAvatar)
				profile.DELETE("/account", h.deleteAccount)
				profile.GET("/rooms/recent", h.getRecentRooms)
			}

			// Challenge rooms
			authed.POST("/rooms", h.createRoom)
			authed.PATCH("/rooms/:id", h.updateRoom)
			authed.POST("/rooms/:id/join", h.joinRoom)
			authed.POST("/rooms/:id/solves", h.submitSolve)
			authed.GET("/rooms/:id/participation", h.getUserParticipation)
			authed.POST("/rooms/:id/ranks", h.updateRanks)

			// Personal timer
			timer := authed.Group("/timer")
			{
				timer.POST("/sessions", h.createTimerSession)
				timer.GET("/sessions", h.getTimerSessions)
				timer.GET("/sessions/:id", h.getTimerSession)
				timer.DELETE("/sessions/:id", h.deleteTimerSession)
				timer.POST("/sessions/:id/solves", h.createTimerSolve)
				timer.PATCH("/solves/:id", h.updateTimerSolve)
				timer.DELETE("/solves/:id", h.deleteTimerSolve)
			}
		}
	}

	return r
}
