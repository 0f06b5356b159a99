package admin

import (
	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/room"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the admin API handlers.
type Handler struct {
	cfg   *config.Config
	db    *gorm.DB
	rooms *room.Service
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(cfg *config.Config, db *gorm.DB, rooms *room.Service) *Handler {
	return &Handler{
		cfg:   cfg,
		db:    db,
		rooms: rooms,
	}
}
