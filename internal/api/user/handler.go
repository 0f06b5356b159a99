package user

import (
	"github.com/cubedev/cubedev/internal/auth"
	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/room"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg            *config.Config
	db             *gorm.DB
	rooms          *room.Service
	wcaAuthHandler *auth.WCAHandler
}

// NewHandler creates a new user handler with its dependencies.
func NewHandler(cfg *config.Config, db *gorm.DB, rooms *room.Service) *Handler {
	return &Handler{
		cfg:            cfg,
		db:             db,
		rooms:          rooms,
		wcaAuthHandler: auth.NewWCAHandler(cfg, db),
	}
}
