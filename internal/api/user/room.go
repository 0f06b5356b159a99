package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cubedev/cubedev/internal/room"
	"github.com/cubedev/cubedev/internal/util"
	"github.com/cubedev/cubedev/internal/wca"
	"github.com/gin-gonic/gin"
)

// roomError maps the room service's error taxonomy onto HTTP statuses.
func roomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrUserNotFound),
		errors.Is(err, room.ErrNotParticipant):
		util.Error(c, http.StatusNotFound, err)
	case errors.Is(err, room.ErrNotCreator):
		util.Error(c, http.StatusForbidden, err)
	case errors.Is(err, room.ErrRoomNotActive),
		errors.Is(err, room.ErrRoomExpired),
		errors.Is(err, room.ErrDuplicateSolve):
		util.Error(c, http.StatusConflict, err)
	case errors.Is(err, room.ErrInvalidEvent),
		errors.Is(err, room.ErrInvalidFormat),
		errors.Is(err, room.ErrInvalidPenalty),
		errors.Is(err, room.ErrScrambleCount),
		errors.Is(err, room.ErrBadSolveNumber):
		util.Error(c, http.StatusBadRequest, err)
	default:
		util.Error(c, http.StatusInternalServerError, err)
	}
}

func (h *Handler) getEvents(c *gin.Context) {
	util.Success(c, wca.EventNames, "Events retrieved")
}

func (h *Handler) createRoom(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Event       string   `json:"event" binding:"required"`
		Format      string   `json:"format" binding:"required"`
		Scrambles   []string `json:"scrambles" binding:"required"`
		IsPublic    bool     `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	newRoom, err := h.rooms.Create(userID, room.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Event:       req.Event,
		Format:      wca.Format(req.Format),
		Scrambles:   req.Scrambles,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		roomError(c, err)
		return
	}

	util.Success(c, gin.H{"room_id": newRoom.ID, "code": newRoom.Code}, "Room created")
}

const (
	defaultPublicRoomsLimit = 20
	maxPublicRoomsLimit     = 100
)

// clampLimit parses the limit query parameter, falling back to the default
// on junk and capping the page size a client can ask for.
func clampLimit(raw string) int {
	limit := defaultPublicRoomsLimit
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPublicRoomsLimit {
		limit = maxPublicRoomsLimit
	}
	return limit
}

func (h *Handler) getPublicRooms(c *gin.Context) {
	rooms, err := h.rooms.PublicRooms(clampLimit(c.Query("limit")))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, rooms, "Public rooms retrieved")
}

// getRoomByCode resolves a shared room code to the room so the client can
// navigate to it.
func (h *Handler) getRoomByCode(c *gin.Context) {
	rm, err := h.rooms.ResolveCode(c.Param("code"))
	if err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, rm, "Room retrieved")
}

func (h *Handler) getRoomDetails(c *gin.Context) {
	details, err := h.rooms.Details(c.Param("id"))
	if err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, details, "Room details retrieved")
}

func (h *Handler) updateRoom(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	if err := h.rooms.Update(userID, c.Param("id"), req.Name, req.Description); err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, gin.H{"success": true}, "Room updated")
}

func (h *Handler) joinRoom(c *gin.Context) {
	userID := c.GetString("userID")

	participant, joinedRoom, err := h.rooms.Join(userID, c.Param("id"))
	if err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, gin.H{"participant": participant, "room": joinedRoom}, "Joined room")
}

func (h *Handler) submitSolve(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		SolveNumber int    `json:"solve_number" binding:"required"`
		TimeMs      int64  `json:"time_ms" binding:"required"`
		Penalty     string `json:"penalty"`
		Comment     string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if req.Penalty == "" {
		req.Penalty = string(wca.PenaltyNone)
	}

	solve, err := h.rooms.SubmitSolve(userID, c.Param("id"), req.SolveNumber, req.TimeMs, wca.Penalty(req.Penalty), req.Comment)
	if err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, solve, "Solve recorded")
}

func (h *Handler) getUserParticipation(c *gin.Context) {
	userID := c.GetString("userID")

	participation, err := h.rooms.UserParticipation(userID, c.Param("id"))
	if err != nil {
		roomError(c, err)
		return
	}
	// Not having joined is not an error; the client shows the join prompt.
	util.Success(c, participation, "Participation retrieved")
}

func (h *Handler) getRecentRooms(c *gin.Context) {
	userID := c.GetString("userID")

	recent, err := h.rooms.RecentRooms(userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, recent, "Recent rooms retrieved")
}

func (h *Handler) updateRanks(c *gin.Context) {
	ranked, err := h.rooms.UpdateRanks(c.Param("id"))
	if err != nil {
		roomError(c, err)
		return
	}
	util.Success(c, gin.H{"ranked": ranked}, "Ranks updated")
}
