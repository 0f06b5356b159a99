package user

import (
	"errors"
	"net/http"

	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/database/models"
	"github.com/cubedev/cubedev/internal/util"
	"github.com/cubedev/cubedev/internal/wca"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func validPenalty(p wca.Penalty) bool {
	switch p {
	case wca.PenaltyNone, wca.PenaltyPlus2, wca.PenaltyDNF:
		return true
	}
	return false
}

func (h *Handler) createTimerSession(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Event string `json:"event" binding:"required"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if !wca.IsValidEvent(req.Event) {
		util.Error(c, http.StatusBadRequest, "unknown event")
		return
	}
	if req.Name == "" {
		req.Name = wca.EventNames[req.Event]
	}

	session := models.TimerSession{
		ID:     uuid.NewString(),
		UserID: userID,
		Event:  req.Event,
		Name:   req.Name,
	}
	if err := database.CreateTimerSession(h.db, &session); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, session, "Session created")
}

func (h *Handler) getTimerSessions(c *gin.Context) {
	userID := c.GetString("userID")
	sessions, err := database.GetTimerSessionsByUser(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, sessions, "Sessions retrieved")
}

// ownedSession loads a session and checks it belongs to the requesting user.
func (h *Handler) ownedSession(c *gin.Context, sessionID string) *models.TimerSession {
	userID := c.GetString("userID")
	session, err := database.GetTimerSession(h.db, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "session not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return nil
	}
	if session.UserID != userID {
		util.Error(c, http.StatusForbidden, "not your session")
		return nil
	}
	return session
}

func (h *Handler) getTimerSession(c *gin.Context) {
	session := h.ownedSession(c, c.Param("id"))
	if session == nil {
		return
	}

	solves, err := database.GetSessionSolves(h.db, session.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"session": session, "solves": solves}, "Session retrieved")
}

func (h *Handler) deleteTimerSession(c *gin.Context) {
	session := h.ownedSession(c, c.Param("id"))
	if session == nil {
		return
	}

	if err := database.DeleteTimerSession(h.db, session.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"success": true}, "Session deleted")
}

func (h *Handler) createTimerSolve(c *gin.Context) {
	session := h.ownedSession(c, c.Param("id"))
	if session == nil {
		return
	}

	var req struct {
		TimeMs   int64  `json:"time_ms" binding:"required"`
		Penalty  string `json:"penalty"`
		Scramble string `json:"scramble"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if req.Penalty == "" {
		req.Penalty = string(wca.PenaltyNone)
	}
	penalty := wca.Penalty(req.Penalty)
	if !validPenalty(penalty) {
		util.Error(c, http.StatusBadRequest, "penalty must be none, +2 or DNF")
		return
	}

	solve := models.TimerSolve{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserID:      session.UserID,
		TimeMs:      req.TimeMs,
		Penalty:     penalty,
		FinalTimeMs: wca.FinalTime(req.TimeMs, penalty),
		Scramble:    req.Scramble,
		Comment:     req.Comment,
	}
	if err := database.CreateTimerSolve(h.db, &solve); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, solve, "Solve recorded")
}

// ownedSolve loads a personal solve and checks ownership.
func (h *Handler) ownedSolve(c *gin.Context, solveID string) *models.TimerSolve {
	userID := c.GetString("userID")
	solve, err := database.GetTimerSolve(h.db, solveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "solve not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return nil
	}
	if solve.UserID != userID {
		util.Error(c, http.StatusForbidden, "not your solve")
		return nil
	}
	return solve
}

// updateTimerSolve edits a personal solve's penalty and comment. Room solves
// have no such endpoint; they are immutable.
func (h *Handler) updateTimerSolve(c *gin.Context) {
	solve := h.ownedSolve(c, c.Param("id"))
	if solve == nil {
		return
	}

	var req struct {
		Penalty *string `json:"penalty"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	if req.Penalty != nil {
		penalty := wca.Penalty(*req.Penalty)
		if !validPenalty(penalty) {
			util.Error(c, http.StatusBadRequest, "penalty must be none, +2 or DNF")
			return
		}
		solve.Penalty = penalty
		solve.FinalTimeMs = wca.FinalTime(solve.TimeMs, penalty)
	}
	if req.Comment != nil {
		solve.Comment = *req.Comment
	}

	if err := database.UpdateTimerSolve(h.db, solve); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, solve, "Solve updated")
}

func (h *Handler) deleteTimerSolve(c *gin.Context) {
	solve := h.ownedSolve(c, c.Param("id"))
	if solve == nil {
		return
	}

	if err := database.DeleteTimerSolve(h.db, solve.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"success": true}, "Solve deleted")
}
