package room

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrRoomNotActive  = errors.New("room is no longer active")
	ErrRoomExpired    = errors.New("room has expired")
	ErrNotParticipant = errors.New("user not a participant in this room")
	ErrDuplicateSolve = errors.New("solve already submitted for this solve number")
	ErrNotCreator     = errors.New("only the room creator can edit the room")
	ErrInvalidEvent   = errors.New("unknown event")
	ErrInvalidFormat  = errors.New("format must be ao5 or ao12")
	ErrInvalidPenalty = errors.New("penalty must be none, +2 or DNF")
	ErrScrambleCount  = errors.New("scramble count does not match format")
	ErrBadSolveNumber = errors.New("solve number out of range")
	ErrCodesExhausted = errors.New("could not generate a unique room code")
)
