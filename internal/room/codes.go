package room

import (
	"math/rand/v2"

	"github.com/cubedev/cubedev/internal/database"
	"gorm.io/gorm"
)

// codeAlphabet omits 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength      = 6
	maxCodeAttempts = 20 // per length before widening the code
	maxCodeLength   = 8
)

func randomCode(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}

// generateCode finds a collision-free room code. Generation is capped: after
// maxCodeAttempts collisions at a given length the code is widened by one
// character, up to maxCodeLength, rather than looping forever.
func generateCode(db *gorm.DB) (string, error) {
	for length := codeLength; length <= maxCodeLength; length++ {
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code := randomCode(length)
			exists, err := database.RoomCodeExists(db, code)
			if err != nil {
				return "", err
			}
			if !exists {
				return code, nil
			}
		}
	}
	return "", ErrCodesExhausted
}
