package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cubedev/cubedev/internal/cache"
	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/database/models"
	"github.com/cubedev/cubedev/internal/pubsub"
	"github.com/cubedev/cubedev/internal/wca"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Lifetime is the fixed window a room accepts joins and solves for.
	Lifetime = 48 * time.Hour

	// RetentionPeriod is how long expired rooms are kept before the sweep
	// hard-deletes them.
	RetentionPeriod = 30 * 24 * time.Hour

	// sweepLookback bounds the expiry window the sweep processes, so rooms
	// already flipped to expired in an earlier run are not reprocessed.
	sweepLookback = time.Hour
)

// Service implements the challenge-room engine: lifecycle, participation,
// solve recording with WCA averaging, and rank finalization.
type Service struct {
	db     *gorm.DB
	broker *pubsub.Broker
	cache  *cache.RoomCache
}

func NewService(db *gorm.DB, broker *pubsub.Broker, roomCache *cache.RoomCache) *Service {
	return &Service{db: db, broker: broker, cache: roomCache}
}

// Broker exposes the event broker for websocket fanout.
func (s *Service) Broker() *pubsub.Broker {
	return s.broker
}

// CreateInput carries the room creation form.
type CreateInput struct {
	Name        string
	Description string
	Event       string
	Format      wca.Format
	Scrambles   []string
	IsPublic    bool
}

// Details is the full room view: the persisted room, a wall-clock expiry
// signal, and participants in leaderboard order.
//
// IsExpired is computed from CreatedAt and can disagree with Room.Status for
// up to a sweep interval after the deadline passes: the UI shows the room as
// expired immediately while rank finalization catches up in the background.
// The two signals are deliberately kept separate.
type Details struct {
	Room         models.ChallengeRoom     `json:"room"`
	IsExpired    bool                     `json:"is_expired"`
	Participants []models.RoomParticipant `json:"participants"`
}

// Participation is one user's view of their progress in a room.
type Participation struct {
	Participant models.RoomParticipant `json:"participant"`
	Solves      []models.RoomSolve     `json:"solves"`
	Room        models.ChallengeRoom   `json:"room"`
}

// RecentRoom pairs a participation with its room for the profile page.
type RecentRoom struct {
	Participant models.RoomParticipant `json:"participant"`
	Room        models.ChallengeRoom   `json:"room"`
}

func (s *Service) Create(userID string, in CreateInput) (*models.ChallengeRoom, error) {
	if _, err := database.GetUserByID(s.db, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !wca.IsValidEvent(in.Event) {
		return nil, ErrInvalidEvent
	}
	solveCount, ok := wca.SolveCount(in.Format)
	if !ok {
		return nil, ErrInvalidFormat
	}
	if len(in.Scrambles) != solveCount {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrScrambleCount, solveCount, len(in.Scrambles))
	}

	code, err := generateCode(s.db)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newRoom := models.ChallengeRoom{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        in.Name,
		Description: in.Description,
		Event:       in.Event,
		Format:      in.Format,
		Scrambles:   in.Scrambles,
		CreatedBy:   userID,
		IsPublic:    in.IsPublic,
		Status:      models.RoomActive,
		ExpiresAt:   now.Add(Lifetime),
	}
	if err := database.CreateRoom(s.db, &newRoom); err != nil {
		return nil, err
	}

	s.cache.InvalidatePublicRooms(context.Background())
	zap.S().Infof("room %s created by %s (%s %s)", newRoom.Code, userID, newRoom.Event, newRoom.Format)
	return &newRoom, nil
}

// Join is idempotent: joining a room twice returns the existing participant
// without touching the room counters.
func (s *Service) Join(userID, roomID string) (*models.RoomParticipant, *models.ChallengeRoom, error) {
	rm, err := database.GetRoomByID(s.db, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}

	if existing, err := database.GetParticipant(s.db, roomID, userID); err == nil {
		return existing, rm, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if rm.Status != models.RoomActive {
		return nil, nil, ErrRoomNotActive
	}
	if time.Now().After(rm.ExpiresAt) {
		return nil, nil, ErrRoomExpired
	}

	totalSolves, _ := wca.SolveCount(rm.Format)
	participant := models.RoomParticipant{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		UserID:      userID,
		TotalSolves: totalSolves,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := database.CreateParticipant(tx, &participant); err != nil {
			return err
		}
		return tx.Model(&models.ChallengeRoom{}).
			Where("id = ?", roomID).
			Update("participant_count", gorm.Expr("participant_count + 1")).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidate(roomID)
	s.broker.PublishRoomEvent(pubsub.RoomEvent{
		Type:   "participant_joined",
		RoomID: roomID,
		Data:   map[string]interface{}{"user_id": userID},
	})
	return &participant, rm, nil
}

// SubmitSolve records one immutable solve for a participant. The read-
// modify-write runs in a single transaction; on the participant's final
// solve their WCA statistics are computed and the room's completed counter
// bumped.
func (s *Service) SubmitSolve(userID, roomID string, solveNumber int, timeMs int64, penalty wca.Penalty, comment string) (*models.RoomSolve, error) {
	switch penalty {
	case wca.PenaltyNone, wca.PenaltyPlus2, wca.PenaltyDNF:
	default:
		return nil, ErrInvalidPenalty
	}

	rm, err := database.GetRoomByID(s.db, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if rm.Status != models.RoomActive {
		return nil, ErrRoomNotActive
	}
	if time.Now().After(rm.ExpiresAt) {
		return nil, ErrRoomExpired
	}

	var solve models.RoomSolve
	var completed bool

	err = s.db.Transaction(func(tx *gorm.DB) error {
		participant, err := database.GetParticipant(tx, roomID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotParticipant
			}
			return err
		}

		if solveNumber < 1 || solveNumber > participant.TotalSolves {
			return ErrBadSolveNumber
		}

		taken, err := database.SolveSlotTaken(tx, participant.ID, solveNumber)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSolve
		}

		solve = models.RoomSolve{
			ID:            uuid.NewString(),
			RoomID:        roomID,
			ParticipantID: participant.ID,
			SolveNumber:   solveNumber,
			UserID:        userID,
			TimeMs:        timeMs,
			Penalty:       penalty,
			FinalTimeMs:   wca.FinalTime(timeMs, penalty),
			Scramble:      rm.Scrambles[solveNumber-1],
			Comment:       comment,
		}
		if err := database.CreateRoomSolve(tx, &solve); err != nil {
			return err
		}

		participant.SolvesCompleted++
		if penalty == wca.PenaltyDNF {
			participant.DNFCount++
		}

		if participant.SolvesCompleted == participant.TotalSolves {
			solves, err := database.GetParticipantSolves(tx, participant.ID)
			if err != nil {
				return err
			}
			finalTimes := make([]int64, len(solves))
			for i, sv := range solves {
				finalTimes[i] = sv.FinalTimeMs
			}

			if best, ok := wca.BestSingle(finalTimes); ok {
				participant.BestSingle = &best
			}
			average := wca.TrimmedAverage(finalTimes)
			participant.Average = &average

			now := time.Now()
			participant.IsCompleted = true
			participant.CompletedAt = &now
			completed = true

			if err := tx.Model(&models.ChallengeRoom{}).
				Where("id = ?", roomID).
				Update("completed_count", gorm.Expr("completed_count + 1")).Error; err != nil {
				return err
			}
		}

		return tx.Save(participant).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(roomID)
	s.broker.PublishRoomEvent(pubsub.RoomEvent{
		Type:   "solve_submitted",
		RoomID: roomID,
		Data:   map[string]interface{}{"user_id": userID, "solve_number": solveNumber},
	})
	if completed {
		s.broker.PublishRoomEvent(pubsub.RoomEvent{
			Type:   "participant_completed",
			RoomID: roomID,
			Data:   map[string]interface{}{"user_id": userID},
		})
	}
	return &solve, nil
}

// Details returns the room with its leaderboard-ordered participants.
func (s *Service) Details(roomID string) (*Details, error) {
	ctx := context.Background()

	var cached Details
	if err := s.cache.GetRoomDetails(ctx, roomID, &cached); err == nil {
		return &cached, nil
	}

	rm, err := database.GetRoomByID(s.db, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	participants, err := database.GetRoomParticipants(s.db, roomID)
	if err != nil {
		return nil, err
	}
	sortParticipants(participants)

	details := Details{
		Room:         *rm,
		IsExpired:    time.Since(rm.CreatedAt) > Lifetime,
		Participants: participants,
	}
	s.cache.SetRoomDetails(ctx, roomID, &details)
	return &details, nil
}

// sortParticipants orders a room's participants for display: completed
// before incomplete, completed by ascending average (missing average last),
// incomplete by descending progress.
func sortParticipants(participants []models.RoomParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.IsCompleted != b.IsCompleted {
			return a.IsCompleted
		}
		if a.IsCompleted {
			switch {
			case a.Average != nil && b.Average != nil:
				return *a.Average < *b.Average
			case a.Average != nil:
				return true
			case b.Average != nil:
				return false
			}
			return false
		}
		return a.SolvesCompleted > b.SolvesCompleted
	})
}

// ResolveCode looks up a room by its shareable short code. Codes are stored
// upper-case, so the lookup is case-insensitive for the caller.
func (s *Service) ResolveCode(code string) (*models.ChallengeRoom, error) {
	rm, err := database.GetRoomByCode(s.db, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// UserParticipation returns the user's participant record and solves, or nil
// if they never joined the room.
func (s *Service) UserParticipation(userID, roomID string) (*Participation, error) {
	participant, err := database.GetParticipant(s.db, roomID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	solves, err := database.GetParticipantSolves(s.db, participant.ID)
	if err != nil {
		return nil, err
	}

	rm, err := database.GetRoomByID(s.db, roomID)
	if err != nil {
		return nil, err
	}

	return &Participation{
		Participant: *participant,
		Solves:      solves,
		Room:        *rm,
	}, nil
}

// RecentRooms returns up to 5 of the user's 10 most recent participations,
// skipping rooms the cleanup already removed.
func (s *Service) RecentRooms(userID string) ([]RecentRoom, error) {
	participations, err := database.GetRecentParticipations(s.db, userID, 10)
	if err != nil {
		return nil, err
	}

	recent := make([]RecentRoom, 0, 5)
	for _, p := range participations {
		if len(recent) == 5 {
			break
		}
		rm, err := database.GetRoomByID(s.db, p.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		recent = append(recent, RecentRoom{Participant: p, Room: *rm})
	}
	return recent, nil
}

// Update edits the room's name and description. Everything else about a room
// is immutable after creation.
func (s *Service) Update(userID, roomID, name, description string) error {
	rm, err := database.GetRoomByID(s.db, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if rm.CreatedBy != userID {
		return ErrNotCreator
	}

	rm.Name = name
	rm.Description = description
	if err := s.db.Save(rm).Error; err != nil {
		return err
	}

	s.invalidate(roomID)
	return nil
}

// UpdateRanks sorts the completed participants by average and assigns 1-based
// contiguous final ranks, persisting only the ranks that changed. Ranks are
// finalized explicitly or by the expiry sweep, never on each solve: the live
// leaderboard orders by raw average, final ranks become authoritative once
// the room is processed as expired.
func (s *Service) UpdateRanks(roomID string) (int, error) {
	participants, err := database.GetCompletedParticipants(s.db, roomID)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		switch {
		case a.Average != nil && b.Average != nil:
			if *a.Average != *b.Average {
				return *a.Average < *b.Average
			}
		case a.Average != nil:
			return true
		case b.Average != nil:
			return false
		}
		if a.CompletedAt != nil && b.CompletedAt != nil {
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		return false
	})

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range participants {
			rank := i + 1
			if participants[i].FinalRank == rank {
				continue
			}
			if err := tx.Model(&models.RoomParticipant{}).
				Where("id = ?", participants[i].ID).
				Update("final_rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(roomID)
	return len(participants), nil
}

// CleanupExpired hard-deletes every room older than the 48-hour lifetime,
// children first. Distinct from the soft expire transition the sweep does.
func (s *Service) CleanupExpired() (int, error) {
	rooms, err := database.GetRoomsCreatedBefore(s.db, time.Now().Add(-Lifetime))
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rm := range rooms {
		if err := database.DeleteRoomCascade(s.db, rm.ID); err != nil {
			return deleted, err
		}
		s.broker.CloseTopic(rm.ID)
		deleted++
	}

	if deleted > 0 {
		s.cache.InvalidatePublicRooms(context.Background())
		zap.S().Infof("cleanup removed %d expired rooms", deleted)
	}
	return deleted, nil
}

// ProcessExpired is the periodic sweep: rooms whose deadline passed within
// the trailing hour are flipped to expired and get their ranks finalized;
// rooms past the retention period are hard-deleted.
func (s *Service) ProcessExpired() error {
	now := time.Now()

	rooms, err := database.GetRoomsExpiringBetween(s.db, now.Add(-sweepLookback), now)
	if err != nil {
		return err
	}
	for i := range rooms {
		rooms[i].Status = models.RoomExpired
		if err := s.db.Save(&rooms[i]).Error; err != nil {
			return err
		}
		if _, err := s.UpdateRanks(rooms[i].ID); err != nil {
			return err
		}
		s.broker.PublishRoomEvent(pubsub.RoomEvent{Type: "room_expired", RoomID: rooms[i].ID})
		s.broker.CloseTopic(rooms[i].ID)
		s.invalidate(rooms[i].ID)
		zap.S().Infof("room %s expired, ranks finalized", rooms[i].Code)
	}

	old, err := database.GetRoomsCreatedBefore(s.db, now.Add(-RetentionPeriod))
	if err != nil {
		return err
	}
	for _, rm := range old {
		if err := database.DeleteRoomCascade(s.db, rm.ID); err != nil {
			return err
		}
		zap.S().Infof("room %s deleted after retention period", rm.Code)
	}

	if len(rooms) > 0 || len(old) > 0 {
		s.cache.InvalidatePublicRooms(context.Background())
	}
	return nil
}

// PublicRooms lists active public rooms, newest first.
func (s *Service) PublicRooms(limit int) ([]models.ChallengeRoom, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx := context.Background()

	var cached []models.ChallengeRoom
	if err := s.cache.GetPublicRooms(ctx, limit, &cached); err == nil {
		return cached, nil
	}

	rooms, err := database.GetPublicRooms(s.db, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetPublicRooms(ctx, limit, rooms)
	return rooms, nil
}

func (s *Service) invalidate(roomID string) {
	ctx := context.Background()
	s.cache.InvalidateRoom(ctx, roomID)
	s.cache.InvalidatePublicRooms(ctx)
}
